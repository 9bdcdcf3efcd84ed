package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
)

const (
	cacheCollection = "parse-cache"
	txnCollection   = "statement-transactions"
)

// FirestoreClient wraps Firestore with parse-cache and transaction-history
// operations. It implements RecordStore over the parse-cache collection.
type FirestoreClient struct {
	Firestore *firestore.Client
	Auth      *auth.Client
	projectID string
}

// NewFirestoreClient creates a Firestore-backed store using Application
// Default Credentials.
func NewFirestoreClient(ctx context.Context, projectID string) (*FirestoreClient, error) {
	conf := &firebase.Config{ProjectID: projectID}

	app, err := firebase.NewApp(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("failed to create Auth client: %w", err)
	}

	return &FirestoreClient{
		Firestore: firestoreClient,
		Auth:      authClient,
		projectID: projectID,
	}, nil
}

// Close closes the Firestore client.
func (c *FirestoreClient) Close() error {
	return c.Firestore.Close()
}

// cacheDoc is a persisted CacheEntry. The serialized result is stored
// opaque so the value encoding stays with the dedup layer.
type cacheDoc struct {
	Digest    string    `firestore:"digest"`
	Value     []byte    `firestore:"value"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// Put stores a serialized parse result under its digest. Entries are
// immutable; rewriting the same digest is idempotent.
func (c *FirestoreClient) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.Firestore.Collection(cacheCollection).Doc(key).Set(ctx, cacheDoc{
		Digest:    key,
		Value:     value,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Get returns the serialized parse result for a digest, or ErrNotFound.
func (c *FirestoreClient) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := c.Firestore.Collection(cacheCollection).Doc(key).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	var doc cacheDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return doc.Value, nil
}

// txnDoc is one extracted transaction persisted for historical queries.
// Quantity and amount are stored as strings to preserve decimal precision.
type txnDoc struct {
	Digest          string `firestore:"digest"`
	Index           int    `firestore:"index"`
	Date            string `firestore:"date"`
	ISIN            string `firestore:"isin"`
	ProductName     string `firestore:"productName"`
	Quantity        string `firestore:"quantity"`
	AmountEuros     string `firestore:"amountEuros"`
	TransactionType string `firestore:"transactionType"`
	ParsedAt        string `firestore:"parsedAt"`
}

// SaveTransactions persists the individual transactions of a parse result
// so they can be queried by ISIN later.
func (c *FirestoreClient) SaveTransactions(ctx context.Context, digest string, result domain.ParseResult) error {
	col := c.Firestore.Collection(txnCollection)
	for i, txn := range result.Transactions {
		docID := fmt.Sprintf("%s-%04d", digest, i)
		_, err := col.Doc(docID).Set(ctx, txnDoc{
			Digest:          digest,
			Index:           i,
			Date:            txn.Date,
			ISIN:            txn.ISIN,
			ProductName:     txn.ProductName,
			Quantity:        txn.Quantity.String(),
			AmountEuros:     txn.AmountEuros.String(),
			TransactionType: string(txn.TransactionType),
			ParsedAt:        result.ParsedAt.Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", docID, err)
		}
	}
	return nil
}

// TransactionsByISIN returns stored transactions for an instrument, newest
// digest groups first is not guaranteed; ordering is by document ID.
func (c *FirestoreClient) TransactionsByISIN(ctx context.Context, isin string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	iter := c.Firestore.Collection(txnCollection).
		Where("isin", "==", isin).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []domain.Transaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query transactions for %s: %w", isin, err)
		}

		var doc txnDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", snap.Ref.ID, err)
		}

		txn, err := docToTransaction(doc)
		if err != nil {
			return nil, fmt.Errorf("stored transaction %s is invalid: %w", snap.Ref.ID, err)
		}
		out = append(out, txn)
	}
	return out, nil
}

func docToTransaction(doc txnDoc) (domain.Transaction, error) {
	quantity, err := decimal.NewFromString(doc.Quantity)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid stored quantity %q: %w", doc.Quantity, err)
	}
	amount, err := decimal.NewFromString(doc.AmountEuros)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid stored amount %q: %w", doc.AmountEuros, err)
	}
	return domain.NewTransaction(doc.Date, doc.ISIN, doc.ProductName,
		quantity, amount, domain.TransactionType(doc.TransactionType))
}
