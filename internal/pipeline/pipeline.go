// Package pipeline orchestrates the statement parsing flow: text
// extraction, prompt assembly, model invocation, validation and optional
// aggregation, all behind the content-digest cache.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/txparse/internal/aggregate"
	"github.com/rumor-ml/commons.systems/txparse/internal/dedup"
	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
	"github.com/rumor-ml/commons.systems/txparse/internal/extract"
	"github.com/rumor-ml/commons.systems/txparse/internal/llm"
	"github.com/rumor-ml/commons.systems/txparse/internal/prompt"
	"github.com/rumor-ml/commons.systems/txparse/internal/store"
	"github.com/rumor-ml/commons.systems/txparse/internal/validate"
)

// InferenceClient is the model invocation capability the pipeline depends
// on. *llm.Client satisfies it; tests substitute fakes.
type InferenceClient interface {
	Invoke(ctx context.Context, instruction, data string) (string, llm.Usage, error)
}

// TransactionSink persists extracted transactions for later queries,
// keyed by the content digest of the source document.
type TransactionSink interface {
	SaveTransactions(ctx context.Context, digest string, result domain.ParseResult) error
}

// Config assembles a pipeline. Extractor and Client are required; Records
// defaults to an in-memory store, Validator to the default drop policy.
// Blobs and History are optional side-channels.
type Config struct {
	Extractor extract.Extractor
	Client    InferenceClient
	Validator *validate.Validator
	Records   store.RecordStore
	Blobs     store.BlobStore
	History   TransactionSink
}

// Options control a single parse request.
type Options struct {
	// Aggregate adds per-(ISIN, type) totals to the result. Aggregation is
	// derived after the cache, so the flag never fragments cache entries.
	Aggregate bool
}

// Pipeline turns PDF bytes into validated transactions.
type Pipeline struct {
	extractor extract.Extractor
	client    InferenceClient
	validator *validate.Validator
	cache     *dedup.Cache
	blobs     store.BlobStore
	history   TransactionSink
}

// New creates a pipeline from config.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("pipeline: extractor is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("pipeline: inference client is required")
	}
	validator := cfg.Validator
	if validator == nil {
		validator = validate.New()
	}
	records := cfg.Records
	if records == nil {
		records = store.NewMemoryStore()
	}

	return &Pipeline{
		extractor: cfg.Extractor,
		client:    cfg.Client,
		validator: validator,
		cache:     dedup.NewCache(records),
		blobs:     cfg.Blobs,
		history:   cfg.History,
	}, nil
}

// Parse runs the full flow over pdfBytes. The second return value reports
// whether the result was served from the cache. Filename is carried into
// the result for provenance only; identical bytes under different names
// share one cache entry.
func (p *Pipeline) Parse(ctx context.Context, pdfBytes []byte, filename string, opts Options) (*domain.ParseResult, bool, error) {
	if len(pdfBytes) == 0 {
		return nil, false, fmt.Errorf("pipeline: empty document")
	}

	result, cached, err := p.cache.GetOrCompute(ctx, pdfBytes, func(ctx context.Context) (*domain.ParseResult, error) {
		return p.compute(ctx, pdfBytes, filename)
	})
	if err != nil {
		return nil, false, err
	}

	if opts.Aggregate && len(result.Transactions) > 0 {
		// Copy before decorating; the cached value may be shared with
		// coalesced concurrent callers.
		decorated := *result
		decorated.Aggregated = aggregate.Aggregate(result.Transactions)
		return &decorated, cached, nil
	}
	return result, cached, nil
}

// ParseFile reads and parses a statement from disk.
func (p *Pipeline) ParseFile(ctx context.Context, path string, opts Options) (*domain.ParseResult, bool, error) {
	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.Parse(ctx, pdfBytes, filepath.Base(path), opts)
}

// ParseText runs prompt, invoke and validate over text that is already
// extracted, for callers that do their own PDF handling. Results are not
// cached; there is no document digest to key them by.
func (p *Pipeline) ParseText(ctx context.Context, text string, opts Options) (*domain.ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("pipeline: empty statement text")
	}

	result, err := p.infer(ctx, text, "")
	if err != nil {
		return nil, err
	}
	if opts.Aggregate && len(result.Transactions) > 0 {
		result.Aggregated = aggregate.Aggregate(result.Transactions)
	}
	return result, nil
}

// compute is the cache-miss path: extract, prompt, invoke, validate.
func (p *Pipeline) compute(ctx context.Context, pdfBytes []byte, filename string) (*domain.ParseResult, error) {
	text, err := p.extractor.Extract(pdfBytes)
	if err != nil {
		return nil, err
	}

	result, err := p.infer(ctx, text, filename)
	if err != nil {
		return nil, err
	}

	p.archive(ctx, pdfBytes, result)
	return result, nil
}

// infer sends the text to the model and validates the response. The label
// identifies the source document in logs and in the result; it may be
// empty for raw-text requests.
func (p *Pipeline) infer(ctx context.Context, text, label string) (*domain.ParseResult, error) {
	raw, usage, err := p.client.Invoke(ctx, prompt.Instruction(), prompt.Data(text))
	if err != nil {
		return nil, err
	}
	log.Printf("llm: %s completed in %d attempt(s), %d prompt / %d completion tokens",
		label, usage.Attempts, usage.PromptTokens, usage.CompletionTokens)

	transactions, report, err := p.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	if report.Dropped > 0 {
		log.Printf("validate: dropped %d of %d elements for %s: %v",
			report.Dropped, report.Total, label, report.Reasons)
	}

	return &domain.ParseResult{
		Transactions:     transactions,
		SourceFilename:   label,
		ParsedAt:         time.Now().UTC(),
		TransactionCount: len(transactions),
		DroppedCount:     report.Dropped,
	}, nil
}

// archive stores the original document and the transaction history. Both
// are side-channels; failures are logged and never fail the parse.
func (p *Pipeline) archive(ctx context.Context, pdfBytes []byte, result *domain.ParseResult) {
	digest := dedup.Digest(pdfBytes)

	if p.blobs != nil {
		if err := p.blobs.Put(ctx, digest, pdfBytes); err != nil {
			log.Printf("ERROR: failed to archive document %s: %v", digest, err)
		}
	}
	if p.history != nil && len(result.Transactions) > 0 {
		if err := p.history.SaveTransactions(ctx, digest, *result); err != nil {
			log.Printf("ERROR: failed to save transaction history for %s: %v", digest, err)
		}
	}
}
