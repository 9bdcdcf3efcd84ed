// Package dedup provides content-addressed caching of parse results via
// SHA256 digests. Inference calls dominate cost and latency, so a digest
// hit skips the whole pipeline.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
	"github.com/rumor-ml/commons.systems/txparse/internal/store"
)

// Digest returns the hex-encoded SHA256 content digest of the PDF bytes.
// Identical bytes always yield the same digest regardless of filename.
func Digest(pdfBytes []byte) string {
	hash := sha256.Sum256(pdfBytes)
	return hex.EncodeToString(hash[:])
}

// ComputeFunc runs the full extraction pipeline on a cache miss.
type ComputeFunc func(ctx context.Context) (*domain.ParseResult, error)

// Cache wraps the pipeline with digest-keyed result caching. Concurrent
// requests for the same digest are coalesced into a single in-flight
// computation.
type Cache struct {
	records store.RecordStore
	group   singleflight.Group
}

// NewCache creates a cache over the given record store.
func NewCache(records store.RecordStore) *Cache {
	return &Cache{records: records}
}

// GetOrCompute returns the stored result for the digest of pdfBytes, or
// runs compute and persists its result. The second return value reports
// whether the result came from the cache.
//
// Store failures never fail the request: a read error degrades to a miss
// and a write error is logged without masking the computed result. Nothing
// is persisted when compute fails.
func (c *Cache) GetOrCompute(ctx context.Context, pdfBytes []byte, compute ComputeFunc) (*domain.ParseResult, bool, error) {
	digest := Digest(pdfBytes)

	type outcome struct {
		result *domain.ParseResult
		cached bool
	}

	v, err, _ := c.group.Do(digest, func() (interface{}, error) {
		if result, ok := c.lookup(ctx, digest); ok {
			return outcome{result: result, cached: true}, nil
		}

		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		c.persist(ctx, digest, result)
		return outcome{result: result}, nil
	})
	if err != nil {
		return nil, false, err
	}

	o := v.(outcome)
	return o.result, o.cached, nil
}

// lookup fetches and decodes a stored entry. Any failure degrades to a
// miss, so a flaky store costs a redundant inference call instead of a
// failed request.
func (c *Cache) lookup(ctx context.Context, digest string) (*domain.ParseResult, bool) {
	data, err := c.records.Get(ctx, digest)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		log.Printf("ERROR: cache read for %s failed, recomputing: %v", digest, err)
		return nil, false
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("ERROR: cache entry for %s is corrupt, recomputing: %v", digest, err)
		return nil, false
	}
	return &entry.Result, true
}

func (c *Cache) persist(ctx context.Context, digest string, result *domain.ParseResult) {
	entry := domain.CacheEntry{
		Digest:    digest,
		Result:    *result,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("ERROR: failed to encode cache entry for %s: %v", digest, err)
		return
	}
	if err := c.records.Put(ctx, digest, data); err != nil {
		log.Printf("ERROR: failed to write cache entry for %s: %v", digest, err)
	}
}
