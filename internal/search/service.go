// file: internal/search/service.go
// version: 1.0.0
// guid: 6a8c0e2b-4d6f-4a8c-9e0b-2d4f6a8c0e1d

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jdfalk/hardcover-provider/internal/cache"
	"github.com/jdfalk/hardcover-provider/internal/credentials"
	"github.com/jdfalk/hardcover-provider/internal/metadata"
	"github.com/jdfalk/hardcover-provider/internal/metrics"
	"github.com/jdfalk/hardcover-provider/internal/ratelimit"
	"golang.org/x/sync/singleflight"
)

// Cache is the response cache consulted before any upstream work.
type Cache interface {
	Lookup(key string) ([]byte, bool)
	Store(key string, data []byte)
}

// Limiter gates cache misses per caller identity.
type Limiter interface {
	Check(identity string) ratelimit.Decision
}

// Credentials hands out upstream credentials.
type Credentials interface {
	Acquire(ctx context.Context) (credentials.Credential, error)
}

// Outcome labels how a search was answered.
type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
)

// Result is an encoded SearchResponse ready to be written to the client.
type Result struct {
	Body    []byte
	Outcome Outcome
}

// Service answers searches from cache, falling back to the metadata source on a miss.
type Service struct {
	cache   Cache
	limiter Limiter
	creds   Credentials
	source  metadata.Source
	flight  singleflight.Group
}

// NewService wires the search pipeline.
func NewService(c Cache, l Limiter, creds Credentials, source metadata.Source) *Service {
	return &Service{cache: c, limiter: l, creds: creds, source: source}
}

// Search returns the encoded response for q. Cache hits never consume rate limit or
// credential quota. Concurrent misses for the same key share a single upstream fetch.
func (s *Service) Search(ctx context.Context, identity string, q metadata.Query) (Result, error) {
	key := cache.DeriveKey(q.Text, q.Author, q.Lang, q.Type)

	if body, ok := s.cache.Lookup(key); ok {
		log.Printf("[DEBUG] Cache hit for %q", q.Text)
		metrics.IncSearch(string(OutcomeHit))
		return Result{Body: body, Outcome: OutcomeHit}, nil
	}

	decision := s.limiter.Check(identity)
	if err := decision.Err(); err != nil {
		log.Printf("[WARN] Rate limit exceeded for %s", identity)
		metrics.IncSearch("rate_limited")
		return Result{}, err
	}

	log.Printf("[INFO] Cache miss for %q, querying %s", q.Text, s.source.Name())
	v, err, shared := s.flight.Do(key, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), key, q)
	})
	if err != nil {
		metrics.IncSearch(failureOutcome(err))
		return Result{}, err
	}
	if shared {
		log.Printf("[DEBUG] Joined in-flight fetch for %q", q.Text)
	}
	metrics.IncSearch(string(OutcomeMiss))
	return Result{Body: v.([]byte), Outcome: OutcomeMiss}, nil
}

func (s *Service) fetch(ctx context.Context, key string, q metadata.Query) ([]byte, error) {
	// A fetch that finished just before this one started already stored the answer.
	if body, ok := s.cache.Lookup(key); ok {
		return body, nil
	}

	cred, err := s.creds.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := s.source.Search(ctx, q, cred.Key)
	if err != nil {
		if !errors.Is(err, metadata.ErrNoResults) {
			log.Printf("[ERROR] %s search for %q failed: %v", s.source.Name(), q.Text, err)
		}
		return nil, err
	}

	body, err := json.Marshal(metadata.NewSearchResponse(matches))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search response: %w", err)
	}
	s.cache.Store(key, body)
	return body, nil
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, metadata.ErrNoResults):
		return "not_found"
	case errors.Is(err, credentials.ErrExhausted):
		return "exhausted"
	}
	return "upstream_error"
}
