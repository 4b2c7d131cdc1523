// Package query implements the read-side query surface: important/search/
// stats/related, each read-through a small in-memory result cache keyed by
// an xxhash fingerprint of the operation and its arguments (spec §4.9).
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/codegraph/codegraph/internal/store"
)

// Surface answers read queries against a Store, with a small TTL'd result
// cache in front (distinct from internal/cache's file-content cache).
type Surface struct {
	store *store.Store
	ttl   time.Duration

	mu    sync.Mutex
	cache map[uint64]cachedResult
}

type cachedResult struct {
	value     any
	expiresAt time.Time
}

// New returns a Surface. ttl of zero disables result caching.
func New(s *store.Store, ttl time.Duration) *Surface {
	return &Surface{store: s, ttl: ttl, cache: make(map[uint64]cachedResult)}
}

func fingerprint(operation string, args ...any) uint64 {
	s := operation
	for _, a := range args {
		s += fmt.Sprintf("|%v", a)
	}
	return xxhash.Sum64String(s)
}

func (s *Surface) lookup(key uint64) (any, bool) {
	if s.ttl <= 0 {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache[key]
	if !ok || time.Now().After(v.expiresAt) {
		return nil, false
	}
	return v.value, true
}

func (s *Surface) remember(key uint64, value any) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cachedResult{value: value, expiresAt: time.Now().Add(s.ttl)}
}

// Important returns the top-N nodes by importance, optionally scoped to a
// path prefix, node kind, and minimum importance score.
func (s *Surface) Important(ctx context.Context, projectPath string, limit int, pathPrefix, kind string, minScore float64) ([]store.NodeRecord, error) {
	key := fingerprint("important", projectPath, limit, pathPrefix, kind, minScore)
	if v, ok := s.lookup(key); ok {
		return v.([]store.NodeRecord), nil
	}
	out, err := s.store.QueryImportant(ctx, projectPath, limit, pathPrefix, kind, minScore)
	if err != nil {
		return nil, err
	}
	s.remember(key, out)
	return out, nil
}

// Search tokenizes text on whitespace and runs mode ∈ {any,all} matching
// (FTS with LIKE fallback, handled by the store), optionally filtered to
// one node kind.
func (s *Surface) Search(ctx context.Context, projectPath, text, mode, kind string, limit int, useFTS bool) ([]store.NodeRecord, error) {
	key := fingerprint("search", projectPath, text, mode, kind, limit, useFTS)
	if v, ok := s.lookup(key); ok {
		return v.([]store.NodeRecord), nil
	}
	terms := strings.Fields(text)
	out, err := s.store.Search(ctx, projectPath, terms, mode, kind, limit, useFTS)
	if err != nil {
		return nil, err
	}
	s.remember(key, out)
	return out, nil
}

// Stats reports project-wide node/edge counts.
func (s *Surface) Stats(ctx context.Context, projectPath string) (*store.Stats, error) {
	key := fingerprint("stats", projectPath)
	if v, ok := s.lookup(key); ok {
		return v.(*store.Stats), nil
	}
	out, err := s.store.Stats(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	s.remember(key, out)
	return out, nil
}

// Related returns nodes directly connected to nodeID.
func (s *Surface) Related(ctx context.Context, nodeID int64, limit int) ([]store.NodeRecord, error) {
	key := fingerprint("related", nodeID, limit)
	if v, ok := s.lookup(key); ok {
		return v.([]store.NodeRecord), nil
	}
	out, err := s.store.FindRelated(ctx, nodeID, limit)
	if err != nil {
		return nil, err
	}
	s.remember(key, out)
	return out, nil
}

// Invalidate drops every cached result. Callers invoke this after any
// write (re-index, cache cleanup) so stale query results can't outlive the
// data they were computed from.
func (s *Surface) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[uint64]cachedResult)
}
