// Package memory provides the in-memory audit store used by tests and
// single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"privacygate/internal/audit"
)

type Store struct {
	mu      sync.RWMutex
	records []audit.Record
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, record audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Query returns matching records newest first.
func (s *Store) Query(_ context.Context, filter audit.Filter) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if filter.Ref != "" && r.Ref != filter.Ref {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	removed := 0
	for _, r := range s.records {
		if r.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed, nil
}

// Len reports the number of stored records. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
