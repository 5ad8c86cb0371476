package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Techsolutions2024/RFID/internal/station/types"
)

// AccessLogStore is an in-memory append-only access log.
// It is intended for use in tests and dev environments.
type AccessLogStore struct {
	mu      sync.Mutex
	entries []types.AccessLogEntry
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) Append(_ context.Context, entry types.AccessLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AccessLogStore) Recent(_ context.Context, limit int) ([]types.AccessLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	if limit > n {
		limit = n
	}
	out := make([]types.AccessLogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *AccessLogStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

// Entries returns a copy of all recorded entries, oldest first.  Test-only helper.
func (s *AccessLogStore) Entries() []types.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
