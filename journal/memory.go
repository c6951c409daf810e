package journal

import (
	"context"
	"sync"
)

// MemoryJournal is an in-process journal for tests and journal-less deployments.
type MemoryJournal struct {
	mu   sync.RWMutex
	recs map[string][]Record
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{recs: make(map[string][]Record)}
}

func (j *MemoryJournal) Append(_ context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recs[rec.SessionID] = append(j.recs[rec.SessionID], rec)
	return nil
}

func (j *MemoryJournal) Tail(_ context.Context, sessionID string, n int) ([]Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	recs := j.recs[sessionID]
	if n <= 0 || n > len(recs) {
		n = len(recs)
	}
	out := make([]Record, n)
	copy(out, recs[len(recs)-n:])
	return out, nil
}

func (j *MemoryJournal) Len(_ context.Context, sessionID string) (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.recs[sessionID]), nil
}

func (j *MemoryJournal) Close() error { return nil }

var _ Journal = (*MemoryJournal)(nil)
