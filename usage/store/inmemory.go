package store

import (
	"context"
	"sync"
	"time"

	"github.com/competeiq/tripartite/usage"
)

// InMemoryRecorder keeps records in a slice; for tests and development.
type InMemoryRecorder struct {
	mu      sync.Mutex
	records []usage.Record
}

// NewInMemoryRecorder creates an empty in-memory recorder.
func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Record implements usage.Recorder.
func (r *InMemoryRecorder) Record(ctx context.Context, rec usage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// Records returns a copy of everything recorded so far.
func (r *InMemoryRecorder) Records() []usage.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]usage.Record, len(r.records))
	copy(out, r.records)
	return out
}

// ForUser returns records for one user.
func (r *InMemoryRecorder) ForUser(userID string) []usage.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []usage.Record
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}
