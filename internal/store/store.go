// Package store defines the observation sink contract. The wide-column
// time-series driver itself is out of scope for this daemon (per the
// system's scope decisions); this package provides the interface plus an
// in-memory reference implementation used by tests and local/dev runs.
// See internal/store/relstore for the relational side-store, which does
// use a concrete driver.
package store

import (
	"context"
	"fmt"
	"sync"

	"meteodata.example/meteodata-server/internal/model"
)

// ObservationSink persists observations. Insert must be safe for
// concurrent use and idempotent on the (StationID, Timestamp) key, since
// the ingestion pipeline may retry after a partial multi-sink failure.
type ObservationSink interface {
	Insert(ctx context.Context, obs model.Observation) error
}

// Sinks fans an insert out to every configured sink. All sinks must
// succeed for the pipeline to treat the insert as successful, per the
// dual-sink requirement in the ingestion pipeline design.
type Sinks []ObservationSink

// Insert writes obs to every sink, returning the first error encountered.
// It does not attempt to roll back sinks that already succeeded; sinks
// are expected to be idempotent so a retried Insert is safe.
func (s Sinks) Insert(ctx context.Context, obs model.Observation) error {
	for _, sink := range s {
		if err := sink.Insert(ctx, obs); err != nil {
			return fmt.Errorf("sink insert failed: %w", err)
		}
	}
	return nil
}

// MemSink is an in-memory ObservationSink, the reference implementation
// for the out-of-scope wide-column store.
type MemSink struct {
	mu   sync.Mutex
	rows []model.Observation
}

// NewMemSink returns an empty in-memory sink.
func NewMemSink() *MemSink { return &MemSink{} }

func (m *MemSink) Insert(ctx context.Context, obs model.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.rows {
		if existing.StationID == obs.StationID && existing.Timestamp.Equal(obs.Timestamp) {
			m.rows[i] = obs // idempotent overwrite
			return nil
		}
	}
	m.rows = append(m.rows, obs)
	return nil
}

// All returns a snapshot of every stored observation, for test assertions.
func (m *MemSink) All() []model.Observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Observation, len(m.rows))
	copy(out, m.rows)
	return out
}

var _ ObservationSink = (*MemSink)(nil)
