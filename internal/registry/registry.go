// Package registry provides the station registry: lookup of known
// stations, monotonic cursor advancement, and a 24h freshness cache used
// to avoid redundant upstream polls.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"meteodata.example/meteodata-server/internal/model"
)

// CacheFreshness is the single named constant for how long a cache entry
// stays usable before it must be refreshed from the upstream source. Kept
// fixed rather than configurable, matching the original daemon's hardcoded
// 24h behavior.
const CacheFreshness = 24 * time.Hour

// Store is the persistence contract for station records. Implementations
// must be safe for concurrent use.
type Store interface {
	Save(model.Station) error
	Load(id uuid.UUID) (model.Station, error)
	List() ([]model.Station, error)
}

// Registry is the in-memory, lock-protected view of all known stations,
// backed by a Store for durability.
type Registry struct {
	mu       sync.RWMutex
	stations map[uuid.UUID]model.Station
	store    Store
}

// New loads all stations from store into memory.
func New(store Store) (*Registry, error) {
	stations, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("registry: initial load: %w", err)
	}
	r := &Registry{
		stations: make(map[uuid.UUID]model.Station, len(stations)),
		store:    store,
	}
	for _, s := range stations {
		r.stations[s.ID] = s
	}
	return r, nil
}

// Get returns the station by ID.
func (r *Registry) Get(id uuid.UUID) (model.Station, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stations[id]
	return s, ok
}

// All returns a snapshot of every known station.
func (r *Registry) All() []model.Station {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Station, 0, len(r.stations))
	for _, s := range r.stations {
		out = append(out, s)
	}
	return out
}

// Put inserts or replaces a station record and persists it.
func (r *Registry) Put(s model.Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Save(s); err != nil {
		return fmt.Errorf("registry: save station %s: %w", s.ID, err)
	}
	r.stations[s.ID] = s
	return nil
}

// AdvanceCursor sets the station's cursor to at, but only if at is after
// the current cursor — the registry is the single place this
// monotonic-non-decreasing invariant is enforced. Returns false without
// error when at does not advance the cursor (not itself an error
// condition, just a no-op).
func (r *Registry) AdvanceCursor(id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stations[id]
	if !ok {
		return false, fmt.Errorf("registry: unknown station %s", id)
	}
	if !at.After(s.Cursor) {
		return false, nil
	}
	s.Cursor = at
	if err := r.store.Save(s); err != nil {
		return false, fmt.Errorf("registry: persist cursor for %s: %w", id, err)
	}
	r.stations[id] = s
	return true, nil
}
