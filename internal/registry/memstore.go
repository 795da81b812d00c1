package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"meteodata.example/meteodata-server/internal/model"
)

// MemStore is an in-memory Store used by tests.
type MemStore struct {
	mu       sync.Mutex
	stations map[uuid.UUID]model.Station
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{stations: make(map[uuid.UUID]model.Station)}
}

func (m *MemStore) Save(s model.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[s.ID] = s
	return nil
}

func (m *MemStore) Load(id uuid.UUID) (model.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stations[id]
	if !ok {
		return model.Station{}, fmt.Errorf("station %s not found", id)
	}
	return s, nil
}

func (m *MemStore) List() ([]model.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Station, 0, len(m.stations))
	for _, s := range m.stations {
		out = append(out, s)
	}
	return out, nil
}

var _ Store = (*MemStore)(nil)
