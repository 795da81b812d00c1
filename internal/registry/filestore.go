package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"meteodata.example/meteodata-server/internal/model"
)

// FileStore persists stations as individual JSON files under a directory,
// using temp-file + atomic rename writes for crash safety. This is the
// local/test-double persistence path; the primary station registry is
// expected to be backed by the relational store in production deployments.
type FileStore struct {
	dir string
}

// persistedStation is the on-disk wire format for a station.
type persistedStation struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Elevation     float64   `json:"elevation"`
	PollingPeriodSeconds int `json:"polling_period_seconds"`
	Timezone      string    `json:"timezone"`
	Cursor        time.Time `json:"cursor"`
}

// NewFileStore creates a FileStore rooted at dir, creating it if absent.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("station file store: create directory %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".json")
}

// Save atomically writes the station record.
func (s *FileStore) Save(st model.Station) error {
	tz := "UTC"
	if st.Timezone != nil {
		tz = st.Timezone.String()
	}
	pt := persistedStation{
		ID:                   st.ID,
		Name:                 st.Name,
		Latitude:             st.Latitude,
		Longitude:            st.Longitude,
		Elevation:            st.Elevation,
		PollingPeriodSeconds: int(st.PollingPeriod / time.Second),
		Timezone:             tz,
		Cursor:               st.Cursor,
	}
	data, err := json.MarshalIndent(pt, "", "  ")
	if err != nil {
		return fmt.Errorf("station file store: marshal %s: %w", st.ID, err)
	}

	tmpFile, err := os.CreateTemp(s.dir, "."+st.ID.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("station file store: create temp file for %s: %w", st.ID, err)
	}
	tmpName := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("station file store: write temp file for %s: %w", st.ID, err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("station file store: close temp file for %s: %w", st.ID, err)
	}

	final := s.path(st.ID)
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("station file store: rename to %q: %w", final, err)
	}

	slog.Debug("station persisted", "station", st.ID, "cursor", st.Cursor)
	return nil
}

// Load reads a single station record.
func (s *FileStore) Load(id uuid.UUID) (model.Station, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Station{}, fmt.Errorf("station file store: %s not found: %w", id, os.ErrNotExist)
		}
		return model.Station{}, fmt.Errorf("station file store: read %s: %w", id, err)
	}
	return decodeStation(data)
}

// List reads every station record in the directory, skipping and logging
// any file that cannot be read or decoded.
func (s *FileStore) List() ([]model.Station, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("station file store: read directory %q: %w", s.dir, err)
	}

	var stations []model.Station
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".tmp") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			slog.Warn("station file store: skipping unreadable file", "file", name, "error", err)
			continue
		}
		st, err := decodeStation(data)
		if err != nil {
			slog.Warn("station file store: skipping corrupt file", "file", name, "error", err)
			continue
		}
		stations = append(stations, st)
	}
	return stations, nil
}

func decodeStation(data []byte) (model.Station, error) {
	var pt persistedStation
	if err := json.Unmarshal(data, &pt); err != nil {
		return model.Station{}, fmt.Errorf("station file store: unmarshal: %w", err)
	}
	loc, err := time.LoadLocation(pt.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return model.Station{
		ID:            pt.ID,
		Name:          pt.Name,
		Latitude:      pt.Latitude,
		Longitude:     pt.Longitude,
		Elevation:     pt.Elevation,
		PollingPeriod: time.Duration(pt.PollingPeriodSeconds) * time.Second,
		Timezone:      loc,
		Cursor:        pt.Cursor,
	}, nil
}

var _ Store = (*FileStore)(nil)
