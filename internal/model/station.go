package model

import (
	"time"

	"github.com/google/uuid"
)

// Station is the uniform station record every connector resolves its
// incoming messages against.
type Station struct {
	ID            uuid.UUID
	Name          string
	Latitude      float64
	Longitude     float64
	Elevation     float64
	PollingPeriod time.Duration
	Timezone      *time.Location

	// Cursor is the last-archive-downloaded timestamp. It is advanced only
	// through registry.AdvanceCursor, never mutated directly, to keep the
	// monotonic-non-decreasing invariant in one place.
	Cursor time.Time
}
