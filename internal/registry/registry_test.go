package registry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteodata.example/meteodata-server/internal/model"
)

func newTestRegistry(t *testing.T) (*Registry, uuid.UUID) {
	t.Helper()
	store := NewMemStore()
	id := uuid.New()
	require.NoError(t, store.Save(model.Station{ID: id, Name: "test", Cursor: time.Unix(1000, 0)}))
	r, err := New(store)
	require.NoError(t, err)
	return r, id
}

func TestAdvanceCursorMonotonic(t *testing.T) {
	r, id := newTestRegistry(t)

	ok, err := r.AdvanceCursor(id, time.Unix(2000, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.AdvanceCursor(id, time.Unix(1500, 0))
	require.NoError(t, err)
	assert.False(t, ok, "cursor must never move backwards")

	st, _ := r.Get(id)
	assert.Equal(t, time.Unix(2000, 0), st.Cursor)
}

func TestAdvanceCursorUnknownStation(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.AdvanceCursor(uuid.New(), time.Now())
	assert.Error(t, err)
}

func TestCacheFreshnessExpires(t *testing.T) {
	c := NewCache()
	id := uuid.New()
	c.Set(id, "k", 42)
	v, ok := c.Get(id, "k")
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)

	c.entries[cacheKey{id, "k"}] = cacheEntry{at: time.Now().Add(-25 * time.Hour), value: 42}
	_, ok = c.Get(id, "k")
	assert.False(t, ok, "entries older than CacheFreshness must expire")
}
