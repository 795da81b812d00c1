package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteodata.example/meteodata-server/internal/model"
	"meteodata.example/meteodata-server/internal/registry"
	"meteodata.example/meteodata-server/internal/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, *store.MemSink, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	regStore := registry.NewMemStore()
	require.NoError(t, regStore.Save(model.Station{ID: id, Cursor: time.Unix(0, 0)}))
	reg, err := registry.New(regStore)
	require.NoError(t, err)

	sink := store.NewMemSink()
	p := New("test", store.Sinks{sink}, reg, nil)
	return p, sink, id
}

func TestInsertRejectsInvalidMessage(t *testing.T) {
	p, sink, id := newTestPipeline(t)
	res := p.Insert(context.Background(), id, model.Observation{Timestamp: time.Now()})
	assert.ErrorIs(t, res.Err, ErrInvalidMessage)
	assert.Empty(t, sink.All())
}

func TestInsertRejectsFutureTimestamp(t *testing.T) {
	p, sink, id := newTestPipeline(t)
	obs := model.New(id, time.Now().Add(48*time.Hour), time.UTC)
	obs.OutsideTemp = model.Some(20)
	res := p.Insert(context.Background(), id, obs)
	assert.ErrorIs(t, res.Err, ErrInvariantBreach)
	assert.Empty(t, sink.All())
}

func TestInsertSuccessAdvancesCursor(t *testing.T) {
	p, sink, id := newTestPipeline(t)
	ts := time.Now().Add(-time.Hour)
	obs := model.New(id, ts, time.UTC)
	obs.OutsideTemp = model.Some(18.5)

	res := p.Insert(context.Background(), id, obs)
	require.NoError(t, res.Err)
	assert.True(t, res.Inserted)
	assert.True(t, res.CursorAdvanced)
	assert.Len(t, sink.All(), 1)

	st, _ := p.Registry.Get(id)
	assert.Equal(t, ts.Truncate(time.Second), st.Cursor)
}

func TestInsertDoesNotAdvanceCursorBackwards(t *testing.T) {
	p, _, id := newTestPipeline(t)
	_, _ = p.Registry.AdvanceCursor(id, time.Now())

	older := model.New(id, time.Now().Add(-time.Hour), time.UTC)
	older.OutsideTemp = model.Some(10)
	res := p.Insert(context.Background(), id, older)
	require.NoError(t, res.Err)
	assert.False(t, res.CursorAdvanced)
}
