package poll

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteodata.example/meteodata-server/internal/connector"
	"meteodata.example/meteodata-server/internal/model"
	"meteodata.example/meteodata-server/internal/registry"
)

func TestClampSinceEnforcesHorizon(t *testing.T) {
	horizon := 48 * time.Hour
	old := time.Now().Add(-240 * time.Hour)
	got := clampSince(old, horizon)
	assert.WithinDuration(t, time.Now().Add(-horizon), got, time.Second)
}

func TestClampSinceKeepsRecentCursor(t *testing.T) {
	recent := time.Now().Add(-time.Hour)
	got := clampSince(recent, 48*time.Hour)
	assert.Equal(t, recent, got)
}

type fakeDownloader struct {
	name       string
	horizon    time.Duration
	batches    [][]model.Observation
	calls      int
	latest     time.Time
	latestCalls int
}

func (f *fakeDownloader) Name() string          { return f.name }
func (f *fakeDownloader) Horizon() time.Duration { return f.horizon }
func (f *fakeDownloader) Latest(ctx context.Context, st model.Station) (time.Time, error) {
	f.latestCalls++
	if f.latest.IsZero() {
		return time.Now(), nil
	}
	return f.latest, nil
}
func (f *fakeDownloader) Fetch(ctx context.Context, st model.Station, since, until time.Time, page int) ([]model.Observation, bool, error) {
	if page >= len(f.batches) {
		return nil, false, nil
	}
	f.calls++
	more := page < len(f.batches)-1
	return f.batches[page], more, nil
}

func TestTickPaginatesUntilExhausted(t *testing.T) {
	s := New()
	id := uuid.New()
	d := &fakeDownloader{
		name:    "fake",
		horizon: 24 * time.Hour,
		batches: [][]model.Observation{
			{model.New(id, time.Now(), time.UTC)},
			{model.New(id, time.Now(), time.UTC)},
		},
	}
	var inserted int
	s.tick(context.Background(), d, func() []model.Station {
		return []model.Station{{ID: id, PollingPeriod: time.Minute}}
	}, func(model.Station, model.Observation) { inserted++ })

	assert.Equal(t, 2, inserted)
	assert.Equal(t, 2, d.calls)
	assert.Equal(t, 1, d.latestCalls)
}

func TestTickSkipsFetchWhenLatestNotAfterCursor(t *testing.T) {
	s := New()
	id := uuid.New()
	cursor := time.Now()
	d := &fakeDownloader{
		name:    "fake",
		horizon: 24 * time.Hour,
		latest:  cursor, // not strictly after cursor: nothing new upstream
		batches: [][]model.Observation{{model.New(id, time.Now(), time.UTC)}},
	}
	var inserted int
	s.tick(context.Background(), d, func() []model.Station {
		return []model.Station{{ID: id, PollingPeriod: time.Minute, Cursor: cursor}}
	}, func(model.Station, model.Observation) { inserted++ })

	assert.Equal(t, 1, d.latestCalls)
	assert.Equal(t, 0, d.calls, "Fetch must not be called when latest is not after cursor")
	assert.Equal(t, 0, inserted)
}

func TestReloadStationsDoesNotLoseNewInterval(t *testing.T) {
	s := New()
	d := &fakeDownloader{name: "fake", horizon: time.Hour}
	s.Add(d)
	reg, err := registry.New(registry.NewMemStore())
	require.NoError(t, err)
	caps := connector.Capability{Registry: reg}

	require.NoError(t, s.Start(context.Background(), caps))
	require.NoError(t, s.ReloadStations(context.Background(), caps))
	require.NoError(t, s.Stop(context.Background()))
}
