package supervisor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteodata.example/meteodata-server/internal/connector"
)

type fakeConnector struct {
	connector.Base
	startCalls int
	stopCalls  int
}

func (f *fakeConnector) Start(ctx context.Context, caps connector.Capability) error {
	f.startCalls++
	return f.Transition(connector.Running)
}

func (f *fakeConnector) Stop(ctx context.Context) error {
	f.stopCalls++
	if err := f.Transition(connector.Stopping); err != nil {
		return err
	}
	return f.Transition(connector.Stopped)
}

func (f *fakeConnector) Reload(ctx context.Context, caps connector.Capability) error {
	return connector.DefaultReload(ctx, f, caps)
}

func newFakeConnector(name string) *fakeConnector {
	f := &fakeConnector{Base: connector.NewBase(name)}
	f.Transition(connector.Starting)
	return f
}

func TestSupervisorStartsAndListsConnectors(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "control.sock")
	c := newFakeConnector("mqtt")
	sv := New(map[string]connector.Connector{"mqtt": c}, connector.Capability{}, socket)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sv.Start(ctx))

	assert.Equal(t, 1, c.startCalls)
	list := sv.List()
	require.Len(t, list, 1)
	assert.Equal(t, "mqtt", list[0].Name())

	info, ok := sv.Get("mqtt")
	require.True(t, ok)
	assert.Equal(t, "running", info.State())
}

func TestSupervisorStopStopsEveryConnector(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "control.sock")
	c := newFakeConnector("vp2")
	sv := New(map[string]connector.Connector{"vp2": c}, connector.Capability{}, socket)

	ctx := context.Background()
	require.NoError(t, sv.Start(ctx))
	require.NoError(t, sv.Stop(ctx))

	assert.Equal(t, 1, c.stopCalls)
}

func TestSupervisorShutdownUnblocksRun(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "control.sock")
	c := newFakeConnector("mqtt")
	sv := New(map[string]connector.Connector{"mqtt": c}, connector.Capability{}, socket)

	ctx := context.Background()
	require.NoError(t, sv.Start(ctx))

	go func() {
		time.Sleep(10 * time.Millisecond)
		sv.Shutdown()
	}()

	done := make(chan error, 1)
	go func() { done <- sv.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}
