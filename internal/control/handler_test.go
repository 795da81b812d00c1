package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeServer struct{ shutdownCalled bool }

func (f *fakeServer) Shutdown() { f.shutdownCalled = true }

type fakeConnector struct {
	name         string
	state        string
	status       string
	startErr     error
	stopErr      error
	reloadErr    error
	startCalled  bool
	stopCalled   bool
	reloadCalled bool
}

func (c *fakeConnector) Name() string  { return c.name }
func (c *fakeConnector) State() string { return c.state }
func (c *fakeConnector) Status() string {
	if c.status != "" {
		return c.status
	}
	return c.state
}
func (c *fakeConnector) Start(context.Context) error {
	c.startCalled = true
	return c.startErr
}
func (c *fakeConnector) Stop(context.Context) error {
	c.stopCalled = true
	return c.stopErr
}
func (c *fakeConnector) Reload(context.Context) error {
	c.reloadCalled = true
	return c.reloadErr
}

type fakeRegistry struct{ connectors map[string]ConnectorInfo }

func (r *fakeRegistry) List() []ConnectorInfo {
	out := make([]ConnectorInfo, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c)
	}
	return out
}

func (r *fakeRegistry) Get(name string) (ConnectorInfo, bool) {
	c, ok := r.connectors[name]
	return c, ok
}

func TestGeneralHandlerShutdown(t *testing.T) {
	srv := &fakeServer{}
	h := NewGeneralHandler(srv)
	answer, ok := h.HandleQuery("general shutdown")
	assert.True(t, ok)
	assert.Equal(t, "stopped", answer)
	assert.True(t, srv.shutdownCalled)
}

func TestGeneralHandlerDefaultsToHelp(t *testing.T) {
	h := NewGeneralHandler(&fakeServer{})
	answer, ok := h.HandleQuery("general")
	assert.True(t, ok)
	assert.Contains(t, answer, "Available commands")
}

func TestGeneralHandlerIgnoresOtherCategories(t *testing.T) {
	h := NewGeneralHandler(&fakeServer{})
	_, ok := h.HandleQuery("connectors list")
	assert.False(t, ok)
}

func TestConnectorsHandlerStatus(t *testing.T) {
	reg := &fakeRegistry{connectors: map[string]ConnectorInfo{
		"mqtt": &fakeConnector{name: "mqtt", state: "running"},
	}}
	h := NewConnectorsHandler(reg)
	answer, ok := h.HandleQuery("connectors status mqtt")
	assert.True(t, ok)
	assert.Equal(t, "running", answer)
}

func TestConnectorsHandlerStatusUnknown(t *testing.T) {
	h := NewConnectorsHandler(&fakeRegistry{connectors: map[string]ConnectorInfo{}})
	answer, ok := h.HandleQuery("connectors status nope")
	assert.True(t, ok)
	assert.Contains(t, answer, "Unknown")
}

func TestConnectorsHandlerStop(t *testing.T) {
	c := &fakeConnector{name: "mqtt", state: "running"}
	reg := &fakeRegistry{connectors: map[string]ConnectorInfo{"mqtt": c}}
	h := NewConnectorsHandler(reg)
	answer, ok := h.HandleQuery("connectors stop mqtt")
	assert.True(t, ok)
	assert.Equal(t, "OK", answer)
	assert.True(t, c.stopCalled)
}

func TestChainFallsThroughToNextHandler(t *testing.T) {
	general := NewGeneralHandler(&fakeServer{})
	connectors := NewConnectorsHandler(&fakeRegistry{connectors: map[string]ConnectorInfo{}})
	answer := Chain([]Handler{general, connectors}, "connectors list")
	assert.Equal(t, "", answer)
}
