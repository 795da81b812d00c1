package control

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ConnectorInfo is the subset of a running connector the control plane is
// allowed to act on.
type ConnectorInfo interface {
	Name() string
	State() string
	// Status is the last-known status string the "status" verb reports:
	// lifecycle state plus last error summary and last successful
	// insertion timestamp, when known.
	Status() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reload(ctx context.Context) error
}

// ConnectorRegistry looks up connectors by name for the "connectors"
// category. The supervisor implements this; the control package never
// imports internal/supervisor.
type ConnectorRegistry interface {
	List() []ConnectorInfo
	Get(name string) (ConnectorInfo, bool)
}

const connectorsHelp = `The "connectors" queries are used to get information and act
on the various components in charge of retrieving weather data. There is
one connector for each way of getting the data, be it an API, a proprietary
protocol, etc.

Available options :
- list: list the active connectors
- status <connector>: gives the latest status of the connector identified by its name
- start <connector>: starts a connector previously stopped
- stop <connector>: stop an active connector
- reload <connector>: make a connector reload its configuration and list of stations
- help: displays this message`

// opTimeout bounds how long a start/stop/reload invoked from the control
// plane may block the session handling it.
const opTimeout = 6 * time.Second

// ConnectorsHandler answers the "connectors" category.
type ConnectorsHandler struct {
	baseHandler
	registry ConnectorRegistry
}

// NewConnectorsHandler builds the "connectors" handler bound to registry.
func NewConnectorsHandler(registry ConnectorRegistry) *ConnectorsHandler {
	h := &ConnectorsHandler{baseHandler: newBaseHandler("connectors", "list"), registry: registry}
	h.register("list", h.list)
	h.register("status", h.status)
	h.register("help", h.help)
	h.register("start", h.start)
	h.register("stop", h.stop)
	h.register("reload", h.reload)
	return h
}

func (h *ConnectorsHandler) list(string) string {
	var sb strings.Builder
	for _, c := range h.registry.List() {
		sb.WriteString(c.Name())
		sb.WriteString("\n")
	}
	return sb.String()
}

func (h *ConnectorsHandler) help(string) string {
	return connectorsHelp
}

func (h *ConnectorsHandler) status(name string) string {
	c, ok := h.registry.Get(name)
	if !ok {
		return fmt.Sprintf("Unknown or unavailable connector %q", name)
	}
	return c.Status()
}

func (h *ConnectorsHandler) start(name string) string {
	return h.callOnConnector(name, func(ctx context.Context, c ConnectorInfo) error { return c.Start(ctx) })
}

func (h *ConnectorsHandler) stop(name string) string {
	return h.callOnConnector(name, func(ctx context.Context, c ConnectorInfo) error { return c.Stop(ctx) })
}

func (h *ConnectorsHandler) reload(name string) string {
	return h.callOnConnector(name, func(ctx context.Context, c ConnectorInfo) error { return c.Reload(ctx) })
}

func (h *ConnectorsHandler) callOnConnector(name string, action func(context.Context, ConnectorInfo) error) string {
	c, ok := h.registry.Get(name)
	if !ok {
		return fmt.Sprintf("Unknown or unavailable connector %q", name)
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := action(ctx, c); err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return "OK"
}

var _ Handler = (*ConnectorsHandler)(nil)
