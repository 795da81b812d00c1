package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"meteodata.example/meteodata-server/internal/connector"
	"meteodata.example/meteodata-server/internal/model"
)

// Binding associates a station with the broker it reaches through and the
// protocol decoder that understands its payloads.
type Binding struct {
	Broker  BrokerDetails
	Station model.Station
	Decoder Decoder
}

// MMS is the MQTT multiplexed subscriber connector: one Group per distinct
// broker-credential set, built from the bindings supplied at Start time.
type MMS struct {
	connector.Base

	mu       sync.Mutex
	bindings []Binding
	groups   map[groupKey]*Group
}

// NewMMS returns an MMS connector with no bindings; call AddBinding before
// Start.
func NewMMS() *MMS {
	return &MMS{
		Base:   connector.NewBase("mqtt"),
		groups: make(map[groupKey]*Group),
	}
}

// AddBinding registers a station to subscribe to once Start runs.
func (m *MMS) AddBinding(b Binding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings = append(m.bindings, b)
}

// Start groups bindings by broker credentials and connects one Group per
// distinct group, each subscribing to every bound station's topic.
func (m *MMS) Start(ctx context.Context, caps connector.Capability) error {
	if err := m.Transition(connector.Starting); err != nil {
		return err
	}

	insert := m.insertFunc(caps)

	m.mu.Lock()
	for _, b := range m.bindings {
		k := keyFor(b.Broker)
		g, ok := m.groups[k]
		if !ok {
			g = NewGroup(b.Broker, insert)
			m.groups[k] = g
		}
		g.Bind(b.Station, b.Decoder)
	}
	groups := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		groups = append(groups, g)
	}
	m.mu.Unlock()

	for _, g := range groups {
		if err := g.Connect(ctx); err != nil {
			return &connector.FatalError{Connector: "mqtt", Err: err}
		}
	}

	return m.Transition(connector.Running)
}

// insertFunc adapts caps.Pipeline.Insert into an InsertFunc, recording
// the error-reporting contract's last-error/last-insert state along the
// way and reporting only success back to the caller.
func (m *MMS) insertFunc(caps connector.Capability) InsertFunc {
	return func(ctx context.Context, station uuid.UUID, obs model.Observation) bool {
		result := caps.Pipeline.Insert(ctx, station, obs)
		if result.Inserted {
			m.RecordInsert(time.Now())
		}
		if result.Err != nil {
			m.RecordError(result.Err)
		}
		return result.Inserted
	}
}

// Reload disconnects every broker group, refreshes each bound station's
// record from the registry, and reconnects: the MMS equivalent of
// re-reading the station set and rebuilding the topic-to-station map
// without dropping the broker-credential grouping already established.
// Bindings themselves come from AddBinding at startup, not from the
// registry, so Reload cannot add or remove stations — only refresh the
// attributes (e.g. polling period) of the ones already bound.
func (m *MMS) Reload(ctx context.Context, caps connector.Capability) error {
	m.mu.Lock()
	groups := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		groups = append(groups, g)
	}
	m.mu.Unlock()

	for _, g := range groups {
		g.Disconnect()
	}
	for _, g := range groups {
		g.refreshBindings(caps.Registry)
		if err := g.Connect(ctx); err != nil {
			return fmt.Errorf("mqtt: reload: %w", err)
		}
	}
	return nil
}

// Stop disconnects every broker group.
func (m *MMS) Stop(ctx context.Context) error {
	if err := m.Transition(connector.Stopping); err != nil {
		return err
	}
	m.mu.Lock()
	for _, g := range m.groups {
		g.Disconnect()
	}
	m.mu.Unlock()
	return m.Transition(connector.Stopped)
}

var _ connector.Connector = (*MMS)(nil)
