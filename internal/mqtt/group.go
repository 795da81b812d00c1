// Package mqtt implements the MQTT multiplexed subscriber (MMS): one
// broker session per (host, port, user, password) group, subscribing on
// behalf of every station that shares that broker's credentials, with the
// per-protocol specifics (Davis VP2, Objenious, generic JSON, ...)
// injected as a small Decoder value rather than a type hierarchy.
package mqtt

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"meteodata.example/meteodata-server/internal/metrics"
	"meteodata.example/meteodata-server/internal/model"
	"meteodata.example/meteodata-server/internal/registry"
	"meteodata.example/meteodata-server/internal/timer"
)

// clientIDPrefix matches the original daemon's MQTT client ID prefix.
const clientIDPrefix = "meteodata"

// maxImmediateRetries is how many reconnect attempts happen back-to-back
// before falling back to a timer-scheduled backoff.
const maxImmediateRetries = 3

// reconnectBackoff is the cadence for scheduled reconnect attempts once
// the immediate retries are exhausted.
const reconnectBackoff = 30 * time.Second

// BrokerDetails identifies one MQTT broker credential group.
type BrokerDetails struct {
	Host     string
	Port     int
	User     string
	Password string
	TLS      *tls.Config // nil disables TLS
}

// groupKey is the map key for the broker-group table: password is hashed
// so it never lingers in memory as plaintext longer than necessary.
type groupKey struct {
	host         string
	port         int
	user         string
	passwordHash [32]byte
}

func keyFor(d BrokerDetails) groupKey {
	return groupKey{
		host:         d.Host,
		port:         d.Port,
		user:         d.User,
		passwordHash: sha256.Sum256([]byte(d.Password)),
	}
}

// stationBinding associates one subscribed topic with the station it
// feeds and the per-protocol Decoder that understands its payloads.
type stationBinding struct {
	station model.Station
	decoder Decoder
}

// Decoder is the per-protocol capability set that parameterizes the MMS.
// A concrete decoder (Davis VP2, Objenious, generic JSON, LoRa) is a
// value implementing this interface, not a subclass — the MMS itself
// never branches on protocol name.
type Decoder interface {
	// ConnectorSuffix names this protocol for logging/metrics, e.g. "vp2".
	ConnectorSuffix() string
	// Topic returns the subscription topic for a station.
	Topic(station model.Station) string
	// DecodeMessage turns a raw broker payload into an Observation.
	DecodeMessage(topic string, payload []byte) (model.Observation, error)
	// OnSubscribed runs any protocol-specific logic right after a
	// successful subscription ack (VP2's GETTIME/SETTIME/DMPAFT kick).
	OnSubscribed(ctx context.Context, client mqtt.Client, topic string, station model.Station)
	// AfterInsert runs any protocol-specific logic after a successful
	// pipeline insert (VP2's periodic clock reset).
	AfterInsert(ctx context.Context, client mqtt.Client, topic string, station model.Station)
}

// InsertFunc is how a Group hands a decoded observation to the ingestion
// pipeline; kept as a function value so this package does not need to
// import internal/ingest directly. It reports whether the insert
// succeeded, so callers know whether a post-insert hook may fire.
type InsertFunc func(ctx context.Context, station uuid.UUID, obs model.Observation) bool

// Group is one broker session shared by every station using the same
// credentials.
type Group struct {
	details  BrokerDetails
	client   mqtt.Client
	insert   InsertFunc
	bindings map[string]stationBinding // topic -> binding

	mu       sync.Mutex
	retries  int
	cancelBackoff func()
}

// NewGroup constructs (but does not connect) a broker group.
func NewGroup(details BrokerDetails, insert InsertFunc) *Group {
	return &Group{
		details:  details,
		insert:   insert,
		bindings: make(map[string]stationBinding),
	}
}

// Bind registers a station/decoder pair to be subscribed once the group
// connects.
func (g *Group) Bind(station model.Station, decoder Decoder) {
	g.bindings[decoder.Topic(station)] = stationBinding{station: station, decoder: decoder}
}

// Connect opens the broker session with clean_session=false and QoS-1
// subscriptions to every bound topic.
func (g *Group) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", g.details.Host, g.details.Port))
	if g.details.TLS != nil {
		opts.AddBroker(fmt.Sprintf("ssl://%s:%d", g.details.Host, g.details.Port))
		opts.SetTLSConfig(g.details.TLS)
	}
	opts.SetClientID(fmt.Sprintf("%s.%x", clientIDPrefix, keyFor(g.details)))
	opts.SetUsername(g.details.User)
	opts.SetPassword(g.details.Password)
	opts.SetCleanSession(false)
	opts.SetAutoReconnect(false) // this package drives reconnects itself
	opts.SetOnConnectHandler(g.onConnect)
	opts.SetConnectionLostHandler(g.onConnectionLost)
	opts.SetDefaultPublishHandler(g.onMessage)

	g.client = mqtt.NewClient(opts)
	return g.connectWithRetries(ctx)
}

func (g *Group) connectWithRetries(ctx context.Context) error {
	var lastErr error
	for i := 0; i < maxImmediateRetries; i++ {
		token := g.client.Connect()
		if token.WaitTimeout(10 * time.Second) && token.Error() == nil {
			metrics.MQTTGroupsActive.Inc()
			return nil
		}
		lastErr = token.Error()
		slog.Warn("mqtt: connect attempt failed", "host", g.details.Host, "attempt", i+1, "error", lastErr)
	}
	// Immediate retries exhausted: schedule timer-driven reconnect and
	// report the initial failure to the caller; Stop cancels the backoff.
	g.mu.Lock()
	g.cancelBackoff = timer.Every(reconnectBackoff, func(tctx context.Context) error {
		return g.connectWithRetries(tctx)
	})
	g.mu.Unlock()
	return fmt.Errorf("mqtt: connect to %s:%d failed after %d attempts: %w", g.details.Host, g.details.Port, maxImmediateRetries, lastErr)
}

func (g *Group) onConnect(client mqtt.Client) {
	for topic, binding := range g.bindings {
		t := topic
		b := binding
		client.Subscribe(t, 1, func(c mqtt.Client, m mqtt.Message) {
			g.handleMessage(c, b, m)
		})
		g.runSubscribeHook(client, t, b)
	}
}

// runSubscribeHook calls the decoder's OnSubscribed hook with the same
// panic recovery as handleMessage, since it also runs off a paho
// callback goroutine.
func (g *Group) runSubscribeHook(client mqtt.Client, topic string, b stationBinding) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("mqtt: recovered panic in OnSubscribed", "topic", topic, "station", b.station.ID, "panic", r)
		}
	}()
	b.decoder.OnSubscribed(context.Background(), client, topic, b.station)
}

// refreshBindings re-reads each bound station's record from reg, picking
// up attribute changes (e.g. a new polling period) without touching the
// topic assignment itself — the station-refresh half of Reload.
func (g *Group) refreshBindings(reg *registry.Registry) {
	for topic, b := range g.bindings {
		if st, ok := reg.Get(b.station.ID); ok {
			b.station = st
			g.bindings[topic] = b
		}
	}
}

func (g *Group) onConnectionLost(client mqtt.Client, err error) {
	metrics.MQTTGroupsActive.Dec()
	slog.Error("mqtt: connection lost", "host", g.details.Host, "error", err)
	go func() { _ = g.connectWithRetries(context.Background()) }()
}

func (g *Group) onMessage(client mqtt.Client, msg mqtt.Message) {
	binding, ok := g.bindings[msg.Topic()]
	if !ok {
		slog.Warn("mqtt: message for unknown topic", "topic", msg.Topic())
		return
	}
	g.handleMessage(client, binding, msg)
}

// handleMessage runs on the paho client's own goroutine, so a panic here
// (a decoder bug, say) is recovered locally rather than taking the whole
// process down with it.
func (g *Group) handleMessage(client mqtt.Client, b stationBinding, msg mqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("mqtt: recovered panic handling message", "topic", msg.Topic(), "station", b.station.ID, "panic", r)
		}
	}()

	obs, err := b.decoder.DecodeMessage(msg.Topic(), msg.Payload())
	if err != nil {
		slog.Warn("mqtt: decode failed", "topic", msg.Topic(), "station", b.station.ID, "error", err)
		return
	}
	if !g.insert(context.Background(), b.station.ID, obs) {
		return
	}
	b.decoder.AfterInsert(context.Background(), client, msg.Topic(), b.station)
}

// Disconnect closes the broker session and stops any pending reconnect
// backoff.
func (g *Group) Disconnect() {
	g.mu.Lock()
	if g.cancelBackoff != nil {
		g.cancelBackoff()
		g.cancelBackoff = nil
	}
	g.mu.Unlock()
	if g.client != nil && g.client.IsConnected() {
		g.client.Disconnect(250)
		metrics.MQTTGroupsActive.Dec()
	}
}
