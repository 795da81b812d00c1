// Package vp2tcp implements the passive TCP connector: a long-lived
// listener that hands each accepted connection to its own per-connection
// handshake/download/insert state machine, continuing to accept new
// connections immediately after handoff. The Vantage Pro2 wire handshake
// and binary archive format are out of scope; this package implements the
// listener lifecycle and the call sites the (stubbed) decoder plugs into.
package vp2tcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"meteodata.example/meteodata-server/internal/connector"
	"meteodata.example/meteodata-server/internal/decoder/vp2"
	"meteodata.example/meteodata-server/internal/model"
	"meteodata.example/meteodata-server/internal/registry"
)

// StationLookup resolves a connecting client to a known station, e.g. by
// an identifier exchanged during the handshake. Out of scope to implement
// fully here; a reference lookup-by-address is provided as DefaultLookup.
type StationLookup func(ctx context.Context, reg *registry.Registry, conn net.Conn) (model.Station, bool)

// DefaultLookup resolves the connecting station by its remote IP, the
// simplest binding scheme and the one the reference implementation uses
// for the in-memory/test registry.
func DefaultLookup(ctx context.Context, reg *registry.Registry, conn net.Conn) (model.Station, bool) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return model.Station{}, false
	}
	for _, st := range reg.All() {
		if st.Name == host {
			return st, true
		}
	}
	return model.Station{}, false
}

// Listener is the passive VP2 TCP connector.
type Listener struct {
	connector.Base

	addr     string
	lookup   StationLookup
	listener net.Listener

	mu   sync.Mutex
	wg   sync.WaitGroup
	done chan struct{}
}

// New builds a Listener bound to addr (e.g. ":5886").
func New(addr string, lookup StationLookup) *Listener {
	if lookup == nil {
		lookup = DefaultLookup
	}
	return &Listener{Base: connector.NewBase("vp2tcp"), addr: addr, lookup: lookup}
}

// Start implements connector.Connector.
func (l *Listener) Start(ctx context.Context, caps connector.Capability) error {
	if err := l.Transition(connector.Starting); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return &connector.FatalError{Connector: "vp2tcp", Err: fmt.Errorf("listen on %s: %w", l.addr, err)}
	}
	l.listener = ln
	l.done = make(chan struct{})

	go l.acceptLoop(ctx, caps)

	return l.Transition(connector.Running)
}

func (l *Listener) acceptLoop(ctx context.Context, caps connector.Capability) {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				slog.Error("vp2tcp: accept failed", "error", err)
				continue
			}
		}
		l.wg.Add(1)
		go l.handleConnection(ctx, caps, conn)
	}
}

// handleConnection runs the per-connection handshake/download/insert
// state machine. The handshake and archive-retrieval protocol themselves
// are out of scope; this implements the lifecycle around the
// (unimplemented) decode step so the listener's behavior — one goroutine
// per connection, continued accepting, clean teardown — is fully real.
func (l *Listener) handleConnection(ctx context.Context, caps connector.Capability, conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("vp2tcp: recovered panic handling connection", "remote", conn.RemoteAddr(), "panic", r)
			l.RecordError(fmt.Errorf("panic: %v", r))
		}
	}()

	station, ok := l.lookup(ctx, caps.Registry, conn)
	if !ok {
		slog.Warn("vp2tcp: connection from unknown station", "remote", conn.RemoteAddr())
		return
	}

	reader := bufio.NewReader(conn)
	record := make([]byte, vp2.ArchiveRecordSize)
	for {
		if _, err := io.ReadFull(reader, record); err != nil {
			return
		}
		obs, err := vp2.DecodeArchiveRecord(record)
		if err != nil {
			slog.Debug("vp2tcp: record not decoded", "station", station.ID, "error", err)
			continue
		}
		result := caps.Pipeline.Insert(ctx, station.ID, obs)
		if result.Inserted {
			l.RecordInsert(time.Now())
		}
		if result.Err != nil {
			l.RecordError(result.Err)
		}
	}
}

// Reload is a no-op: every accepted connection resolves its station via
// a fresh registry lookup (see lookup/DefaultLookup), so there is no
// cached station list here for a reload to swap out.
func (l *Listener) Reload(ctx context.Context, caps connector.Capability) error {
	return nil
}

// Stop closes the listener and waits for in-flight connections to drain.
func (l *Listener) Stop(ctx context.Context) error {
	if err := l.Transition(connector.Stopping); err != nil {
		return err
	}
	l.mu.Lock()
	if l.listener != nil {
		close(l.done)
		l.listener.Close()
	}
	l.mu.Unlock()
	l.wg.Wait()
	return l.Transition(connector.Stopped)
}

var _ connector.Connector = (*Listener)(nil)
