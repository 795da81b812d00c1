// Package connector defines the uniform lifecycle every data-collecting
// subsystem (MQTT group, periodic-poll downloader, passive listener)
// implements, and the capability set the supervisor injects into them.
package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meteodata.example/meteodata-server/internal/ingest"
	"meteodata.example/meteodata-server/internal/registry"
)

// State is a connector's lifecycle state. Transitions are linear:
// Stopped -> Starting -> Running -> Stopping -> Stopped. Reload is
// Running -> Stopping -> Starting -> Running.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Capability is the narrow set of daemon-wide services a connector is
// allowed to use. Connectors are never given a reference to the
// supervisor itself — only this capability set — so the dependency only
// ever points one way (spec's connector/supervisor decoupling).
type Capability struct {
	Registry  *registry.Registry
	Cache     *registry.Cache
	Pipeline  *ingest.Pipeline
	Publisher ingest.JobPublisher
}

// Connector is the trait every collector subsystem implements.
type Connector interface {
	// Name identifies the connector for logging, metrics and the
	// control-plane "connectors" category.
	Name() string
	// Start brings the connector from Stopped to Running. It must block
	// until startup either completes or fails; ongoing work continues in
	// background goroutines after Start returns.
	Start(ctx context.Context, caps Capability) error
	// Stop brings the connector from Running to Stopped, releasing all
	// resources. It must be safe to call on an already-stopped connector.
	Stop(ctx context.Context) error
	// Reload picks up configuration/registry changes without dropping
	// work already in flight. A connector with nothing cheaper to do may
	// implement this as DefaultReload (stop, then start again).
	Reload(ctx context.Context, caps Capability) error
	// State reports the connector's current lifecycle state.
	State() State
	// Status reports the connector's self-described status: lifecycle
	// state plus the error-reporting contract (last error, last
	// successful insertion) the control-plane "status" verb surfaces.
	Status() Status
}

// Status is a connector's self-reported health, returned by the
// control-plane "status" verb.
type Status struct {
	State        State
	LastError    string    // empty when no error has been recorded
	LastErrorAt  time.Time // zero when no error has been recorded
	LastInsertAt time.Time // zero when no observation has been inserted yet
}

// String renders the status the way the control-plane socket prints it:
// the bare state when nothing else is known, otherwise the state plus
// the last error summary and/or last successful insertion timestamp.
func (s Status) String() string {
	out := s.State.String()
	if !s.LastErrorAt.IsZero() {
		out += fmt.Sprintf("; last error: %s (at %s)", s.LastError, s.LastErrorAt.Format(time.RFC3339))
	}
	if !s.LastInsertAt.IsZero() {
		out += fmt.Sprintf("; last insert: %s", s.LastInsertAt.Format(time.RFC3339))
	}
	return out
}

// DefaultReload is the fallback Reload for connectors with no cheaper
// in-place update: stop, then start again with the same capability set,
// which naturally re-reads the registry.
func DefaultReload(ctx context.Context, c Connector, caps Capability) error {
	if err := c.Stop(ctx); err != nil {
		return fmt.Errorf("reload: stop: %w", err)
	}
	if err := c.Start(ctx, caps); err != nil {
		return fmt.Errorf("reload: start: %w", err)
	}
	return nil
}

// FatalError wraps a connector error that must escalate to the
// supervisor and terminate the process (bind failure, unrecoverable
// store connection), as opposed to an error the connector can itself
// retry past.
type FatalError struct {
	Connector string
	Err       error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("connector %s: fatal: %v", e.Connector, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Base provides the common state-machine bookkeeping (transition
// validation under a mutex) that every concrete connector embeds, the way
// the teacher's Task embeds its own state handling. It also tracks the
// error-reporting contract (last error, last successful insertion) so
// concrete connectors get Status() for free by calling RecordError and
// RecordInsert at the obvious call sites.
type Base struct {
	mu    sync.Mutex
	state State
	name  string

	lastErr      error
	lastErrAt    time.Time
	lastInsertAt time.Time
}

// NewBase returns a Base connector is Stopped.
func NewBase(name string) Base {
	return Base{name: name, state: Stopped}
}

func (b *Base) Name() string { return b.name }

func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordError records err as the connector's last-known failure, for
// Status to report. A nil err is ignored.
func (b *Base) RecordError(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastErr = err
	b.lastErrAt = time.Now()
}

// RecordInsert records at as the timestamp of a successful insertion, for
// Status to report. Out-of-order calls (an older at arriving after a
// newer one) are ignored.
func (b *Base) RecordInsert(at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if at.After(b.lastInsertAt) {
		b.lastInsertAt = at
	}
}

// Status implements the error-reporting half of the Connector contract.
func (b *Base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := Status{State: b.state, LastErrorAt: b.lastErrAt, LastInsertAt: b.lastInsertAt}
	if b.lastErr != nil {
		st.LastError = b.lastErr.Error()
	}
	return st
}

// Transition validates and applies a state change, returning an error if
// the transition is not one of the linear moves the state machine allows.
func (b *Base) Transition(to State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	valid := map[State][]State{
		Stopped:  {Starting},
		Starting: {Running, Stopped},
		Running:  {Stopping},
		Stopping: {Stopped},
	}
	for _, ok := range valid[b.state] {
		if ok == to {
			b.state = to
			return nil
		}
	}
	return fmt.Errorf("connector %s: invalid transition %s -> %s", b.name, b.state, to)
}
