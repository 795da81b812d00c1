// Package ingest implements the uniform ingestion pipeline every connector
// funnels decoded observations through: validate, insert, advance the
// station cursor, and optionally publish a post-insert job — grounded on
// the archive-processing sequence every MQTT/passive/poll connector in the
// original daemon follows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"meteodata.example/meteodata-server/internal/metrics"
	"meteodata.example/meteodata-server/internal/model"
	"meteodata.example/meteodata-server/internal/registry"
	"meteodata.example/meteodata-server/internal/store"
)

// ErrInvalidMessage means the message failed validity checks (bad
// timestamp, no present quantities) and was dropped before reaching any
// sink.
var ErrInvalidMessage = errors.New("ingest: invalid message")

// ErrSinkFailure means a sink insert failed; the station cursor is left
// untouched so the connector can retry this same observation later.
var ErrSinkFailure = errors.New("ingest: sink failure")

// ErrInvariantBreach means the observation violates a hard invariant
// (timestamp more than 24h in the future) and was dropped.
var ErrInvariantBreach = errors.New("ingest: invariant breach")

// futureTolerance is how far ahead of wall-clock time an observation's
// timestamp may be before it is rejected as an invariant breach.
const futureTolerance = 24 * time.Hour

// JobPublisher notifies interested downstream consumers (e.g. batch
// aggregation jobs) that new archive data has landed for a station. It is
// optional; connectors that have none configured pass a nil Publisher in
// Capability, and the pipeline simply skips the call.
type JobPublisher interface {
	PublishPastDataInserted(ctx context.Context, station uuid.UUID, from, to time.Time) error
}

// PostInsertHook lets a connector/decoder run logic after a successful
// insert (the VP2 MQTT decoder's periodic SETTIME reset, for instance).
type PostInsertHook interface {
	AfterInsert(ctx context.Context, station uuid.UUID, obs model.Observation) error
}

// Result reports what Insert did, for callers that want to react (e.g. the
// VP2 decoder only resets the clock after a successful insert).
type Result struct {
	Inserted      bool
	CursorAdvanced bool
	Err           error
}

// Pipeline is the uniform insert path every connector uses.
type Pipeline struct {
	Sinks     store.Sinks
	Registry  *registry.Registry
	Publisher JobPublisher // nil disables post-insert job publication
	connector string       // for metrics/logging labels
}

// New builds a Pipeline for the given connector name.
func New(connectorName string, sinks store.Sinks, reg *registry.Registry, publisher JobPublisher) *Pipeline {
	return &Pipeline{Sinks: sinks, Registry: reg, Publisher: publisher, connector: connectorName}
}

// Insert runs one observation through the full pipeline: validate, insert
// into every configured sink, advance the station cursor, and publish a
// post-insert job. On any failure, the cursor is left untouched and the
// error is returned (and logged) rather than panicking; connectors decide
// whether/how to retry.
func (p *Pipeline) Insert(ctx context.Context, station uuid.UUID, obs model.Observation) Result {
	if !obs.LooksValid() {
		metrics.ObservationsRejectedTotal.WithLabelValues(p.connector, "invalid").Inc()
		slog.Warn("ingest: dropping invalid observation", "connector", p.connector, "station", station)
		return Result{Err: ErrInvalidMessage}
	}

	if obs.Timestamp.After(time.Now().Add(futureTolerance)) {
		metrics.ObservationsRejectedTotal.WithLabelValues(p.connector, "future_timestamp").Inc()
		slog.Warn("ingest: dropping future-dated observation",
			"connector", p.connector, "station", station, "timestamp", obs.Timestamp)
		return Result{Err: ErrInvariantBreach}
	}

	obs = model.Derive(obs)

	start := time.Now()
	if err := p.Sinks.Insert(ctx, obs); err != nil {
		metrics.ObservationsRejectedTotal.WithLabelValues(p.connector, "sink_failure").Inc()
		slog.Error("ingest: sink insert failed", "connector", p.connector, "station", station, "error", err)
		return Result{Err: fmt.Errorf("%w: %v", ErrSinkFailure, err)}
	}
	metrics.SinkInsertLatencySeconds.WithLabelValues(p.connector).Observe(time.Since(start).Seconds())
	metrics.ObservationsInsertedTotal.WithLabelValues(p.connector, station.String()).Inc()

	advanced, err := p.Registry.AdvanceCursor(station, obs.Timestamp)
	if err != nil {
		slog.Error("ingest: failed to advance cursor", "connector", p.connector, "station", station, "error", err)
		return Result{Inserted: true, Err: err}
	}

	if p.Publisher != nil {
		if err := p.Publisher.PublishPastDataInserted(ctx, station, obs.Timestamp, obs.Timestamp); err != nil {
			slog.Error("ingest: job publish failed", "connector", p.connector, "station", station, "error", err)
		}
	}

	return Result{Inserted: true, CursorAdvanced: advanced}
}
