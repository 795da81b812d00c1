// Package relstore implements the relational side-store sink on top of
// PostgreSQL via pgx. This is the concrete driver counterpart to
// internal/store's interface-only wide-column sink: nothing in spec
// excludes providing a real relational driver, only the wide-column
// driver's internals are out of scope.
package relstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"meteodata.example/meteodata-server/internal/model"
)

// Sink persists observations into a `observations` table keyed on
// (station_id, timestamp), using an upsert so repeated inserts for the
// same key are idempotent.
type Sink struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL using dsn (a standard libpq connection
// string or URL).
func Open(ctx context.Context, dsn string) (*Sink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("relstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("relstore: ping: %w", err)
	}
	return &Sink{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Sink) Close() {
	s.pool.Close()
}

const upsertSQL = `
INSERT INTO observations (
	station_id, ts, day,
	outside_temp, min_temp, max_temp, humidity, dew_point,
	wind_speed, wind_dir, wind_gust,
	rainfall, rain_rate, pressure, solar_rad, uv_index,
	heat_index, wind_chill, thsw, et
) VALUES (
	$1, $2, $3,
	$4, $5, $6, $7, $8,
	$9, $10, $11,
	$12, $13, $14, $15, $16,
	$17, $18, $19, $20
)
ON CONFLICT (station_id, ts) DO UPDATE SET
	outside_temp = EXCLUDED.outside_temp,
	min_temp = EXCLUDED.min_temp,
	max_temp = EXCLUDED.max_temp,
	humidity = EXCLUDED.humidity,
	dew_point = EXCLUDED.dew_point,
	wind_speed = EXCLUDED.wind_speed,
	wind_dir = EXCLUDED.wind_dir,
	wind_gust = EXCLUDED.wind_gust,
	rainfall = EXCLUDED.rainfall,
	rain_rate = EXCLUDED.rain_rate,
	pressure = EXCLUDED.pressure,
	solar_rad = EXCLUDED.solar_rad,
	uv_index = EXCLUDED.uv_index,
	heat_index = EXCLUDED.heat_index,
	wind_chill = EXCLUDED.wind_chill,
	thsw = EXCLUDED.thsw,
	et = EXCLUDED.et
`

// Insert upserts obs.
func (s *Sink) Insert(ctx context.Context, obs model.Observation) error {
	_, err := s.pool.Exec(ctx, upsertSQL,
		obs.StationID, obs.Timestamp, obs.Day,
		nullable(obs.OutsideTemp), nullable(obs.MinTemp), nullable(obs.MaxTemp),
		nullable(obs.Humidity), nullable(obs.DewPoint),
		nullable(obs.WindSpeed), nullable(obs.WindDir), nullable(obs.WindGust),
		nullable(obs.RainFall), nullable(obs.RainRate), nullable(obs.Pressure),
		nullable(obs.SolarRad), nullable(obs.UVIndex),
		nullable(obs.HeatIndex), nullable(obs.WindChill), nullable(obs.THSW), nullable(obs.ET),
	)
	if err != nil {
		return fmt.Errorf("relstore: insert %s@%s: %w", obs.StationID, obs.Timestamp, err)
	}
	return nil
}

// nullable converts an optional model.Value into a pgx-compatible *float64
// so absent quantities are written as SQL NULL rather than 0.
func nullable(v model.Value) *float64 {
	if !v.Present {
		return nil
	}
	val := v.Value
	return &val
}
