// Package model defines the uniform observation and station data shapes
// every connector normalizes into before the ingestion pipeline sees them.
package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Value is an optionally-present measured quantity. Present is false when
// the source message did not carry this field.
type Value struct {
	Present bool
	Value   float64
}

// Some returns a present Value.
func Some(v float64) Value { return Value{Present: true, Value: v} }

// Observation is the uniform record produced by every connector, keyed to
// a station and a second-precision timestamp.
type Observation struct {
	StationID uuid.UUID
	Timestamp time.Time // second precision
	Day       time.Time // derived: floor(Timestamp, 24h) in the station's timezone

	OutsideTemp  Value
	MinTemp      Value
	MaxTemp      Value
	Humidity     Value
	DewPoint     Value
	WindSpeed    Value
	WindDir      Value
	WindGust     Value
	RainFall     Value // since previous observation
	RainRate     Value
	Pressure     Value
	SolarRad     Value
	UVIndex      Value

	// Derived, computed by Derive; never set directly by connectors.
	HeatIndex Value
	WindChill Value
	THSW      Value
	ET        Value
}

// New builds an Observation with Day derived from Timestamp in loc,
// enforcing the day-bucket invariant at construction time.
func New(station uuid.UUID, timestamp time.Time, loc *time.Location) Observation {
	if loc == nil {
		loc = time.UTC
	}
	local := timestamp.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Observation{
		StationID: station,
		Timestamp: timestamp.Truncate(time.Second),
		Day:       day,
	}
}

// LooksValid reports whether the observation is acceptable for insertion:
// a parseable timestamp and at least one present quantity. It does not
// check the future-timestamp invariant; the pipeline checks that
// separately since it needs to compare against wall-clock time at
// insertion, not at construction.
func (o Observation) LooksValid() bool {
	if o.Timestamp.IsZero() {
		return false
	}
	return o.OutsideTemp.Present || o.MinTemp.Present || o.MaxTemp.Present ||
		o.Humidity.Present || o.DewPoint.Present || o.WindSpeed.Present ||
		o.WindDir.Present || o.WindGust.Present || o.RainFall.Present ||
		o.RainRate.Present || o.Pressure.Present || o.SolarRad.Present ||
		o.UVIndex.Present
}

// Derive computes the derived fields (heat index, wind chill, THSW,
// evapotranspiration) from whatever inputs are present, leaving a derived
// field absent when any of its required inputs are absent.
func Derive(o Observation) Observation {
	if o.OutsideTemp.Present && o.Humidity.Present {
		o.HeatIndex = Some(heatIndex(o.OutsideTemp.Value, o.Humidity.Value))
	}
	if o.OutsideTemp.Present && o.WindSpeed.Present {
		o.WindChill = Some(windChill(o.OutsideTemp.Value, o.WindSpeed.Value))
	}
	if o.HeatIndex.Present && o.WindSpeed.Present {
		o.THSW = Some(o.HeatIndex.Value - 0.2*o.WindSpeed.Value)
	}
	if o.OutsideTemp.Present && o.Humidity.Present && o.WindSpeed.Present && o.SolarRad.Present {
		o.ET = Some(evapotranspiration(o.OutsideTemp.Value, o.Humidity.Value, o.WindSpeed.Value, o.SolarRad.Value))
	}
	return o
}

// heatIndex implements the Rothfusz regression (NWS), valid above ~27C.
func heatIndex(tempC, rh float64) float64 {
	t := tempC*9/5 + 32 // Fahrenheit
	hi := -42.379 + 2.04901523*t + 10.14333127*rh -
		0.22475541*t*rh - 0.00683783*t*t - 0.05481717*rh*rh +
		0.00122874*t*t*rh + 0.00085282*t*rh*rh - 0.00000199*t*t*rh*rh
	return (hi - 32) * 5 / 9 // back to Celsius
}

// windChill implements the NWS wind chill formula (metric form).
func windChill(tempC, windKmh float64) float64 {
	if tempC > 10 || windKmh < 4.8 {
		return tempC
	}
	v := math.Pow(windKmh, 0.16)
	return 13.12 + 0.6215*tempC - 11.37*v + 0.3965*tempC*v
}

// evapotranspiration estimates daily reference ET (mm/day) with the
// FAO-56 Penman-Monteith equation. Unlike the original daemon's
// evapotranspiration() (which additionally takes station latitude,
// longitude, elevation and time-of-day to compute net longwave
// radiation and sun angle), this operates only on the fields a single
// Observation carries: net radiation is approximated from solar
// radiation with a fixed crop albedo of 0.23, net longwave radiation is
// not modeled, and the psychrometric constant assumes sea-level
// pressure. This trades precision for being computable per-observation.
func evapotranspiration(tempC, rh, windKmh, solarRadWm2 float64) float64 {
	windMs := windKmh / 3.6
	es := 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
	ea := es * rh / 100
	delta := 4098 * es / math.Pow(tempC+237.3, 2)
	const gamma = 0.0665 // kPa/C, sea-level psychrometric constant

	rn := (1 - 0.23) * solarRadWm2 * 0.0864 // W/m^2 -> MJ/m^2/day
	denom := delta + gamma*(1+0.34*windMs)
	radTerm := 0.408 * delta * rn / denom
	windTerm := gamma * (900 / (tempC + 273)) * windMs * (es - ea) / denom

	et := radTerm + windTerm
	if et < 0 {
		return 0
	}
	return et
}
