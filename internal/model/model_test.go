package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewDerivesDayInLocation(t *testing.T) {
	loc := time.UTC
	ts := time.Date(2026, 7, 31, 23, 30, 0, 0, loc)
	o := New(uuid.New(), ts, loc)
	assert.Equal(t, time.Date(2026, 7, 31, 0, 0, 0, 0, loc), o.Day)
}

func TestLooksValidRequiresOnePresentQuantity(t *testing.T) {
	o := New(uuid.New(), time.Now(), time.UTC)
	assert.False(t, o.LooksValid())
	o.OutsideTemp = Some(21.5)
	assert.True(t, o.LooksValid())
}

func TestLooksValidRejectsZeroTimestamp(t *testing.T) {
	var o Observation
	o.OutsideTemp = Some(21.5)
	assert.False(t, o.LooksValid())
}

func TestDeriveSkipsFieldsMissingInputs(t *testing.T) {
	o := New(uuid.New(), time.Now(), time.UTC)
	o.OutsideTemp = Some(30)
	o = Derive(o)
	assert.False(t, o.HeatIndex.Present, "heat index needs humidity too")

	o.Humidity = Some(50)
	o = Derive(o)
	assert.True(t, o.HeatIndex.Present)
}

func TestDeriveComputesETOnlyWhenAllInputsPresent(t *testing.T) {
	o := New(uuid.New(), time.Now(), time.UTC)
	o.OutsideTemp = Some(20)
	o.Humidity = Some(60)
	o.WindSpeed = Some(10)
	o = Derive(o)
	assert.False(t, o.ET.Present, "ET needs solar radiation too")

	o.SolarRad = Some(500)
	o = Derive(o)
	assert.True(t, o.ET.Present)
	assert.Greater(t, o.ET.Value, 0.0)
}
