package restapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"meteodata.example/meteodata-server/internal/model"
)

func TestFetchReturnsNotImplemented(t *testing.T) {
	d := New("weatherlink", "https://api.weatherlink.com/v2/", "key", "secret", 24*time.Hour)
	_, more, err := d.Fetch(context.Background(), model.Station{}, time.Time{}, time.Time{}, 0)
	assert.False(t, more)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestNameAndHorizon(t *testing.T) {
	d := New("fieldclimate", "https://api.fieldclimate.com/", "k", "s", 48*time.Hour)
	assert.Equal(t, "fieldclimate", d.Name())
	assert.Equal(t, 48*time.Hour, d.Horizon())
}
