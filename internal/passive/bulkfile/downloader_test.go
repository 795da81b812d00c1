package bulkfile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlignToNextMark(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 7, 0, 0, time.UTC)
	wait := AlignToNextMark(now, 20*time.Minute)
	next := now.Add(wait)
	assert.Equal(t, 20, next.Minute())
}

func TestAlignToNextHour(t *testing.T) {
	now := time.Date(2026, 7, 31, 7, 15, 0, 0, time.UTC)
	wait := AlignToNextHour(now, 6)
	next := now.Add(wait)
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, now.Day()+1, next.Day())
}

func TestAlignToNextHourSameDay(t *testing.T) {
	now := time.Date(2026, 7, 31, 3, 0, 0, 0, time.UTC)
	wait := AlignToNextHour(now, 6)
	next := now.Add(wait)
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, now.Day(), next.Day())
}
