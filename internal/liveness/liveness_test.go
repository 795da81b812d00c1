package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReturnsNilWithoutWatchdogEnv(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	assert.Nil(t, New())
}

func TestNewReturnsNilOnInvalidWatchdogEnv(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "not-a-number")
	assert.Nil(t, New())
}

func TestNewHalvesInterval(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "2000000")
	n := New()
	if assert.NotNil(t, n) {
		assert.Equal(t, int64(1000000000), n.interval.Nanoseconds())
	}
}

func TestRunIsNilSafe(t *testing.T) {
	var n *Notifier
	n.Run(nil) // must not panic
}
