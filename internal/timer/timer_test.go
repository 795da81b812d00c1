package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEveryFiresRepeatedly(t *testing.T) {
	var count int32
	cancel := Every(10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	defer cancel()

	time.Sleep(55 * time.Millisecond)
	got := atomic.LoadInt32(&count)
	assert.GreaterOrEqual(t, got, int32(3))
}

func TestEveryStopsAfterCancel(t *testing.T) {
	var count int32
	cancel := Every(5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	time.Sleep(20 * time.Millisecond)
	cancel()
	after := atomic.LoadInt32(&count)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&count), "no fires after cancel")
}

func TestAfterFiresOnce(t *testing.T) {
	var count int32
	cancel := After(10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	defer cancel()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}
