// Package liveness implements the systemd watchdog notifier: ping systemd
// at half the interval it told us to, so a hung process gets restarted
// instead of silently wedging — grounded on the original daemon's
// monitoring/watchdog.cpp.
package liveness

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"meteodata.example/meteodata-server/internal/timer"
)

// Notifier pings the systemd watchdog on a fixed cadence.
type Notifier struct {
	interval time.Duration
}

// New reads WATCHDOG_USEC and returns a Notifier ticking at half that
// interval, or nil if the variable is unset or zero — the daemon never
// synthesizes a watchdog interval systemd did not ask for.
func New() *Notifier {
	raw := os.Getenv("WATCHDOG_USEC")
	if raw == "" {
		return nil
	}
	usec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || usec <= 0 {
		slog.Warn("liveness: ignoring invalid WATCHDOG_USEC", "value", raw)
		return nil
	}
	return &Notifier{interval: time.Duration(usec) * time.Microsecond / 2}
}

// Run pings systemd every interval until ctx is cancelled. Safe to call on
// a nil *Notifier (no-op), so callers don't need a guard at every call
// site.
func (n *Notifier) Run(ctx context.Context) {
	if n == nil {
		return
	}

	cancel := timer.Every(n.interval, func(tctx context.Context) error {
		if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
			slog.Error("liveness: watchdog notify failed", "error", err)
		}
		return nil
	})

	<-ctx.Done()
	cancel()
}
