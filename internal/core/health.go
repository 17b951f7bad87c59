package core

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/coregx/roach/internal/logger"
)

// probeTimeout bounds one health probe. A CockroachDB node that cannot answer
// SELECT 1 within it is reported unhealthy.
const probeTimeout = 5 * time.Second

// healthChecker probes the pool with SELECT 1 at a fixed interval. A node can
// accept connections before its SQL layer is ready, so a plain ping is not
// enough.
type healthChecker struct {
	db       *sql.DB
	logger   logger.Logger
	interval time.Duration

	healthy  atomic.Bool
	lastUnix atomic.Int64 // UnixNano of the last probe, 0 before the first
	failures int          // consecutive failures, owned by the probing goroutine

	cancel context.CancelFunc
	done   chan struct{}
}

func newHealthChecker(db *sql.DB, log logger.Logger, interval time.Duration) *healthChecker {
	return &healthChecker{
		db:       db,
		logger:   log,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// start runs the first probe synchronously so IsHealthy is meaningful as soon
// as Open returns, then continues in the background.
func (h *healthChecker) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	h.probe(ctx)
	go h.loop(ctx)
}

func (h *healthChecker) loop(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.probe(ctx)
		}
	}
}

func (h *healthChecker) probe(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, probeTimeout)
	defer cancel()

	var one int
	err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	if parent.Err() != nil {
		return
	}

	h.lastUnix.Store(time.Now().UnixNano())
	h.healthy.Store(err == nil)

	if err != nil {
		h.failures++
		h.logger.Warn("health probe failed",
			"error", err,
			"consecutive_failures", h.failures,
			"interval", h.interval,
		)
		return
	}
	if h.failures > 0 {
		h.logger.Info("health probe recovered", "after_failures", h.failures)
		h.failures = 0
	}
}

// shutdown stops the probe loop and waits for it to exit.
func (h *healthChecker) shutdown() {
	h.cancel()
	<-h.done
}

func (h *healthChecker) isHealthy() bool {
	return h.healthy.Load()
}

func (h *healthChecker) lastCheck() time.Time {
	n := h.lastUnix.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
