package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Timer periodically purges expired receipt tokens. The read path already
// purges on access; this sweep collects tokens nobody ever fetched.
type Timer struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewTimer creates a new token purge timer.
func NewTimer(service *Service, logger *slog.Logger) *Timer {
	return &Timer{
		service:  service,
		interval: time.Minute,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the timer loop is actively running.
func (t *Timer) Running() bool {
	return t.running.Load()
}

// Start begins the purge loop. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	t.running.Store(true)
	defer t.running.Store(false)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.safePurge(ctx)
		}
	}
}

// Stop signals the timer to stop.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) safePurge(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in token purge timer", "panic", fmt.Sprint(r))
		}
	}()

	n, err := t.service.PurgeExpired(ctx, 100)
	if err != nil {
		t.logger.Warn("failed to purge expired tokens", "error", err)
		return
	}
	if n > 0 {
		t.logger.Info("purged expired receipt tokens", "count", n)
	}
}
