package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-inventory-bridge/config"
)

// HeartbeatSender posts a liveness signal.
type HeartbeatSender interface {
	SendHeartbeat(ctx context.Context) error
}

// Heartbeat periodically announces that the bridge is alive.
type Heartbeat struct {
	sender   HeartbeatSender
	interval time.Duration
	delay    time.Duration
	metrics  *Metrics
}

// NewHeartbeat builds the task from the configured interval and initial delay.
func NewHeartbeat(sender HeartbeatSender, cfg *config.Config, metrics *Metrics) *Heartbeat {
	return &Heartbeat{
		sender:   sender,
		interval: cfg.HeartbeatInterval,
		delay:    cfg.HeartbeatDelay,
		metrics:  metrics,
	}
}

// Run blocks until ctx is done. The first beat fires after the initial delay,
// then one per interval. A zero interval disables the task.
func (h *Heartbeat) Run(ctx context.Context) {
	if h.interval <= 0 {
		slog.Debug("heartbeat disabled")
		return
	}

	if h.delay > 0 {
		timer := time.NewTimer(h.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	h.beat(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.beat(ctx)
		}
	}
}

func (h *Heartbeat) beat(ctx context.Context) {
	if err := h.sender.SendHeartbeat(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		h.metrics.IncHeartbeat("error")
		slog.Warn("heartbeat failed", slog.Any("error", err))
		return
	}
	h.metrics.IncHeartbeat("ok")
	slog.Debug("heartbeat sent")
}
