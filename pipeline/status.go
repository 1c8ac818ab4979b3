package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-inventory-bridge/models"
)

// StatusEvent describes a lifecycle step of one file. Status is set for
// operator-facing notifications (SUCCESS, RETRYING, FAILED) and empty for
// purely informational steps.
type StatusEvent struct {
	JobID   string
	File    string
	State   models.FileState
	Status  string
	Attempt int
	Message string
	Time    time.Time
}

// StatusReporter receives status events. Implementations must be safe for
// concurrent use; events of one file arrive from a single goroutine.
type StatusReporter interface {
	Report(ctx context.Context, event StatusEvent)
}

// StatusSender posts a notification to the consumer.
type StatusSender interface {
	SendStatus(ctx context.Context, update models.StatusUpdate) error
}

// LogReporter writes every event to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a reporter logging to logger, or slog.Default when nil.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// Report logs the event; failures log at error level.
func (r *LogReporter) Report(ctx context.Context, event StatusEvent) {
	level := slog.LevelInfo
	switch event.Status {
	case models.StatusFailed:
		level = slog.LevelError
	case models.StatusRetrying:
		level = slog.LevelWarn
	case "":
		level = slog.LevelDebug
		if event.State == models.StateIgnored || event.State == models.StateInterrupted {
			level = slog.LevelWarn
		}
	}

	attrs := []slog.Attr{
		slog.String("job_id", event.JobID),
		slog.String("file", event.File),
		slog.String("state", string(event.State)),
	}
	if event.Status != "" {
		attrs = append(attrs, slog.String("status", event.Status))
	}
	if event.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", event.Attempt))
	}
	r.logger.LogAttrs(ctx, level, event.Message, attrs...)
}

// RemoteReporter forwards notifications to the consumer's status endpoint.
// SUCCESS is only forwarded when notifySuccess is set.
type RemoteReporter struct {
	sender        StatusSender
	notifySuccess bool
	metrics       *Metrics
}

// NewRemoteReporter wraps sender.
func NewRemoteReporter(sender StatusSender, notifySuccess bool, metrics *Metrics) *RemoteReporter {
	return &RemoteReporter{sender: sender, notifySuccess: notifySuccess, metrics: metrics}
}

// Report posts the event. Delivery failures are logged and otherwise ignored.
func (r *RemoteReporter) Report(ctx context.Context, event StatusEvent) {
	switch event.Status {
	case models.StatusRetrying, models.StatusFailed:
	case models.StatusSuccess:
		if !r.notifySuccess {
			return
		}
	default:
		return
	}

	update := models.StatusUpdate{
		Type:      models.MessageTypeStatus,
		Status:    event.Status,
		Message:   event.Message,
		Timestamp: event.Time.UTC(),
	}
	if err := r.sender.SendStatus(ctx, update); err != nil {
		r.metrics.IncError("status_update")
		slog.Warn("status update not delivered",
			slog.String("file", event.File),
			slog.String("status", event.Status),
			slog.Any("error", err),
		)
	}
}

// MultiReporter fans an event out to several reporters in order.
type MultiReporter []StatusReporter

// Report forwards the event to every reporter.
func (m MultiReporter) Report(ctx context.Context, event StatusEvent) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, event)
		}
	}
}
