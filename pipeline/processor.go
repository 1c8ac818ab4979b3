package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-inventory-bridge/config"
	"github.com/aluiziolira/go-inventory-bridge/models"
	"github.com/aluiziolira/go-inventory-bridge/parser"
)

// Deliverer transmits one batch and classifies the result. It must not panic
// and never returns an error; failures are expressed through the outcome.
type Deliverer interface {
	Deliver(ctx context.Context, payload *models.Payload) models.DeliveryResult
}

// Job is one submitted file.
type Job struct {
	ID        string
	Path      string
	Sender    models.Sender
	Submitted time.Time
}

// Processor drives a single file through backup, parsing, delivery with
// retries, and final disposition.
type Processor struct {
	cfg        *config.Config
	normalizer *parser.Normalizer
	deliverer  Deliverer
	store      *FileStore
	reporter   StatusReporter
	retry      *retryManager
	metrics    *Metrics
}

// NewProcessor wires a processor. A nil reporter logs through slog.Default.
func NewProcessor(cfg *config.Config, normalizer *parser.Normalizer, deliverer Deliverer, reporter StatusReporter, metrics *Metrics) *Processor {
	if normalizer == nil {
		normalizer = parser.NewNormalizer(nil)
	}
	if reporter == nil {
		reporter = NewLogReporter(nil)
	}
	return &Processor{
		cfg:        cfg,
		normalizer: normalizer,
		deliverer:  deliverer,
		store:      NewFileStore(cfg),
		reporter:   reporter,
		retry:      newRetryManager(cfg, metrics),
		metrics:    metrics,
	}
}

// Store exposes the file store used for backups and dispositions.
func (p *Processor) Store() *FileStore {
	return p.store
}

type fileRun struct {
	p   *Processor
	ctx context.Context
	job Job
	res models.FileResult
}

// Process runs the lifecycle for job and returns its summary. Cancelling ctx
// interrupts a pending retry wait and leaves the file where it is.
func (p *Processor) Process(ctx context.Context, job Job) models.FileResult {
	run := &fileRun{
		p:   p,
		ctx: ctx,
		job: job,
		res: models.FileResult{
			JobID:     job.ID,
			File:      job.Path,
			Sender:    job.Sender,
			StartTime: time.Now(),
		},
	}
	run.execute()
	run.res.EndTime = time.Now()
	p.metrics.IncFile(run.res.State)
	return run.res
}

func (r *fileRun) execute() {
	name := filepath.Base(r.job.Path)
	r.transition(models.StateReceived)
	slog.Info("file received",
		slog.String("job_id", r.job.ID),
		slog.String("file", name),
		slog.String("sender", r.job.Sender.Username),
		slog.String("address", r.job.Sender.Address),
	)

	backup, err := r.p.store.Backup(r.job.Path)
	if err != nil {
		r.p.metrics.IncError("backup")
		slog.Warn("backup failed, continuing", slog.String("file", name), slog.Any("error", err))
	} else {
		r.res.BackupPath = backup
	}
	r.transition(models.StateBackedUp)

	if !r.p.cfg.Accepts(filepath.Ext(name)) {
		r.transition(models.StateIgnored)
		r.report("", 0, fmt.Sprintf("ignoring %s: extension not accepted", name))
		return
	}

	r.transition(models.StateParsing)
	table, err := parser.ReadTable(r.job.Path)
	if err != nil {
		r.p.metrics.IncError("parse")
		r.fail(0, fmt.Sprintf("could not parse %s: %v", name, err))
		return
	}
	parsed := r.p.normalizer.NormalizeTable(table)
	r.res.TotalRows = parsed.TotalRows
	r.res.Accepted = len(parsed.Vehicles)
	r.res.Skipped = len(parsed.Skipped)
	r.p.metrics.AddRows(r.res.Accepted, r.res.Skipped)
	if len(parsed.Unmapped) > 0 {
		slog.Info("unmapped columns", slog.String("file", name), slog.String("columns", strings.Join(parsed.Unmapped, ", ")))
	}
	slog.Info("file parsed",
		slog.String("file", name),
		slog.Int("rows", parsed.TotalRows),
		slog.Int("accepted", r.res.Accepted),
		slog.Int("skipped", r.res.Skipped),
	)

	payload := models.NewPayload(name, parsed)
	r.deliver(name, payload)
}

func (r *fileRun) deliver(name string, payload *models.Payload) {
	for attempt := 1; ; attempt++ {
		r.transition(models.StateDelivering)
		payload.Meta.RetryAttempt = attempt - 1

		result := r.p.deliverer.Deliver(r.ctx, payload)
		r.res.Attempts = append(r.res.Attempts, models.IngestionAttempt{
			File:       name,
			Number:     attempt,
			Outcome:    result.Outcome,
			Detail:     result.Detail,
			StatusCode: result.StatusCode,
			Duration:   result.Duration,
		})
		r.p.metrics.ObserveAttempt(result.Outcome, result.Duration)
		if result.ErrorType != "" {
			r.p.metrics.IncError(result.ErrorType)
		}

		switch result.Outcome {
		case models.OutcomeSuccess:
			r.succeed(attempt, result)
			return
		case models.OutcomeFatalFailure:
			r.fail(attempt, fmt.Sprintf("%s rejected on attempt %d: %s", name, attempt, result.Detail))
			return
		}

		// A retryable failure during shutdown is most likely the cancellation itself.
		if r.ctx.Err() != nil {
			r.interrupt(attempt)
			return
		}
		if !r.p.retry.Schedule(attempt, result.Outcome) {
			r.fail(attempt, fmt.Sprintf("%s failed after %d attempts: %s", name, attempt, result.Detail))
			return
		}

		r.transition(models.StateRetrying)
		r.report(models.StatusRetrying, attempt, fmt.Sprintf("attempt %d for %s failed, retrying in %s: %s", attempt, name, r.p.retry.backoff(), result.Detail))
		if err := r.p.retry.Wait(r.ctx); err != nil {
			r.interrupt(attempt)
			return
		}
	}
}

func (r *fileRun) succeed(attempt int, result models.DeliveryResult) {
	name := filepath.Base(r.job.Path)
	message := fmt.Sprintf("%s delivered: %d vehicles, %d skipped", name, r.res.Accepted, r.res.Skipped)

	dst, err := r.p.store.Archive(r.job.Path)
	if err != nil {
		r.dispositionFailed(err)
		message += fmt.Sprintf(" (file left in place: %v)", err)
	} else {
		r.res.Disposition = dst
	}
	if result.Stats != nil {
		message += fmt.Sprintf(" (consumer processed %d, sold %d)", result.Stats.Processed, result.Stats.Sold)
	}

	r.transition(models.StateSucceeded)
	r.report(models.StatusSuccess, attempt, message)
}

func (r *fileRun) fail(attempt int, reason string) {
	dst, err := r.p.store.Quarantine(r.job.Path)
	if err != nil {
		r.dispositionFailed(err)
		reason += fmt.Sprintf(" (file left in place: %v)", err)
	} else {
		r.res.Disposition = dst
	}

	r.transition(models.StateFailed)
	r.report(models.StatusFailed, attempt, reason)
}

func (r *fileRun) interrupt(attempt int) {
	r.transition(models.StateInterrupted)
	r.report("", attempt, fmt.Sprintf("shutdown interrupted %s after attempt %d; file left in place", filepath.Base(r.job.Path), attempt))
}

func (r *fileRun) dispositionFailed(err error) {
	r.res.DispositionErr = err
	r.p.metrics.IncError("disposition")
	slog.Error("file disposition failed",
		slog.String("file", r.job.Path),
		slog.Any("error", err),
	)
}

func (r *fileRun) transition(state models.FileState) {
	r.res.State = state
	r.res.Transitions = append(r.res.Transitions, state)
}

func (r *fileRun) report(status string, attempt int, message string) {
	// Terminal notifications still go out while the process shuts down.
	r.p.reporter.Report(context.WithoutCancel(r.ctx), StatusEvent{
		JobID:   r.job.ID,
		File:    filepath.Base(r.job.Path),
		State:   r.res.State,
		Status:  status,
		Attempt: attempt,
		Message: message,
		Time:    time.Now(),
	})
}
