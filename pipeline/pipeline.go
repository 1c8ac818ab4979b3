// Package pipeline receives inbound inventory files and drives each one
// through backup, normalization, delivery and disposition on a worker pool.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aluiziolira/go-inventory-bridge/config"
	"github.com/aluiziolira/go-inventory-bridge/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrPipelineClosed is returned when Submit is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when queued jobs do not finish in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: timed out waiting for jobs to finish")
	// ErrDuplicateSubmission is returned while the same path is queued or in flight.
	ErrDuplicateSubmission = errors.New("pipeline: file already queued")
)

// drainTimeout bounds how long Close waits for queued and in-flight jobs.
var drainTimeout = 2 * time.Hour

// Pipeline runs submitted files through a Processor on a bounded worker pool.
type Pipeline struct {
	ctx       context.Context
	processor *Processor
	jobCh     chan Job
	metrics   *Metrics

	wg sync.WaitGroup

	// pending maps absolute paths of queued or in-flight files to job ids.
	// submitMu is held from reservation through enqueue, so at most one
	// blocked Submit holds a key beyond the queue and the workers.
	pending  *lru.Cache[string, string]
	submitMu sync.Mutex

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy

	stats stats

	resultMu sync.RWMutex
	onResult func(models.FileResult)

	mu      sync.Mutex // guards closed/started
	closed  bool
	started bool

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline whose queue holds cfg.QueueSize jobs. ctx is
// handed to every job; cancelling it interrupts pending retries.
func NewPipeline(ctx context.Context, processor *Processor, cfg *config.Config) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	// Queued jobs, running jobs and the one Submit waiting for queue space
	// each hold an entry, so the cache never evicts a live path.
	pending, err := lru.New[string, string](queueSize + max(cfg.Workers, 1) + 1)
	if err != nil {
		panic(fmt.Sprintf("pipeline: create pending cache: %v", err))
	}
	return &Pipeline{
		ctx:       ctx,
		processor: processor,
		jobCh:     make(chan Job, queueSize),
		metrics:   processor.metrics,
		pending:   pending,
		entropy:   ulid.Monotonic(rand.Reader, 0),
		stats:     newStats(),
		shutdown:  make(chan struct{}),
	}
}

// Start launches worker goroutines. Calling it more than once has no effect.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed || p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// OnResult registers a callback invoked with every finished file. It runs on
// the worker goroutine.
func (p *Pipeline) OnResult(fn func(models.FileResult)) {
	p.resultMu.Lock()
	p.onResult = fn
	p.resultMu.Unlock()
}

// Submit queues a file and returns its job id. It blocks while the queue is
// full; concurrent callers wait their turn.
func (p *Pipeline) Submit(path string, sender models.Sender) (string, error) {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()

	if p.isClosed() {
		return "", ErrPipelineClosed
	}

	key := pendingKey(path)
	id := p.newID()
	if existing, found, _ := p.pending.PeekOrAdd(key, id); found {
		p.stats.addDuplicate()
		slog.Warn("duplicate submission ignored",
			slog.String("file", path),
			slog.String("job_id", existing),
		)
		return "", fmt.Errorf("%w: %s", ErrDuplicateSubmission, filepath.Base(path))
	}

	job := Job{ID: id, Path: path, Sender: sender, Submitted: time.Now()}
	if err := p.enqueue(job); err != nil {
		p.pending.Remove(key)
		return "", err
	}
	p.stats.addSubmitted()
	return id, nil
}

// Close stops accepting files and waits for queued and in-flight jobs.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.jobCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(drainTimeout):
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, drainTimeout)
	}
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	snapshot := p.stats.snapshot()
	snapshot["pending"] = p.pending.Len()
	snapshot["retries"] = p.processor.retry.TotalRetries()
	return snapshot
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for job := range p.jobCh {
		p.run(job)
	}
}

func (p *Pipeline) run(job Job) {
	var result models.FileResult
	if p.ctx.Err() != nil {
		// Shutdown before the job started: leave the file untouched.
		result = models.FileResult{
			JobID:       job.ID,
			File:        job.Path,
			Sender:      job.Sender,
			State:       models.StateInterrupted,
			Transitions: []models.FileState{models.StateInterrupted},
			StartTime:   time.Now(),
			EndTime:     time.Now(),
		}
		p.metrics.IncFile(result.State)
	} else {
		p.metrics.jobStarted()
		result = p.processor.Process(p.ctx, job)
		p.metrics.jobFinished()
	}

	// The path may be submitted again once its job is done.
	p.pending.Remove(pendingKey(job.Path))
	p.stats.addResult(result.State)

	p.resultMu.RLock()
	fn := p.onResult
	p.resultMu.RUnlock()
	if fn != nil {
		fn(result)
	}
}

func (p *Pipeline) enqueue(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.jobCh <- job:
		return nil
	}
}

func pendingKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (p *Pipeline) newID() string {
	p.idMu.Lock()
	defer p.idMu.Unlock()
	return ulid.MustNew(ulid.Now(), p.entropy).String()
}

func (p *Pipeline) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type stats struct {
	mu         sync.Mutex
	submitted  int64
	duplicates int64
	completed  int64
	states     map[string]int
}

func newStats() stats {
	return stats{
		states: make(map[string]int),
	}
}

func (s *stats) addSubmitted() {
	s.mu.Lock()
	s.submitted++
	s.mu.Unlock()
}

func (s *stats) addDuplicate() {
	s.mu.Lock()
	s.duplicates++
	s.mu.Unlock()
}

func (s *stats) addResult(state models.FileState) {
	s.mu.Lock()
	s.completed++
	s.states[string(state)]++
	s.mu.Unlock()
}

func (s *stats) snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	copyStates := make(map[string]int, len(s.states))
	for k, v := range s.states {
		copyStates[k] = v
	}

	return map[string]interface{}{
		"submitted_files": s.submitted,
		"duplicate_files": s.duplicates,
		"completed_files": s.completed,
		"files_by_state":  copyStates,
	}
}
