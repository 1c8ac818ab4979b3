package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/aluiziolira/go-inventory-bridge/config"
	"github.com/aluiziolira/go-inventory-bridge/models"
)

// retryManager decides whether a failed delivery gets another attempt and
// waits out the fixed backoff between attempts.
type retryManager struct {
	maxAttempts int
	delay       time.Duration
	metrics     *Metrics

	mu           sync.Mutex
	totalRetries int
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	return &retryManager{
		maxAttempts: cfg.MaxAttempts,
		delay:       cfg.RetryBackoff,
		metrics:     metrics,
	}
}

// Schedule reports whether attempt (1-based) may be followed by another one.
// Only retryable failures below the attempt limit qualify.
func (rm *retryManager) Schedule(attempt int, outcome models.Outcome) bool {
	if outcome != models.OutcomeRetryableFailure {
		return false
	}
	if attempt >= rm.maxAttempts {
		return false
	}

	rm.mu.Lock()
	rm.totalRetries++
	rm.mu.Unlock()
	rm.metrics.IncRetries()
	return true
}

// Wait blocks for the backoff delay or until ctx is done.
func (rm *retryManager) Wait(ctx context.Context) error {
	if rm.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(rm.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (rm *retryManager) backoff() time.Duration {
	return rm.delay
}

// TotalRetries returns the number of retries scheduled so far.
func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}
