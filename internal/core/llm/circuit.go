package llm

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
)

// circuitBreaker stops calling a provider after repeated failures so a broken
// upstream fails items fast instead of burning the per-item budget.
type circuitBreaker struct {
	threshold           int
	resetAfter          time.Duration
	consecutiveFailures int
	openUntil           time.Time
	mu                  sync.Mutex
	logger              *zerolog.Logger
}

func newCircuitBreaker(threshold int, resetAfter time.Duration, logger *zerolog.Logger) *circuitBreaker {
	if threshold <= 0 {
		threshold = defaultCircuitThreshold
	}

	if resetAfter <= 0 {
		resetAfter = defaultCircuitTimeout
	}

	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	return &circuitBreaker{
		threshold:  threshold,
		resetAfter: resetAfter,
		logger:     logger,
	}
}

// check returns an error if the circuit is open.
func (cb *circuitBreaker) check() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if time.Now().Before(cb.openUntil) {
		return fmt.Errorf("%w until %v", coreerrors.ErrCircuitBreakerOpen, cb.openUntil)
	}

	return nil
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.threshold {
		cb.openUntil = time.Now().Add(cb.resetAfter)
		cb.logger.Warn().
			Int("consecutive_failures", cb.consecutiveFailures).
			Time("open_until", cb.openUntil).
			Msg("Circuit breaker opened")
	}
}
