package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned while the breaker rejects calls
var ErrBreakerOpen = errors.New("llm circuit breaker open")

// BreakerProvider wraps a Provider so that a dead backend fails claims fast
// instead of each claim waiting out its own timeout. It never retries.
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerProvider trips after 5 consecutive failures and probes again after 30s
func NewBreakerProvider(next Provider, logger *zap.Logger) *BreakerProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	st := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about backend health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("LLM circuit breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BreakerProvider{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(st),
	}
}

// Name returns the wrapped provider name
func (b *BreakerProvider) Name() string {
	return b.next.Name()
}

// IsAvailable reports false while the breaker is open
func (b *BreakerProvider) IsAvailable(ctx context.Context) bool {
	if b.cb.State() == gobreaker.StateOpen {
		return false
	}
	return b.next.IsAvailable(ctx)
}

// Generate implements Provider
func (b *BreakerProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Join(ErrBreakerOpen, err)
		}
		return nil, err
	}
	return resp.(*Response), nil
}

// State exposes the breaker state for diagnostics
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}
