package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"eden-backend/application/ports"
	"eden-backend/pkg/observability"
)

// ResilienceConfig holds the guards applied around a provider.
type ResilienceConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	// Circuit breaker
	FailureThreshold float64
	MinRequests      uint32
	OpenTimeout      time.Duration
}

// DefaultResilienceConfig returns the guards used in production.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
		FailureThreshold:  0.6,
		MinRequests:       5,
		OpenTimeout:       30 * time.Second,
	}
}

// ResilientProvider wraps a Provider with a rate limiter, a per-call timeout
// and a circuit breaker, and records every call.
type ResilientProvider struct {
	inner   ports.LLMProvider
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewResilientProvider wraps inner. A non-positive RequestsPerSecond disables limiting.
func NewResilientProvider(inner ports.LLMProvider, cfg ResilienceConfig, metrics *observability.Collector, logger *zap.Logger) *ResilientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &ResilientProvider{
		inner:   inner,
		timeout: cfg.Timeout,
		metrics: metrics,
		logger:  logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-" + inner.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("LLM circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return p
}

func (p *ResilientProvider) Name() string { return p.inner.Name() }

func (p *ResilientProvider) IsAvailable() bool {
	return p.inner.IsAvailable() && p.cb.State() != gobreaker.StateOpen
}

// Complete runs the inner completion under the configured guards.
func (p *ResilientProvider) Complete(ctx context.Context, prompt string, options ports.CompletionOptions) (string, error) {
	operation := string(options.Task)
	if operation == "" {
		operation = "complete"
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.metrics.RecordLLMCall(p.Name(), operation, "rate_limited")
			return "", err
		}
	}

	start := time.Now()
	result, err := p.cb.Execute(func() (interface{}, error) {
		callCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		return p.inner.Complete(callCtx, prompt, options)
	})

	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
		err = errors.Join(ErrUnavailable, err)
	case err != nil:
		outcome = "error"
	}
	p.metrics.RecordLLMCall(p.Name(), operation, outcome)

	if err != nil {
		p.logger.Warn("LLM completion failed",
			zap.String("provider", p.Name()),
			zap.String("operation", operation),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}
	return result.(string), nil
}
