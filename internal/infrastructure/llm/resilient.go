package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"golang.org/x/time/rate"

	"ResearchPublisher/internal/infrastructure/ml"
	"ResearchPublisher/internal/ports"
)

const defaultBaseBackoff = time.Second

// ResilientConfig tunes rate limiting and retries.
type ResilientConfig struct {
	// RequestsPerMinute of zero disables the limiter.
	RequestsPerMinute int
	// MaxRetries counts extra attempts after the first failure.
	MaxRetries  int
	BaseBackoff time.Duration
}

// Resilient wraps a generator with a shared rate limiter and exponential backoff.
// Empty replies are returned as-is; deciding what they mean belongs to the caller.
type Resilient struct {
	next       ports.TextGenerator
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

var _ ports.TextGenerator = (*Resilient)(nil)

// NewResilient decorates next. The limiter is safe for concurrent use.
func NewResilient(next ports.TextGenerator, cfg ResilientConfig, logger *slog.Logger) *Resilient {
	r := &Resilient{
		next:       next,
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    cfg.BaseBackoff,
		sleep:      sleepContext,
		logger:     logger,
	}
	if r.backoff <= 0 {
		r.backoff = defaultBaseBackoff
	}
	if cfg.RequestsPerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return r
}

// Generate waits for the limiter, calls the wrapped generator and retries transient errors.
func (r *Resilient) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	for attempt := 0; ; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter: %w", err)
			}
		}

		text, err := r.next.Generate(ctx, prompt, params)
		if err == nil {
			return text, nil
		}

		if attempt >= r.maxRetries || !r.retryable(err) {
			if attempt > 0 {
				return "", fmt.Errorf("after %d attempts: %w", attempt+1, err)
			}
			return "", err
		}

		wait := r.backoff << attempt
		r.warn("generation failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

func (r *Resilient) retryable(err error) bool {
	retry, status := IsRetryable(err)
	if status > 0 {
		r.debug("generator returned status", "status_code", status, "retry", retry)
	}
	return retry
}

// IsRetryable classifies generator errors: rate limits, server errors and network failures are
// transient; client errors and context cancellation are not. status is 0 when unknown.
func IsRetryable(err error) (retry bool, status int) {
	if err == nil {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}

	var openaiErr *openai.Error
	var anthropicErr *anthropic.Error
	var inferenceErr *ml.StatusError
	switch {
	case errors.As(err, &openaiErr):
		status = openaiErr.StatusCode
	case errors.As(err, &anthropicErr):
		status = anthropicErr.StatusCode
	case errors.As(err, &inferenceErr):
		status = inferenceErr.StatusCode
	default:
		return true, 0
	}

	return status == 429 || status >= 500, status
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Resilient) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Resilient) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
