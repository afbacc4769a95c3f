package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tubebrief/tubebrief/pkg/models"
)

const defaultServerDelay = time.Second

// Retrier wraps provider calls with bounded retry and backoff. Rate limits
// (429) back off proportionally to the attempt number; transient server
// failures (500/503) wait a fixed short delay. The sleep function is
// injectable so tests run without real waiting.
type Retrier struct {
	MaxAttempts int
	BackoffBase time.Duration
	ServerDelay time.Duration
	Sleep       func(time.Duration)
}

// NewRetrier creates a Retrier using real sleeps.
func NewRetrier(maxAttempts int, backoffBase time.Duration) *Retrier {
	return &Retrier{
		MaxAttempts: maxAttempts,
		BackoffBase: backoffBase,
		ServerDelay: defaultServerDelay,
		Sleep:       time.Sleep,
	}
}

// Summarize calls the provider, retrying transient failures up to the
// attempt cap. Fatal errors propagate unchanged on the first occurrence;
// exhaustion yields ErrRetriesExhausted instead of the last provider error.
func (r *Retrier) Summarize(ctx context.Context, provider models.SummaryProvider, req models.SummaryRequest) (models.SummaryContent, error) {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		content, err := provider.Summarize(ctx, req)
		if err == nil {
			return content, nil
		}
		if !Retryable(err) {
			return models.SummaryContent{}, err
		}

		lastErr = err
		if attempt == r.MaxAttempts {
			break
		}

		delay := r.delayFor(err, attempt)
		slog.Warn("transient ai provider error, backing off",
			"attempt", attempt, "delay", delay, "error", err)
		r.Sleep(delay)
	}

	return models.SummaryContent{}, fmt.Errorf("%w after %d attempts: %v",
		ErrRetriesExhausted, r.MaxAttempts, lastErr)
}

func (r *Retrier) delayFor(err error, attempt int) time.Duration {
	if pe := asProviderError(err); pe != nil && pe.StatusCode == 429 {
		return time.Duration(attempt) * r.BackoffBase
	}
	if r.ServerDelay > 0 {
		return r.ServerDelay
	}
	return defaultServerDelay
}
