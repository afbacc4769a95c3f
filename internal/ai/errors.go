package ai

import (
	"errors"

	"github.com/tubebrief/tubebrief/pkg/models"
)

// ErrRetriesExhausted replaces the last provider error once the attempt cap
// is reached, so callers can distinguish exhaustion from a one-off failure.
var ErrRetriesExhausted = errors.New("ai generation retries exhausted")

func asProviderError(err error) *models.ProviderError {
	var pe *models.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

// Retryable reports whether the error is a transient upstream condition
// (rate limit or temporary server failure). Everything else is fatal and
// propagates without retry.
func Retryable(err error) bool {
	pe := asProviderError(err)
	if pe == nil {
		return false
	}
	switch pe.StatusCode {
	case 429, 500, 503:
		return true
	}
	return false
}
