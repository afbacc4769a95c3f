package models

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse means the AI provider answered but the body did not
// parse as the expected structured shape. Never retried.
var ErrMalformedResponse = errors.New("ai provider returned malformed response")

// ProviderError is an HTTP-level failure from the generation provider.
// The status code drives retry classification.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ai provider error: status %d: %s", e.StatusCode, e.Body)
}
