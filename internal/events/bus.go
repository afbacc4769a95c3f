// Package events fans out summary lifecycle transitions to per-job
// subscribers. The bus holds no history: a late subscriber must read the
// persisted summary instead.
package events

import (
	"context"

	"github.com/google/uuid"
)

const (
	SummaryProcessing = "summary_processing"
	SummaryCompleted  = "summary_completed"
	SummaryFailed     = "summary_failed"
	AudioGenerating   = "audio_generating"
	AudioCompleted    = "audio_completed"
	AudioFailed       = "audio_failed"
)

// Event is one lifecycle transition for a summary.
type Event struct {
	Type     string `json:"type"`
	AudioURL string `json:"audio_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Terminal reports whether subscribers should unsubscribe after this event.
func (e Event) Terminal() bool {
	switch e.Type {
	case SummaryCompleted, SummaryFailed, AudioCompleted, AudioFailed:
		return true
	}
	return false
}

// Bus is the publish/subscribe interface keyed by summary id.
// Implementations must be safe for concurrent use.
type Bus interface {
	Publish(ctx context.Context, summaryID uuid.UUID, ev Event) error
	// Subscribe returns a channel of events for one summary and an
	// unsubscribe function. The channel is closed on unsubscribe.
	Subscribe(ctx context.Context, summaryID uuid.UUID) (<-chan Event, func(), error)
}
