package models

import "context"

// TranscriptSegment is one timestamped piece of a video's captions.
type TranscriptSegment struct {
	OffsetSeconds float64 `json:"offset_seconds"`
	Text          string  `json:"text"`
}

// SummaryRequest is the input to a summary generation call.
type SummaryRequest struct {
	Title        string
	Transcript   []TranscriptSegment
	ExistingTags []string
	Tone         string
	Detail       string
}

// SummaryProvider is the core interface all AI integrations must implement.
// Never call specific AI providers directly — always inject this interface.
type SummaryProvider interface {
	// Summarize produces a structured summary for one video.
	Summarize(ctx context.Context, req SummaryRequest) (SummaryContent, error)
	// Name returns the provider identifier (e.g., "openai", "mock").
	Name() string
}
