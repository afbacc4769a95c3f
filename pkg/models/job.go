package models

import "github.com/google/uuid"

// SummaryJob is the payload of a summary-generation queue message.
type SummaryJob struct {
	SummaryID      uuid.UUID `json:"summary_id"`
	VideoID        uuid.UUID `json:"video_id"`
	YoutubeVideoID string    `json:"youtube_video_id"`
	UserID         uuid.UUID `json:"user_id"`
}

// AudioJob is the payload of an audio-generation queue message.
type AudioJob struct {
	SummaryID      uuid.UUID `json:"summary_id"`
	YoutubeVideoID string    `json:"youtube_video_id"`
}
