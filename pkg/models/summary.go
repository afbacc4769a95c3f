// Package models contains shared data models used across the TubeBrief codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SummaryStatusPending    = "pending"
	SummaryStatusProcessing = "processing"
	SummaryStatusCompleted  = "completed"
	SummaryStatusFailed     = "failed"
)

// Notion sync runs after a summary completes and never affects the parent
// summary's own status. Empty string means the subpipeline never ran.
const (
	NotionSyncPending = "PENDING"
	NotionSyncSuccess = "SUCCESS"
	NotionSyncFailed  = "FAILED"
)

// Summary is the unit of background work and its durable record. The API
// returns a summary id on admission; clients poll or subscribe to events
// until status is completed or failed.
type Summary struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	VideoID      uuid.UUID  `db:"video_id"      json:"video_id"`
	UserID       uuid.UUID  `db:"user_id"       json:"user_id"`
	Status       string     `db:"status"        json:"status"`
	JobID        *uuid.UUID `db:"job_id"        json:"job_id,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`

	// Content is nil until the job completes; a user-triggered retry resets
	// it back to nil before re-enqueueing.
	Content *SummaryContent `db:"content" json:"content,omitempty"`

	AudioURL         *string    `db:"audio_url"          json:"audio_url,omitempty"`
	AudioGeneratedAt *time.Time `db:"audio_generated_at" json:"audio_generated_at,omitempty"`

	NotionSyncStatus string  `db:"notion_sync_status" json:"notion_sync_status,omitempty"`
	NotionURL        *string `db:"notion_url"         json:"notion_url,omitempty"`
	NotionError      *string `db:"notion_error"       json:"notion_error,omitempty"`

	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// SummaryContent is the structured result produced by the AI provider.
type SummaryContent struct {
	Topic     string           `json:"topic"`
	KeyPoints []string         `json:"key_points"`
	Sections  []SummarySection `json:"sections"`
	Tags      []string         `json:"tags"`
}

// SummarySection summarizes one timestamped portion of the video.
type SummarySection struct {
	Timestamp string `json:"timestamp"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
}
