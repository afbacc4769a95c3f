package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is a YouTube video known to the system.
type Video struct {
	ID             uuid.UUID `db:"id"               json:"id"`
	ChannelID      uuid.UUID `db:"channel_id"       json:"channel_id"`
	YoutubeVideoID string    `db:"youtube_video_id" json:"youtube_video_id"`
	Title          string    `db:"title"            json:"title"`
	Description    string    `db:"description"      json:"description"`

	// Transcript caches the fetched caption text so unrelated read paths
	// do not refetch it from YouTube.
	Transcript *string `db:"transcript" json:"transcript,omitempty"`

	PublishedAt time.Time `db:"published_at" json:"published_at"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updated_at"`
}
