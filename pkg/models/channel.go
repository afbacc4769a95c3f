package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a tracked YouTube channel. AutoRefresh controls whether new
// videos auto-enqueue summaries; AutoSyncNotion controls whether completed
// summaries for this channel's videos trigger the Notion export subpipeline.
type Channel struct {
	ID               uuid.UUID `db:"id"                 json:"id"`
	UserID           uuid.UUID `db:"user_id"            json:"user_id"`
	YoutubeChannelID string    `db:"youtube_channel_id" json:"youtube_channel_id"`
	Title            string    `db:"title"              json:"title"`
	AutoRefresh      bool      `db:"auto_refresh"       json:"auto_refresh"`
	AutoSyncNotion   bool      `db:"auto_sync_notion"   json:"auto_sync_notion"`
	CreatedAt        time.Time `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"         json:"updated_at"`
}
