package models

import (
	"time"

	"github.com/google/uuid"
)

// User owns channels and summaries. Tone and detail feed the summarization
// prompt; the notion fields are the export destination and credential.
type User struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	Email         string    `db:"email"          json:"email"`
	SummaryTone   string    `db:"summary_tone"   json:"summary_tone"`
	SummaryDetail string    `db:"summary_detail" json:"summary_detail"`

	NotionAccessToken *string `db:"notion_access_token" json:"-"`
	NotionDatabaseID  *string `db:"notion_database_id"  json:"notion_database_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasNotionExport reports whether the user can receive Notion exports.
func (u *User) HasNotionExport() bool {
	return u.NotionAccessToken != nil && *u.NotionAccessToken != "" &&
		u.NotionDatabaseID != nil && *u.NotionDatabaseID != ""
}
