package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TagCreatedByAI   = "AI"
	TagCreatedByUser = "USER"
)

// Tag is a shared vocabulary entry. Names are unique across all users.
type Tag struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SummaryTag joins a summary to a tag. Provider-suggested tags start
// unconfirmed; user-entered tags are confirmed from creation.
type SummaryTag struct {
	SummaryID   uuid.UUID `db:"summary_id"   json:"summary_id"`
	TagID       uuid.UUID `db:"tag_id"       json:"tag_id"`
	IsConfirmed bool      `db:"is_confirmed" json:"is_confirmed"`
	CreatedBy   string    `db:"created_by"   json:"created_by"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}
