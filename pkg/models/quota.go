package models

import "time"

// RoleProfile is the set of numeric limits selected by a user's privilege
// tier. An AutoRefreshChannels of 0 disables the feature entirely.
type RoleProfile struct {
	DailySummaries      int
	MaxChannels         int
	AutoRefreshChannels int
}

// QuotaStatus is the result of a daily-quota check. Usage is virtual: a
// count of summaries created inside a rolling 24-hour window, with ResetAt
// derived from the oldest row in that window.
type QuotaStatus struct {
	Allowed   bool      `json:"allowed"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	IsGuest   bool      `json:"is_guest"`
}
