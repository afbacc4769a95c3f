// Package quota enforces per-user, role-dependent consumption limits.
// Usage is virtual: it is computed on demand from summary rows inside a
// rolling 24-hour window, never stored.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tubebrief/tubebrief/internal/store"
	"github.com/tubebrief/tubebrief/pkg/models"
)

// Window is the rolling lookback used for daily-summary usage.
const Window = 24 * time.Hour

// GuestProfile and PrivilegedProfile are the two limit tiers. A guest's
// auto-refresh limit of 0 disables the feature for that role.
var (
	GuestProfile = models.RoleProfile{
		DailySummaries:      3,
		MaxChannels:         2,
		AutoRefreshChannels: 0,
	}
	PrivilegedProfile = models.RoleProfile{
		DailySummaries:      30,
		MaxChannels:         20,
		AutoRefreshChannels: 5,
	}
)

// Error is a quota rejection. Callers must surface it distinctly from
// transport or validation failures; it is never retried automatically.
type Error struct {
	Message string
	Limit   int
	Used    int
	ResetAt time.Time
}

func (e *Error) Error() string { return e.Message }

// RoleResolver maps a user to a privilege tier.
type RoleResolver interface {
	IsPrivileged(ctx context.Context, userID uuid.UUID) (bool, error)
}

// EmailListResolver resolves roles by membership of the user's email in a
// configured privileged set.
type EmailListResolver struct {
	store      store.Store
	privileged map[string]struct{}
}

func NewEmailListResolver(s store.Store, emails []string) *EmailListResolver {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		set[e] = struct{}{}
	}
	return &EmailListResolver{store: s, privileged: set}
}

func (r *EmailListResolver) IsPrivileged(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("resolve role: %w", err)
	}
	_, ok := r.privileged[user.Email]
	return ok, nil
}

// Gate evaluates admission requests against role-based limits.
type Gate struct {
	store store.Store
	roles RoleResolver
	now   func() time.Time
}

// NewGate creates a new Gate. The clock defaults to time.Now.
func NewGate(s store.Store, roles RoleResolver) *Gate {
	return &Gate{store: s, roles: roles, now: time.Now}
}

func (g *Gate) profile(ctx context.Context, userID uuid.UUID) (models.RoleProfile, bool, error) {
	privileged, err := g.roles.IsPrivileged(ctx, userID)
	if err != nil {
		return models.RoleProfile{}, false, err
	}
	if privileged {
		return PrivilegedProfile, false, nil
	}
	return GuestProfile, true, nil
}

// CheckSummaryQuota computes current usage in the rolling window. When the
// limit is reached the returned error is a *Error carrying a reset-time
// hint; the status is populated either way.
func (g *Gate) CheckSummaryQuota(ctx context.Context, userID uuid.UUID) (models.QuotaStatus, error) {
	profile, isGuest, err := g.profile(ctx, userID)
	if err != nil {
		return models.QuotaStatus{}, err
	}

	now := g.now().UTC()
	since := now.Add(-Window)

	used, err := g.store.CountSummariesSince(ctx, userID, since)
	if err != nil {
		return models.QuotaStatus{}, err
	}

	// resetAt is when the oldest row inside the window ages out, not a
	// calendar-day boundary.
	resetAt := now
	oldest, err := g.store.OldestSummarySince(ctx, userID, since)
	if err != nil {
		return models.QuotaStatus{}, err
	}
	if oldest != nil {
		resetAt = oldest.Add(Window)
	}

	status := models.QuotaStatus{
		Allowed:   used < profile.DailySummaries,
		Used:      used,
		Limit:     profile.DailySummaries,
		Remaining: max(profile.DailySummaries-used, 0),
		ResetAt:   resetAt,
		IsGuest:   isGuest,
	}

	if !status.Allowed {
		return status, &Error{
			Message: fmt.Sprintf("daily summary limit reached (%d/%d); resets in %s",
				used, profile.DailySummaries, resetHint(resetAt.Sub(now))),
			Limit:   profile.DailySummaries,
			Used:    used,
			ResetAt: resetAt,
		}
	}
	return status, nil
}

// CheckChannelLimit rejects adding a channel at or above the role's cap.
func (g *Gate) CheckChannelLimit(ctx context.Context, userID uuid.UUID) error {
	profile, _, err := g.profile(ctx, userID)
	if err != nil {
		return err
	}

	count, err := g.store.CountChannels(ctx, userID)
	if err != nil {
		return err
	}
	if count >= profile.MaxChannels {
		return &Error{
			Message: fmt.Sprintf("channel limit reached (%d/%d)", count, profile.MaxChannels),
			Limit:   profile.MaxChannels,
			Used:    count,
		}
	}
	return nil
}

// CheckAutoRefreshLimit rejects enabling auto-refresh beyond the role's cap.
// When updating an existing channel, pass its id so it is excluded from the
// count.
func (g *Gate) CheckAutoRefreshLimit(ctx context.Context, userID uuid.UUID, exclude *uuid.UUID) error {
	profile, _, err := g.profile(ctx, userID)
	if err != nil {
		return err
	}

	if profile.AutoRefreshChannels == 0 {
		return &Error{
			Message: "auto-refresh is not available for this account",
			Limit:   0,
		}
	}

	count, err := g.store.CountAutoRefreshChannels(ctx, userID, exclude)
	if err != nil {
		return err
	}
	if count >= profile.AutoRefreshChannels {
		return &Error{
			Message: fmt.Sprintf("auto-refresh channel limit reached (%d/%d)", count, profile.AutoRefreshChannels),
			Limit:   profile.AutoRefreshChannels,
			Used:    count,
		}
	}
	return nil
}

func resetHint(d time.Duration) string {
	if d < time.Minute {
		return "under a minute"
	}
	return d.Round(time.Minute).String()
}
