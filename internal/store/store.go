package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tubebrief/tubebrief/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrConflict is returned when a conditional update matched no rows, e.g. a
// retry requested while another job for the same summary is still processing.
var ErrConflict = errors.New("summary is in a conflicting state")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error

	GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	CountChannels(ctx context.Context, userID uuid.UUID) (int, error)
	CountAutoRefreshChannels(ctx context.Context, userID uuid.UUID, exclude *uuid.UUID) (int, error)

	GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error)
	UpdateVideoTranscript(ctx context.Context, id uuid.UUID, transcript string) error

	CreateSummary(ctx context.Context, s *models.Summary) error
	GetSummary(ctx context.Context, id uuid.UUID) (*models.Summary, error)
	UpdateSummaryStatus(ctx context.Context, id uuid.UUID, status string, opts ...SummaryUpdateOption) error
	CompleteSummary(ctx context.Context, id uuid.UUID, content models.SummaryContent) error
	ResetSummaryForRetry(ctx context.Context, id uuid.UUID, jobID uuid.UUID) error
	UpdateSummaryAudio(ctx context.Context, id uuid.UUID, audioURL string, generatedAt time.Time) error
	UpdateNotionSync(ctx context.Context, id uuid.UUID, status string, url *string, syncErr *string) error

	CountSummariesSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	OldestSummarySince(ctx context.Context, userID uuid.UUID, since time.Time) (*time.Time, error)

	ListTopTagNames(ctx context.Context, limit int) ([]string, error)
	FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error)
	CreateSummaryTag(ctx context.Context, st *models.SummaryTag) error
}

type summaryUpdateParams struct {
	ErrorMessage *string
}

type SummaryUpdateOption func(*summaryUpdateParams)

func WithErrorMessage(msg string) SummaryUpdateOption {
	return func(p *summaryUpdateParams) {
		p.ErrorMessage = &msg
	}
}
