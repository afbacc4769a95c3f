package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tubebrief/tubebrief/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, summary_tone, summary_detail, notion_access_token, notion_database_id, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.SummaryTone, &u.SummaryDetail,
		&u.NotionAccessToken, &u.NotionDatabaseID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

// --- Channels ---

func (s *PostgresStore) GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	var c models.Channel
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, youtube_channel_id, title, auto_refresh, auto_sync_notion, created_at, updated_at
		 FROM channels WHERE id = $1`, id,
	).Scan(&c.ID, &c.UserID, &c.YoutubeChannelID, &c.Title,
		&c.AutoRefresh, &c.AutoSyncNotion, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) CountChannels(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM channels WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count channels: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountAutoRefreshChannels(ctx context.Context, userID uuid.UUID, exclude *uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM channels WHERE user_id = $1 AND auto_refresh = TRUE`
	args := []any{userID}
	if exclude != nil {
		query += ` AND id != $2`
		args = append(args, *exclude)
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count auto-refresh channels: %w", err)
	}
	return count, nil
}

// --- Videos ---

func (s *PostgresStore) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	var v models.Video
	err := s.pool.QueryRow(ctx,
		`SELECT id, channel_id, youtube_video_id, title, description, transcript, published_at, created_at, updated_at
		 FROM videos WHERE id = $1`, id,
	).Scan(&v.ID, &v.ChannelID, &v.YoutubeVideoID, &v.Title, &v.Description,
		&v.Transcript, &v.PublishedAt, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return &v, nil
}

func (s *PostgresStore) UpdateVideoTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE videos SET transcript = $2, updated_at = NOW() WHERE id = $1`, id, transcript)
	if err != nil {
		return fmt.Errorf("update video transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Summaries ---

func (s *PostgresStore) CreateSummary(ctx context.Context, sum *models.Summary) error {
	content, err := marshalContent(sum.Content)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO summaries (id, video_id, user_id, status, job_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sum.ID, sum.VideoID, sum.UserID, sum.Status, sum.JobID, content, sum.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSummary(ctx context.Context, id uuid.UUID) (*models.Summary, error) {
	var sum models.Summary
	var content []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, video_id, user_id, status, job_id, error_message, content,
		        audio_url, audio_generated_at, notion_sync_status, notion_url, notion_error,
		        created_at, completed_at
		 FROM summaries WHERE id = $1`, id,
	).Scan(&sum.ID, &sum.VideoID, &sum.UserID, &sum.Status, &sum.JobID, &sum.ErrorMessage, &content,
		&sum.AudioURL, &sum.AudioGeneratedAt, &sum.NotionSyncStatus, &sum.NotionURL, &sum.NotionError,
		&sum.CreatedAt, &sum.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	if sum.Content, err = unmarshalContent(content); err != nil {
		return nil, err
	}
	return &sum, nil
}

var validTransitions = map[string][]string{
	models.SummaryStatusPending:    {models.SummaryStatusProcessing},
	models.SummaryStatusProcessing: {models.SummaryStatusCompleted, models.SummaryStatusFailed},
}

func (s *PostgresStore) UpdateSummaryStatus(ctx context.Context, id uuid.UUID, status string, opts ...SummaryUpdateOption) error {
	params := &summaryUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM summaries WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get summary status: %w", err)
	}

	valid := false
	for _, a := range validTransitions[currentStatus] {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid summary status transition: %s -> %s", currentStatus, status)
	}

	query := `UPDATE summaries SET status = $2`
	args := []any{id, status}
	argIdx := 3

	if status == models.SummaryStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, time.Now().UTC())
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}

	query += " WHERE id = $1"

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update summary status: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompleteSummary(ctx context.Context, id uuid.UUID, content models.SummaryContent) error {
	body, err := marshalContent(&content)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE summaries
		 SET status = $2, content = $3, error_message = NULL, completed_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, models.SummaryStatusCompleted, body, models.SummaryStatusProcessing)
	if err != nil {
		return fmt.Errorf("complete summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// ResetSummaryForRetry resets a summary to pending with empty content and a
// fresh job id. The status condition makes the reset idempotent for
// back-to-back retries while rejecting a retry racing an in-flight job.
func (s *PostgresStore) ResetSummaryForRetry(ctx context.Context, id uuid.UUID, jobID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE summaries
		 SET status = $2, job_id = $3, content = '{}'::jsonb, error_message = NULL, completed_at = NULL
		 WHERE id = $1 AND status IN ($2, $4, $5)`,
		id, models.SummaryStatusPending, jobID,
		models.SummaryStatusCompleted, models.SummaryStatusFailed)
	if err != nil {
		return fmt.Errorf("reset summary for retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM summaries WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check summary exists: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) UpdateSummaryAudio(ctx context.Context, id uuid.UUID, audioURL string, generatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE summaries SET audio_url = $2, audio_generated_at = $3 WHERE id = $1`,
		id, audioURL, generatedAt)
	if err != nil {
		return fmt.Errorf("update summary audio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateNotionSync(ctx context.Context, id uuid.UUID, status string, url *string, syncErr *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE summaries SET notion_sync_status = $2, notion_url = $3, notion_error = $4 WHERE id = $1`,
		id, status, url, syncErr)
	if err != nil {
		return fmt.Errorf("update notion sync: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountSummariesSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM summaries WHERE user_id = $1 AND created_at >= $2`,
		userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count summaries since: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) OldestSummarySince(ctx context.Context, userID uuid.UUID, since time.Time) (*time.Time, error) {
	var oldest time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT created_at FROM summaries WHERE user_id = $1 AND created_at >= $2
		 ORDER BY created_at ASC LIMIT 1`,
		userID, since).Scan(&oldest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("oldest summary since: %w", err)
	}
	return &oldest, nil
}

// --- Tags ---

func (s *PostgresStore) ListTopTagNames(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT t.name FROM tags t
		 LEFT JOIN summary_tags st ON st.tag_id = t.id
		 GROUP BY t.id, t.name
		 ORDER BY COUNT(st.summary_id) DESC, t.name ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list top tag names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FindOrCreateTag is idempotent so concurrent jobs suggesting the same tag
// name cannot conflict.
func (s *PostgresStore) FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	var t models.Tag
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tags (id, name, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, created_at`,
		uuid.New(), name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find or create tag: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) CreateSummaryTag(ctx context.Context, st *models.SummaryTag) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO summary_tags (summary_id, tag_id, is_confirmed, created_by, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (summary_id, tag_id) DO NOTHING`,
		st.SummaryID, st.TagID, st.IsConfirmed, st.CreatedBy)
	if err != nil {
		return fmt.Errorf("create summary tag: %w", err)
	}
	return nil
}

// --- helpers ---

func marshalContent(c *models.SummaryContent) ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal summary content: %w", err)
	}
	return body, nil
}

func unmarshalContent(raw []byte) (*models.SummaryContent, error) {
	if len(raw) == 0 || string(raw) == "{}" {
		return nil, nil
	}
	var c models.SummaryContent
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("unmarshal summary content: %w", err)
	}
	return &c, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
