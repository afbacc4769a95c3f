package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubebrief/tubebrief/internal/ai"
	"github.com/tubebrief/tubebrief/internal/ai/mock"
	"github.com/tubebrief/tubebrief/internal/cache"
	"github.com/tubebrief/tubebrief/internal/events"
	"github.com/tubebrief/tubebrief/internal/store"
	"github.com/tubebrief/tubebrief/internal/transcript"
	"github.com/tubebrief/tubebrief/pkg/models"
)

// ─── fakes ──────────────────────────────────────────────────────────────────

// fakeStore embeds the interface so only exercised methods need bodies.
type fakeStore struct {
	store.Store

	summary *models.Summary
	video   *models.Video
	user    *models.User
	channel *models.Channel
	tags    []string

	statusUpdates []string
	errorMessages []string
	completedWith *models.SummaryContent
	cachedText    string
	createdTags   []string
	summaryTags   []*models.SummaryTag
	notionUpdates []string
	notionURL     *string
	notionErr     *string
	audioURL      string

	completeErr error
}

func (s *fakeStore) GetSummary(_ context.Context, _ uuid.UUID) (*models.Summary, error) {
	if s.summary == nil {
		return nil, store.ErrNotFound
	}
	return s.summary, nil
}

func (s *fakeStore) GetVideo(_ context.Context, _ uuid.UUID) (*models.Video, error) {
	if s.video == nil {
		return nil, store.ErrNotFound
	}
	return s.video, nil
}

func (s *fakeStore) GetUser(_ context.Context, _ uuid.UUID) (*models.User, error) {
	if s.user == nil {
		return nil, store.ErrNotFound
	}
	return s.user, nil
}

func (s *fakeStore) GetChannel(_ context.Context, _ uuid.UUID) (*models.Channel, error) {
	if s.channel == nil {
		return nil, store.ErrNotFound
	}
	return s.channel, nil
}

func (s *fakeStore) UpdateSummaryStatus(_ context.Context, _ uuid.UUID, status string, opts ...store.SummaryUpdateOption) error {
	s.statusUpdates = append(s.statusUpdates, status)
	if len(opts) > 0 {
		s.errorMessages = append(s.errorMessages, "set")
	}
	return nil
}

func (s *fakeStore) CompleteSummary(_ context.Context, _ uuid.UUID, content models.SummaryContent) error {
	if s.completeErr != nil {
		return s.completeErr
	}
	s.completedWith = &content
	return nil
}

func (s *fakeStore) UpdateVideoTranscript(_ context.Context, _ uuid.UUID, text string) error {
	s.cachedText = text
	return nil
}

func (s *fakeStore) ListTopTagNames(_ context.Context, _ int) ([]string, error) {
	return s.tags, nil
}

func (s *fakeStore) FindOrCreateTag(_ context.Context, name string) (*models.Tag, error) {
	s.createdTags = append(s.createdTags, name)
	return &models.Tag{ID: uuid.New(), Name: name}, nil
}

func (s *fakeStore) CreateSummaryTag(_ context.Context, st *models.SummaryTag) error {
	s.summaryTags = append(s.summaryTags, st)
	return nil
}

func (s *fakeStore) UpdateNotionSync(_ context.Context, _ uuid.UUID, status string, url *string, syncErr *string) error {
	s.notionUpdates = append(s.notionUpdates, status)
	s.notionURL = url
	s.notionErr = syncErr
	return nil
}

func (s *fakeStore) UpdateSummaryAudio(_ context.Context, _ uuid.UUID, url string, _ time.Time) error {
	s.audioURL = url
	return nil
}

type fakeCache struct {
	cache.Cache
	statuses []string
}

func (c *fakeCache) SetSummaryStatus(_ context.Context, _ uuid.UUID, status string, _ time.Duration) error {
	c.statuses = append(c.statuses, status)
	return nil
}

type fakeFetcher struct {
	segments []models.TranscriptSegment
}

func (f *fakeFetcher) Fetch(_ context.Context, _, _ string) ([]models.TranscriptSegment, error) {
	if f.segments == nil {
		return nil, errors.New("no track")
	}
	return f.segments, nil
}

type fakeExporter struct {
	url   string
	err   error
	calls int
}

func (e *fakeExporter) CreatePage(_ context.Context, _, _ string, _ models.SummaryContent, _ *models.Video) (string, error) {
	e.calls++
	return e.url, e.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ─── fixtures ───────────────────────────────────────────────────────────────

type fixture struct {
	store    *fakeStore
	cache    *fakeCache
	exporter *fakeExporter
	bus      *events.MemoryBus
	worker   *SummaryWorker
	job      models.SummaryJob
}

func newFixture(provider models.SummaryProvider) *fixture {
	summaryID, videoID, userID, channelID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	jobID := uuid.New()

	st := &fakeStore{
		summary: &models.Summary{
			ID: summaryID, VideoID: videoID, UserID: userID,
			Status: models.SummaryStatusPending, JobID: &jobID,
		},
		video: &models.Video{
			ID: videoID, ChannelID: channelID,
			YoutubeVideoID: "yt123", Title: "A Video",
		},
		user:    &models.User{ID: userID, Email: "u@example.com", SummaryTone: "neutral"},
		channel: &models.Channel{ID: channelID, UserID: userID},
		tags:    []string{"go", "testing"},
	}
	ca := &fakeCache{}
	exp := &fakeExporter{url: "https://notion.so/page"}
	bus := events.NewMemoryBus()

	retrier := ai.NewRetrier(3, time.Millisecond)
	retrier.Sleep = func(time.Duration) {}

	acquirer := transcript.NewAcquirer(
		&fakeFetcher{segments: []models.TranscriptSegment{
			{OffsetSeconds: 0, Text: "hello"},
			{OffsetSeconds: 2, Text: "world"},
		}},
		[]string{"en"}, discardLogger())

	w := NewSummaryWorker(st, ca, acquirer, provider, retrier, exp, bus, discardLogger())

	return &fixture{
		store: st, cache: ca, exporter: exp, bus: bus, worker: w,
		job: models.SummaryJob{
			SummaryID: summaryID, VideoID: videoID,
			YoutubeVideoID: "yt123", UserID: userID,
		},
	}
}

func (f *fixture) encodedJob(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(f.job)
	require.NoError(t, err)
	return body
}

func collectEvents(t *testing.T, ch <-chan events.Event, n int) []events.Event {
	t.Helper()
	out := make([]events.Event, 0, n)
	for i := 0; i < n; i++ {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d events", len(out))
		}
	}
	return out
}

// ─── summary worker tests ───────────────────────────────────────────────────

func TestSummaryWorker_HappyPath(t *testing.T) {
	f := newFixture(mock.NewProvider())
	ch, unsubscribe, err := f.bus.Subscribe(context.Background(), f.job.SummaryID)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, f.worker.Handle(context.Background(), f.encodedJob(t)))

	// Lifecycle: processing then completion, persisted and cached.
	assert.Equal(t, []string{models.SummaryStatusProcessing}, f.store.statusUpdates)
	require.NotNil(t, f.store.completedWith)
	assert.NotEmpty(t, f.store.completedWith.Topic)
	assert.Equal(t, []string{models.SummaryStatusProcessing, models.SummaryStatusCompleted}, f.cache.statuses)

	// Transcript cached on the video row.
	assert.Equal(t, "hello\nworld", f.store.cachedText)

	// AI tags reconciled as unconfirmed suggestions.
	require.NotEmpty(t, f.store.summaryTags)
	for _, st := range f.store.summaryTags {
		assert.False(t, st.IsConfirmed)
		assert.Equal(t, models.TagCreatedByAI, st.CreatedBy)
	}

	evs := collectEvents(t, ch, 2)
	assert.Equal(t, events.SummaryProcessing, evs[0].Type)
	assert.Equal(t, events.SummaryCompleted, evs[1].Type)
}

func TestSummaryWorker_ProviderFatalErrorFailsJob(t *testing.T) {
	fatal := &models.ProviderError{StatusCode: 400, Body: "bad request"}
	f := newFixture(mock.NewFailingProvider(fatal))

	err := f.worker.Handle(context.Background(), f.encodedJob(t))
	require.Error(t, err)

	var pe *models.ProviderError
	assert.ErrorAs(t, err, &pe)
	assert.Nil(t, f.store.completedWith)
}

func TestSummaryWorker_RetriesExhausted(t *testing.T) {
	transient := &models.ProviderError{StatusCode: 503, Body: "unavailable"}
	f := newFixture(mock.NewFailingProvider(transient))

	err := f.worker.Handle(context.Background(), f.encodedJob(t))
	require.ErrorIs(t, err, ai.ErrRetriesExhausted)
}

func TestSummaryWorker_MissingSummaryIsFatal(t *testing.T) {
	f := newFixture(mock.NewProvider())
	f.store.summary = nil

	err := f.worker.Handle(context.Background(), f.encodedJob(t))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSummaryWorker_OnFailurePersistsAndPublishes(t *testing.T) {
	f := newFixture(mock.NewProvider())
	ch, unsubscribe, err := f.bus.Subscribe(context.Background(), f.job.SummaryID)
	require.NoError(t, err)
	defer unsubscribe()

	f.worker.OnFailure(context.Background(), f.encodedJob(t), errors.New("boom"))

	assert.Equal(t, []string{models.SummaryStatusFailed}, f.store.statusUpdates)
	assert.Equal(t, []string{"set"}, f.store.errorMessages)
	assert.Equal(t, []string{models.SummaryStatusFailed}, f.cache.statuses)

	ev := collectEvents(t, ch, 1)[0]
	assert.Equal(t, events.SummaryFailed, ev.Type)
	assert.Equal(t, "boom", ev.Error)
}

func TestSummaryWorker_NotionSkippedWithoutOptIn(t *testing.T) {
	f := newFixture(mock.NewProvider())
	f.store.channel.AutoSyncNotion = false

	require.NoError(t, f.worker.Handle(context.Background(), f.encodedJob(t)))
	assert.Zero(t, f.exporter.calls)
	assert.Empty(t, f.store.notionUpdates)
}

func withNotion(f *fixture) {
	token, db := "secret-token", "db-id"
	f.store.channel.AutoSyncNotion = true
	f.store.user.NotionAccessToken = &token
	f.store.user.NotionDatabaseID = &db
}

func TestSummaryWorker_NotionSuccess(t *testing.T) {
	f := newFixture(mock.NewProvider())
	withNotion(f)

	require.NoError(t, f.worker.Handle(context.Background(), f.encodedJob(t)))

	assert.Equal(t, 1, f.exporter.calls)
	assert.Equal(t, []string{models.NotionSyncPending, models.NotionSyncSuccess}, f.store.notionUpdates)
	require.NotNil(t, f.store.notionURL)
	assert.Equal(t, "https://notion.so/page", *f.store.notionURL)
}

func TestSummaryWorker_NotionFailureDoesNotFailJob(t *testing.T) {
	f := newFixture(mock.NewProvider())
	withNotion(f)
	f.exporter.err = errors.New("notion down")

	// The parent job still succeeds.
	require.NoError(t, f.worker.Handle(context.Background(), f.encodedJob(t)))

	assert.Equal(t, []string{models.NotionSyncPending, models.NotionSyncFailed}, f.store.notionUpdates)
	require.NotNil(t, f.store.notionErr)
	assert.Equal(t, "notion down", *f.store.notionErr)
	require.NotNil(t, f.store.completedWith)
}

func TestSummaryWorker_UndecodableJob(t *testing.T) {
	f := newFixture(mock.NewProvider())
	err := f.worker.Handle(context.Background(), []byte("not json"))
	require.Error(t, err)
}

func TestJoinSegments(t *testing.T) {
	text := joinSegments([]models.TranscriptSegment{
		{Text: "one"}, {Text: "two"},
	})
	assert.Equal(t, "one\ntwo", text)
}
