// Package worker contains the queue consumers driving the summarization
// pipeline.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tubebrief/tubebrief/internal/ai"
	"github.com/tubebrief/tubebrief/internal/cache"
	"github.com/tubebrief/tubebrief/internal/events"
	"github.com/tubebrief/tubebrief/internal/export"
	"github.com/tubebrief/tubebrief/internal/store"
	"github.com/tubebrief/tubebrief/internal/transcript"
	"github.com/tubebrief/tubebrief/pkg/models"
)

// statusTTL bounds how long cached statuses outlive their job.
const statusTTL = 30 * time.Minute

// maxTagContext caps how many existing tag names are fed to the provider.
const maxTagContext = 50

// SummaryWorker consumes summary-generation jobs and owns the summary
// lifecycle state machine.
type SummaryWorker struct {
	store       store.Store
	cache       cache.Cache
	transcripts *transcript.Acquirer
	provider    models.SummaryProvider
	retrier     *ai.Retrier
	exporter    export.Exporter
	bus         events.Bus
	logger      *slog.Logger
}

// NewSummaryWorker creates a new SummaryWorker.
func NewSummaryWorker(
	st store.Store,
	ca cache.Cache,
	transcripts *transcript.Acquirer,
	provider models.SummaryProvider,
	retrier *ai.Retrier,
	exporter export.Exporter,
	bus events.Bus,
	logger *slog.Logger,
) *SummaryWorker {
	return &SummaryWorker{
		store:       st,
		cache:       ca,
		transcripts: transcripts,
		provider:    provider,
		retrier:     retrier,
		exporter:    exporter,
		bus:         bus,
		logger:      logger.With("worker", "summary"),
	}
}

// Handle runs the full per-job stage sequence. Any returned error reaches
// the queue's failure hook, which persists the failed status; there is no
// automatic re-enqueue.
func (w *SummaryWorker) Handle(ctx context.Context, body []byte) error {
	var job models.SummaryJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode summary job: %w", err)
	}

	logger := w.logger.With("summary_id", job.SummaryID)
	logger.Info("summary job started", "video_id", job.YoutubeVideoID)

	// 1. Mark processing. The job id was recorded on admission.
	if err := w.store.UpdateSummaryStatus(ctx, job.SummaryID, models.SummaryStatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	_ = w.cache.SetSummaryStatus(ctx, job.SummaryID, models.SummaryStatusProcessing, statusTTL)
	_ = w.bus.Publish(ctx, job.SummaryID, events.Event{Type: events.SummaryProcessing})

	// 2. Load the summary and its video; a vanished record is fatal.
	if _, err := w.store.GetSummary(ctx, job.SummaryID); err != nil {
		return fmt.Errorf("load summary: %w", err)
	}
	video, err := w.store.GetVideo(ctx, job.VideoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}

	// 3. Acquire the transcript and cache it on the video for other read
	// paths. Acquire never fails; it degrades to a placeholder segment.
	segments := w.transcripts.Acquire(ctx, video.YoutubeVideoID)
	if err := w.store.UpdateVideoTranscript(ctx, video.ID, joinSegments(segments)); err != nil {
		return fmt.Errorf("cache transcript: %w", err)
	}

	// 4. Existing vocabulary as provider context, most-used first.
	tagNames, err := w.store.ListTopTagNames(ctx, maxTagContext)
	if err != nil {
		return fmt.Errorf("load tag vocabulary: %w", err)
	}

	// 5. Generate with the user's stored preferences.
	user, err := w.store.GetUser(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	content, err := w.retrier.Summarize(ctx, w.provider, models.SummaryRequest{
		Title:        video.Title,
		Transcript:   segments,
		ExistingTags: tagNames,
		Tone:         user.SummaryTone,
		Detail:       user.SummaryDetail,
	})
	if err != nil {
		return err
	}

	// 6. Persist completion.
	if err := w.store.CompleteSummary(ctx, job.SummaryID, content); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}
	_ = w.cache.SetSummaryStatus(ctx, job.SummaryID, models.SummaryStatusCompleted, statusTTL)
	_ = w.bus.Publish(ctx, job.SummaryID, events.Event{Type: events.SummaryCompleted})
	logger.Info("summary completed", "key_points", len(content.KeyPoints), "tags", len(content.Tags))

	// 7. Tag reconciliation: best-effort per tag, never fails the job.
	w.reconcileTags(ctx, job.SummaryID, content.Tags, logger)

	// 8. Notion export subpipeline: isolated from the parent job status.
	w.maybeSyncNotion(ctx, job.SummaryID, video, user, content, logger)

	return nil
}

// OnFailure is the queue failure hook: it persists the failed status and
// emits the terminal event.
func (w *SummaryWorker) OnFailure(ctx context.Context, body []byte, jobErr error) {
	var job models.SummaryJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.Error("failure hook cannot decode job", "error", err)
		return
	}

	if err := w.store.UpdateSummaryStatus(ctx, job.SummaryID, models.SummaryStatusFailed,
		store.WithErrorMessage(jobErr.Error())); err != nil {
		w.logger.Error("failure hook cannot persist status",
			"summary_id", job.SummaryID, "error", err)
	}
	_ = w.cache.SetSummaryStatus(ctx, job.SummaryID, models.SummaryStatusFailed, statusTTL)
	_ = w.bus.Publish(ctx, job.SummaryID, events.Event{
		Type:  events.SummaryFailed,
		Error: jobErr.Error(),
	})
}

func (w *SummaryWorker) reconcileTags(ctx context.Context, summaryID uuid.UUID, names []string, logger *slog.Logger) {
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}

		tag, err := w.store.FindOrCreateTag(ctx, name)
		if err != nil {
			logger.Warn("skipping tag", "tag", name, "error", err)
			continue
		}
		err = w.store.CreateSummaryTag(ctx, &models.SummaryTag{
			SummaryID:   summaryID,
			TagID:       tag.ID,
			IsConfirmed: false,
			CreatedBy:   models.TagCreatedByAI,
		})
		if err != nil {
			logger.Warn("skipping tag association", "tag", name, "error", err)
		}
	}
}

// maybeSyncNotion runs the export subpipeline when the owning channel opted
// in and the user has a destination and credential. Its status is tracked on
// the summary's notion fields and cannot mark the parent job failed.
func (w *SummaryWorker) maybeSyncNotion(ctx context.Context, summaryID uuid.UUID, video *models.Video, user *models.User, content models.SummaryContent, logger *slog.Logger) {
	channel, err := w.store.GetChannel(ctx, video.ChannelID)
	if err != nil {
		logger.Warn("notion sync skipped: channel unavailable", "error", err)
		return
	}
	if !channel.AutoSyncNotion || !user.HasNotionExport() {
		return
	}

	if err := w.store.UpdateNotionSync(ctx, summaryID, models.NotionSyncPending, nil, nil); err != nil {
		logger.Warn("notion sync skipped: cannot mark pending", "error", err)
		return
	}

	url, err := w.exporter.CreatePage(ctx, *user.NotionAccessToken, *user.NotionDatabaseID, content, video)
	if err != nil {
		msg := err.Error()
		if uerr := w.store.UpdateNotionSync(ctx, summaryID, models.NotionSyncFailed, nil, &msg); uerr != nil {
			logger.Error("cannot record notion failure", "error", uerr)
		}
		logger.Warn("notion sync failed", "error", err)
		return
	}

	if err := w.store.UpdateNotionSync(ctx, summaryID, models.NotionSyncSuccess, &url, nil); err != nil {
		logger.Error("cannot record notion success", "error", err)
		return
	}
	logger.Info("notion sync completed", "url", url)
}

// joinSegments flattens a transcript into the plain text cached on the
// video row.
func joinSegments(segments []models.TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, "\n")
}
