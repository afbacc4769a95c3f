// Package service exposes the admission entry points consumed by the HTTP
// layer. Every entry point performs its quota and ownership checks before
// touching a queue.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tubebrief/tubebrief/internal/cache"
	"github.com/tubebrief/tubebrief/internal/quota"
	"github.com/tubebrief/tubebrief/internal/store"
	"github.com/tubebrief/tubebrief/pkg/models"
)

const statusTTL = 30 * time.Minute

// ErrForbidden means the resource exists but belongs to another user.
var ErrForbidden = errors.New("resource belongs to another user")

// Publisher is the queue side the admission service depends on.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// AdmissionService gates and enqueues summary and audio jobs.
type AdmissionService struct {
	store        store.Store
	cache        cache.Cache
	gate         *quota.Gate
	summaryQueue Publisher
	audioQueue   Publisher
	logger       *slog.Logger
}

// NewAdmissionService creates a new AdmissionService.
func NewAdmissionService(
	st store.Store,
	ca cache.Cache,
	gate *quota.Gate,
	summaryQueue Publisher,
	audioQueue Publisher,
	logger *slog.Logger,
) *AdmissionService {
	return &AdmissionService{
		store:        st,
		cache:        ca,
		gate:         gate,
		summaryQueue: summaryQueue,
		audioQueue:   audioQueue,
		logger:       logger,
	}
}

// CreateSummary admits one summarization request: quota gate, ownership
// check, pending row with its job id assigned once, then enqueue.
func (s *AdmissionService) CreateSummary(ctx context.Context, userID, videoID uuid.UUID) (*models.Summary, error) {
	if _, err := s.gate.CheckSummaryQuota(ctx, userID); err != nil {
		return nil, err
	}

	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", err)
	}
	channel, err := s.store.GetChannel(ctx, video.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("load channel: %w", err)
	}
	if channel.UserID != userID {
		return nil, ErrForbidden
	}

	jobID := uuid.New()
	summary := &models.Summary{
		ID:        uuid.New(),
		VideoID:   video.ID,
		UserID:    userID,
		Status:    models.SummaryStatusPending,
		JobID:     &jobID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("create summary: %w", err)
	}

	if err := s.enqueueSummaryJob(ctx, summary, video); err != nil {
		return nil, err
	}

	_ = s.cache.SetSummaryStatus(ctx, summary.ID, models.SummaryStatusPending, statusTTL)
	s.logger.Info("summary admitted", "summary_id", summary.ID, "video_id", video.YoutubeVideoID)
	return summary, nil
}

// RetrySummary resets a terminal (or still-pending) summary and re-submits
// a fresh job with the same summary id. The reset is conditional: a summary
// currently processing yields store.ErrConflict.
func (s *AdmissionService) RetrySummary(ctx context.Context, userID, summaryID uuid.UUID) (*models.Summary, error) {
	summary, err := s.store.GetSummary(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	if summary.UserID != userID {
		return nil, ErrForbidden
	}

	jobID := uuid.New()
	if err := s.store.ResetSummaryForRetry(ctx, summaryID, jobID); err != nil {
		return nil, err
	}

	video, err := s.store.GetVideo(ctx, summary.VideoID)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", err)
	}

	summary.Status = models.SummaryStatusPending
	summary.JobID = &jobID
	summary.Content = nil
	summary.ErrorMessage = nil
	summary.CompletedAt = nil

	if err := s.enqueueSummaryJob(ctx, summary, video); err != nil {
		return nil, err
	}

	_ = s.cache.SetSummaryStatus(ctx, summaryID, models.SummaryStatusPending, statusTTL)
	s.logger.Info("summary retry admitted", "summary_id", summaryID)
	return summary, nil
}

// RequestAudio enqueues an audio-generation job for an owned summary.
func (s *AdmissionService) RequestAudio(ctx context.Context, userID, summaryID uuid.UUID) error {
	summary, err := s.store.GetSummary(ctx, summaryID)
	if err != nil {
		return err
	}
	if summary.UserID != userID {
		return ErrForbidden
	}

	video, err := s.store.GetVideo(ctx, summary.VideoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}

	body, err := json.Marshal(models.AudioJob{
		SummaryID:      summaryID,
		YoutubeVideoID: video.YoutubeVideoID,
	})
	if err != nil {
		return fmt.Errorf("encode audio job: %w", err)
	}
	if err := s.audioQueue.Publish(ctx, body); err != nil {
		return fmt.Errorf("enqueue audio job: %w", err)
	}

	s.logger.Info("audio job admitted", "summary_id", summaryID)
	return nil
}

// GetSummary is the read path for current status and content.
func (s *AdmissionService) GetSummary(ctx context.Context, userID, summaryID uuid.UUID) (*models.Summary, error) {
	summary, err := s.store.GetSummary(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	if summary.UserID != userID {
		return nil, ErrForbidden
	}
	return summary, nil
}

func (s *AdmissionService) enqueueSummaryJob(ctx context.Context, summary *models.Summary, video *models.Video) error {
	body, err := json.Marshal(models.SummaryJob{
		SummaryID:      summary.ID,
		VideoID:        video.ID,
		YoutubeVideoID: video.YoutubeVideoID,
		UserID:         summary.UserID,
	})
	if err != nil {
		return fmt.Errorf("encode summary job: %w", err)
	}
	if err := s.summaryQueue.Publish(ctx, body); err != nil {
		return fmt.Errorf("enqueue summary job: %w", err)
	}
	return nil
}
