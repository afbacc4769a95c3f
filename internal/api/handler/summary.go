// Package handler contains the HTTP handlers for the summary pipeline.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/tubebrief/tubebrief/internal/api/middleware"
	"github.com/tubebrief/tubebrief/internal/api/response"
	"github.com/tubebrief/tubebrief/internal/quota"
	"github.com/tubebrief/tubebrief/internal/service"
	"github.com/tubebrief/tubebrief/internal/store"
	"github.com/tubebrief/tubebrief/pkg/models"
)

// SummaryService defines the admission surface the handlers depend on.
type SummaryService interface {
	CreateSummary(ctx context.Context, userID, videoID uuid.UUID) (*models.Summary, error)
	RetrySummary(ctx context.Context, userID, summaryID uuid.UUID) (*models.Summary, error)
	RequestAudio(ctx context.Context, userID, summaryID uuid.UUID) error
	GetSummary(ctx context.Context, userID, summaryID uuid.UUID) (*models.Summary, error)
}

// NewCreateSummaryHandler returns the handler for POST /api/v1/summaries.
// A successful admission responds 202: the summary itself arrives later.
func NewCreateSummaryHandler(svc SummaryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			VideoID string `json:"video_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		videoID, err := uuid.Parse(req.VideoID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "video_id must be a valid UUID", nil)
			return
		}

		summary, err := svc.CreateSummary(r.Context(), userID, videoID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, summary)
	}
}

// NewGetSummaryHandler returns the handler for GET /api/v1/summaries/{summaryID}.
func NewGetSummaryHandler(svc SummaryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		summaryID, err := uuid.Parse(chi.URLParam(r, "summaryID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "summaryID must be a valid UUID", nil)
			return
		}

		summary, err := svc.GetSummary(r.Context(), userID, summaryID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, summary)
	}
}

// NewRetrySummaryHandler returns the handler for POST
// /api/v1/summaries/{summaryID}/retry. A summary currently processing
// responds 409.
func NewRetrySummaryHandler(svc SummaryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		summaryID, err := uuid.Parse(chi.URLParam(r, "summaryID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "summaryID must be a valid UUID", nil)
			return
		}

		summary, err := svc.RetrySummary(r.Context(), userID, summaryID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, summary)
	}
}

// NewRequestAudioHandler returns the handler for POST
// /api/v1/summaries/{summaryID}/audio.
func NewRequestAudioHandler(svc SummaryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		summaryID, err := uuid.Parse(chi.URLParam(r, "summaryID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "summaryID must be a valid UUID", nil)
			return
		}

		if err := svc.RequestAudio(r.Context(), userID, summaryID); err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, map[string]string{
			"summary_id": summaryID.String(),
			"status":     "queued",
		})
	}
}

// writeServiceError maps admission errors onto the API's error envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	var quotaErr *quota.Error
	switch {
	case errors.As(err, &quotaErr):
		response.Error(w, http.StatusTooManyRequests, "QUOTA_EXCEEDED", quotaErr.Message, map[string]any{
			"limit":    quotaErr.Limit,
			"used":     quotaErr.Used,
			"reset_at": quotaErr.ResetAt,
		})
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, service.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Resource belongs to another user", nil)
	case errors.Is(err, store.ErrConflict):
		response.Error(w, http.StatusConflict, "RETRY_CONFLICT",
			"Summary is already being processed", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
