package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mw "github.com/tubebrief/tubebrief/internal/api/middleware"
	"github.com/tubebrief/tubebrief/internal/quota"
	"github.com/tubebrief/tubebrief/internal/service"
	"github.com/tubebrief/tubebrief/internal/store"
	"github.com/tubebrief/tubebrief/pkg/models"
)

// fakeService implements SummaryService with injectable behavior.
type fakeService struct {
	createFunc func(ctx context.Context, userID, videoID uuid.UUID) (*models.Summary, error)
	retryFunc  func(ctx context.Context, userID, summaryID uuid.UUID) (*models.Summary, error)
	audioFunc  func(ctx context.Context, userID, summaryID uuid.UUID) error
	getFunc    func(ctx context.Context, userID, summaryID uuid.UUID) (*models.Summary, error)
}

func (s *fakeService) CreateSummary(ctx context.Context, userID, videoID uuid.UUID) (*models.Summary, error) {
	return s.createFunc(ctx, userID, videoID)
}

func (s *fakeService) RetrySummary(ctx context.Context, userID, summaryID uuid.UUID) (*models.Summary, error) {
	return s.retryFunc(ctx, userID, summaryID)
}

func (s *fakeService) RequestAudio(ctx context.Context, userID, summaryID uuid.UUID) error {
	return s.audioFunc(ctx, userID, summaryID)
}

func (s *fakeService) GetSummary(ctx context.Context, userID, summaryID uuid.UUID) (*models.Summary, error) {
	return s.getFunc(ctx, userID, summaryID)
}

func pendingSummary(userID uuid.UUID) *models.Summary {
	jobID := uuid.New()
	return &models.Summary{
		ID: uuid.New(), VideoID: uuid.New(), UserID: userID,
		Status: models.SummaryStatusPending, JobID: &jobID,
		CreatedAt: time.Now().UTC(),
	}
}

// serve routes the request through chi so URL params resolve, with the user
// id already in context as the auth middleware would leave it.
func serve(t *testing.T, method, path string, body string, userID uuid.UUID, register func(r chi.Router)) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	register(r)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(mw.SetUserID(req.Context(), userID))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)["code"].(string)
}

// ─── create ─────────────────────────────────────────────────────────────────

func TestCreateSummary_Accepted(t *testing.T) {
	userID := uuid.New()
	videoID := uuid.New()
	svc := &fakeService{
		createFunc: func(_ context.Context, gotUser, gotVideo uuid.UUID) (*models.Summary, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, videoID, gotVideo)
			return pendingSummary(userID), nil
		},
	}

	w := serve(t, "POST", "/api/v1/summaries", `{"video_id": "`+videoID.String()+`"}`, userID,
		func(r chi.Router) { r.Post("/api/v1/summaries", NewCreateSummaryHandler(svc)) })

	assert.Equal(t, http.StatusAccepted, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
}

func TestCreateSummary_InvalidJSON(t *testing.T) {
	svc := &fakeService{}
	w := serve(t, "POST", "/api/v1/summaries", "{not json", uuid.New(),
		func(r chi.Router) { r.Post("/api/v1/summaries", NewCreateSummaryHandler(svc)) })

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))
}

func TestCreateSummary_InvalidVideoID(t *testing.T) {
	svc := &fakeService{}
	w := serve(t, "POST", "/api/v1/summaries", `{"video_id": "not-a-uuid"}`, uuid.New(),
		func(r chi.Router) { r.Post("/api/v1/summaries", NewCreateSummaryHandler(svc)) })

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSummary_QuotaExceeded(t *testing.T) {
	resetAt := time.Now().UTC().Add(3 * time.Hour)
	svc := &fakeService{
		createFunc: func(_ context.Context, _, _ uuid.UUID) (*models.Summary, error) {
			return nil, &quota.Error{Message: "daily summary limit reached", Limit: 3, Used: 3, ResetAt: resetAt}
		},
	}

	w := serve(t, "POST", "/api/v1/summaries", `{"video_id": "`+uuid.NewString()+`"}`, uuid.New(),
		func(r chi.Router) { r.Post("/api/v1/summaries", NewCreateSummaryHandler(svc)) })

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "QUOTA_EXCEEDED", errorCode(t, w))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, float64(3), details["limit"])
	assert.Equal(t, float64(3), details["used"])
}

func TestCreateSummary_Forbidden(t *testing.T) {
	svc := &fakeService{
		createFunc: func(_ context.Context, _, _ uuid.UUID) (*models.Summary, error) {
			return nil, service.ErrForbidden
		},
	}

	w := serve(t, "POST", "/api/v1/summaries", `{"video_id": "`+uuid.NewString()+`"}`, uuid.New(),
		func(r chi.Router) { r.Post("/api/v1/summaries", NewCreateSummaryHandler(svc)) })

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))
}

// ─── get ────────────────────────────────────────────────────────────────────

func TestGetSummary_OK(t *testing.T) {
	userID := uuid.New()
	summary := pendingSummary(userID)
	svc := &fakeService{
		getFunc: func(_ context.Context, _, summaryID uuid.UUID) (*models.Summary, error) {
			assert.Equal(t, summary.ID, summaryID)
			return summary, nil
		},
	}

	w := serve(t, "GET", "/api/v1/summaries/"+summary.ID.String(), "", userID,
		func(r chi.Router) { r.Get("/api/v1/summaries/{summaryID}", NewGetSummaryHandler(svc)) })

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetSummary_NotFound(t *testing.T) {
	svc := &fakeService{
		getFunc: func(_ context.Context, _, _ uuid.UUID) (*models.Summary, error) {
			return nil, store.ErrNotFound
		},
	}

	w := serve(t, "GET", "/api/v1/summaries/"+uuid.NewString(), "", uuid.New(),
		func(r chi.Router) { r.Get("/api/v1/summaries/{summaryID}", NewGetSummaryHandler(svc)) })

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestGetSummary_BadID(t *testing.T) {
	svc := &fakeService{}
	w := serve(t, "GET", "/api/v1/summaries/not-a-uuid", "", uuid.New(),
		func(r chi.Router) { r.Get("/api/v1/summaries/{summaryID}", NewGetSummaryHandler(svc)) })

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ─── retry ──────────────────────────────────────────────────────────────────

func TestRetrySummary_Accepted(t *testing.T) {
	userID := uuid.New()
	svc := &fakeService{
		retryFunc: func(_ context.Context, _, _ uuid.UUID) (*models.Summary, error) {
			return pendingSummary(userID), nil
		},
	}

	w := serve(t, "POST", "/api/v1/summaries/"+uuid.NewString()+"/retry", "", userID,
		func(r chi.Router) { r.Post("/api/v1/summaries/{summaryID}/retry", NewRetrySummaryHandler(svc)) })

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRetrySummary_ConflictWhileProcessing(t *testing.T) {
	svc := &fakeService{
		retryFunc: func(_ context.Context, _, _ uuid.UUID) (*models.Summary, error) {
			return nil, store.ErrConflict
		},
	}

	w := serve(t, "POST", "/api/v1/summaries/"+uuid.NewString()+"/retry", "", uuid.New(),
		func(r chi.Router) { r.Post("/api/v1/summaries/{summaryID}/retry", NewRetrySummaryHandler(svc)) })

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RETRY_CONFLICT", errorCode(t, w))
}

// ─── audio ──────────────────────────────────────────────────────────────────

func TestRequestAudio_Accepted(t *testing.T) {
	summaryID := uuid.New()
	svc := &fakeService{
		audioFunc: func(_ context.Context, _, gotID uuid.UUID) error {
			assert.Equal(t, summaryID, gotID)
			return nil
		},
	}

	w := serve(t, "POST", "/api/v1/summaries/"+summaryID.String()+"/audio", "", uuid.New(),
		func(r chi.Router) { r.Post("/api/v1/summaries/{summaryID}/audio", NewRequestAudioHandler(svc)) })

	assert.Equal(t, http.StatusAccepted, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "queued", data["status"])
}

// ─── auth context ───────────────────────────────────────────────────────────

func TestHandlers_RejectMissingUser(t *testing.T) {
	svc := &fakeService{}
	r := chi.NewRouter()
	r.Post("/api/v1/summaries", NewCreateSummaryHandler(svc))

	req := httptest.NewRequest("POST", "/api/v1/summaries", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
