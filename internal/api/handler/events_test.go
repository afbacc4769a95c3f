package handler

import (
	"context"
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
	"github.com/tubebrief/tubebrief/internal/events"
	"github.com/tubebrief/tubebrief/internal/service"
	"github.com/tubebrief/tubebrief/pkg/models"
)

func eventsRequest(summaryID, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest("GET", "/api/v1/summaries/"+summaryID.String()+"/events", nil)
	return req.WithContext(mw.SetUserID(req.Context(), userID))
}

func eventsRouter(h http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Get("/api/v1/summaries/{summaryID}/events", h)
	return r
}

func TestSummaryEvents_TerminalSnapshotEndsStream(t *testing.T) {
	userID := uuid.New()
	summary := pendingSummary(userID)
	summary.Status = models.SummaryStatusCompleted
	svc := &fakeService{
		getFunc: func(_ context.Context, _, _ uuid.UUID) (*models.Summary, error) {
			return summary, nil
		},
	}
	bus := events.NewMemoryBus()

	w := httptest.NewRecorder()
	eventsRouter(NewSummaryEventsHandler(svc, bus)).ServeHTTP(w, eventsRequest(summary.ID, userID))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	// One snapshot event, then the handler returns because completed is
	// terminal.
	assert.Contains(t, w.Body.String(), "event: summary_completed")
}

func TestSummaryEvents_FailedSnapshotCarriesError(t *testing.T) {
	userID := uuid.New()
	summary := pendingSummary(userID)
	summary.Status = models.SummaryStatusFailed
	msg := "provider exploded"
	summary.ErrorMessage = &msg
	svc := &fakeService{
		getFunc: func(_ context.Context, _, _ uuid.UUID) (*models.Summary, error) {
			return summary, nil
		},
	}

	w := httptest.NewRecorder()
	eventsRouter(NewSummaryEventsHandler(svc, events.NewMemoryBus())).
		ServeHTTP(w, eventsRequest(summary.ID, userID))

	body := w.Body.String()
	assert.Contains(t, body, "event: summary_failed")
	assert.Contains(t, body, "provider exploded")
}

func TestSummaryEvents_StreamsUntilTerminalEvent(t *testing.T) {
	userID := uuid.New()
	summary := pendingSummary(userID)
	svc := &fakeService{
		getFunc: func(_ context.Context, _, _ uuid.UUID) (*models.Summary, error) {
			return summary, nil
		},
	}
	bus := events.NewMemoryBus()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		eventsRouter(NewSummaryEventsHandler(svc, bus)).ServeHTTP(w, eventsRequest(summary.ID, userID))
		done <- w
	}()

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), summary.ID, events.Event{Type: events.SummaryProcessing}))
	require.NoError(t, bus.Publish(context.Background(), summary.ID, events.Event{Type: events.SummaryCompleted}))

	select {
	case w := <-done:
		body := w.Body.String()
		assert.Contains(t, body, "event: summary_pending") // snapshot
		assert.Contains(t, body, "event: summary_processing")
		assert.Contains(t, body, "event: summary_completed")
		// Terminal event ends the stream.
		assert.Equal(t, 3, strings.Count(body, "event: "))
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not terminate")
	}
}

func TestSummaryEvents_OwnershipEnforced(t *testing.T) {
	svc := &fakeService{
		getFunc: func(_ context.Context, _, _ uuid.UUID) (*models.Summary, error) {
			return nil, service.ErrForbidden
		},
	}

	w := httptest.NewRecorder()
	eventsRouter(NewSummaryEventsHandler(svc, events.NewMemoryBus())).
		ServeHTTP(w, eventsRequest(uuid.New(), uuid.New()))

	assert.Equal(t, http.StatusForbidden, w.Code)
}
