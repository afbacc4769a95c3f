package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/tubebrief/tubebrief/internal/api/middleware"
	"github.com/tubebrief/tubebrief/internal/api/response"
	"github.com/tubebrief/tubebrief/internal/events"
	"github.com/tubebrief/tubebrief/pkg/models"
)

// NewSummaryEventsHandler returns the SSE handler for GET
// /api/v1/summaries/{summaryID}/events. It emits the summary's current
// status first, then streams lifecycle events until a terminal one or
// client disconnect.
func NewSummaryEventsHandler(svc SummaryService, bus events.Bus) http.HandlerFunc {
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

		flusher, ok := w.(http.Flusher)
		if !ok {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Streaming is not supported", nil)
			return
		}

		// Subscribe before the snapshot so no transition between the two
		// is lost.
		ch, unsubscribe, err := bus.Subscribe(r.Context(), summaryID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not subscribe to events", nil)
			return
		}
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		writeSSE(w, snapshotEvent(summary))
		flusher.Flush()

		// A summary already terminal has nothing further to stream.
		if summary.Status == models.SummaryStatusCompleted || summary.Status == models.SummaryStatusFailed {
			return
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, open := <-ch:
				if !open {
					return
				}
				writeSSE(w, ev)
				flusher.Flush()
				if ev.Terminal() {
					return
				}
			}
		}
	}
}

func snapshotEvent(summary *models.Summary) events.Event {
	ev := events.Event{}
	switch summary.Status {
	case models.SummaryStatusProcessing:
		ev.Type = events.SummaryProcessing
	case models.SummaryStatusCompleted:
		ev.Type = events.SummaryCompleted
	case models.SummaryStatusFailed:
		ev.Type = events.SummaryFailed
		if summary.ErrorMessage != nil {
			ev.Error = *summary.ErrorMessage
		}
	default:
		ev.Type = "summary_pending"
	}
	if summary.AudioURL != nil {
		ev.AudioURL = *summary.AudioURL
	}
	return ev
}

func writeSSE(w http.ResponseWriter, ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}
