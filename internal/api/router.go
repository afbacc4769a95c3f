// Package api wires middleware and handlers into the HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/tubebrief/tubebrief/internal/api/middleware"
	"github.com/tubebrief/tubebrief/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler        http.HandlerFunc
	MediaHandler         http.Handler
	CreateSummaryHandler http.HandlerFunc
	GetSummaryHandler    http.HandlerFunc
	RetrySummaryHandler  http.HandlerFunc
	RequestAudioHandler  http.HandlerFunc
	SummaryEventsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Generated audio artifacts
	if deps.MediaHandler != nil {
		r.Mount("/media", deps.MediaHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/summaries", orNotImplemented(deps.CreateSummaryHandler))
		r.Get("/api/v1/summaries/{summaryID}", orNotImplemented(deps.GetSummaryHandler))
		r.Post("/api/v1/summaries/{summaryID}/retry", orNotImplemented(deps.RetrySummaryHandler))
		r.Post("/api/v1/summaries/{summaryID}/audio", orNotImplemented(deps.RequestAudioHandler))
		r.Get("/api/v1/summaries/{summaryID}/events", orNotImplemented(deps.SummaryEventsHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
