// Package handler implements the HTTP handlers for the weekend poll API.
// All handlers are methods on Server. Methods are split into endpoint files
// (health.go, poll.go, response.go, view.go) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/weekend-poll/internal/domain"
	"github.com/pkordes/weekend-poll/internal/service"
)

// PollServicer defines the business operations the poll handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type PollServicer interface {
	Create(ctx context.Context, in service.CreateInput) (service.CreateResult, error)
	SubmitResponse(ctx context.Context, token string, index int, v domain.ResponseValue) error
	View(ctx context.Context, pollID uuid.UUID, token string) (service.PollView, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	polls PollServicer
	log   *slog.Logger
}

// NewServer constructs the Server. A nil logger falls back to slog.Default.
func NewServer(polls PollServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{polls: polls, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil)
}

// NewRouter registers every route of s on a fresh chi router. The api
// middlewares wrap only the /api group, which is where body limits and rate
// limiting belong; /healthz and /openapi.yaml stay unthrottled.
func NewRouter(s *Server, api ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api", func(r chi.Router) {
		// With rather than Use: the middlewares run after routing, so they
		// see the matched pattern instead of a path carrying a token.
		r = r.With(api...)
		r.Post("/events", s.CreatePoll)
		r.Get("/events/{pollId}/{token}", s.ViewPoll)
		r.Post("/responses", s.SubmitResponse)
	})
	return r
}
