package transport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
)

var errBadRequest = errors.New("bad request")

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Render implements render.Renderer.
func (p *Problem) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, p.Status)
	return nil
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	_ = render.Render(w, r, &Problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, event.ErrInvalidEvent),
		errors.Is(err, participant.ErrInvalidInput),
		errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, event.ErrAppNotFound),
		errors.Is(err, app.ErrAppNotFound),
		errors.Is(err, participant.ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, event.ErrConcurrentModification),
		errors.Is(err, participant.ErrConcurrentModification),
		errors.Is(err, app.ErrAppExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		detail = "internal error"
	}
	writeProblem(w, r, status, detail)
}
