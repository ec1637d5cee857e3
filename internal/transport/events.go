package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rpggio/studyevents/internal/domain/event"
)

type publishEventPayload struct {
	ObjectType     event.ObjectType `json:"object_type" validate:"required,oneof=ENROLLMENT CREATED_ON TIMELINE_RETRIEVED STUDY_START_DATE INSTALL_LINK_SENT SESSION ASSESSMENT CUSTOM"`
	ObjectID       string           `json:"object_id" validate:"omitempty,max=255"`
	Timestamp      time.Time        `json:"timestamp" validate:"required"`
	ClientTimeZone string           `json:"client_time_zone" validate:"omitempty,timezone"`
}

type eventList struct {
	Items []event.StudyActivityEvent `json:"items"`
}

func (s *Server) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	var payload publishEventPayload
	if err := s.decode(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.services.Events.Publish(r.Context(), event.Request{
		AppID:          appID(r),
		StudyID:        chi.URLParam(r, "studyId"),
		UserID:         chi.URLParam(r, "userId"),
		ObjectType:     payload.ObjectType,
		ObjectID:       payload.ObjectID,
		Timestamp:      payload.Timestamp,
		ClientTimeZone: payload.ClientTimeZone,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if result.Published {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, result)
}

func (s *Server) handleGetRecentEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.services.Events.GetRecent(r.Context(), appID(r), chi.URLParam(r, "studyId"), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, eventList{Items: events})
}

func (s *Server) handleGetGlobalEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.services.Events.GetRecentGlobal(r.Context(), appID(r), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, eventList{Items: events})
}

func (s *Server) handleGetEventHistory(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.services.Events.GetHistory(r.Context(), event.HistoryQuery{
		AppID:    appID(r),
		UserID:   chi.URLParam(r, "userId"),
		StudyID:  chi.URLParam(r, "studyId"),
		EventID:  chi.URLParam(r, "eventId"),
		Offset:   offset,
		PageSize: pageSize,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.services.Events.DeleteCustomEvent(r.Context(), event.Request{
		AppID:      appID(r),
		StudyID:    chi.URLParam(r, "studyId"),
		UserID:     chi.URLParam(r, "userId"),
		ObjectType: event.ObjectCustom,
		ObjectID:   chi.URLParam(r, "eventId"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !deleted {
		writeProblem(w, r, http.StatusNotFound, "event not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}
