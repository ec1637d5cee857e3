package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
)

type appPayload struct {
	Name                  *string                   `json:"name" validate:"omitempty,min=1"`
	CustomEvents          map[string]app.UpdateType `json:"custom_events"`
	AutomaticCustomEvents map[string]string         `json:"automatic_custom_events"`
}

type activityList struct {
	Items []activity.ActivityEntry `json:"items"`
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	a, err := s.services.Apps.Get(r.Context(), appID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, a)
}

// handlePutApp replaces the event configuration of the caller's app,
// registering the app on first use.
func (s *Server) handlePutApp(w http.ResponseWriter, r *http.Request) {
	var payload appPayload
	if err := s.decode(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := appID(r)
	a, err := s.services.Apps.Update(r.Context(), id, app.UpdateRequest{
		Name:                  payload.Name,
		CustomEvents:          payload.CustomEvents,
		AutomaticCustomEvents: payload.AutomaticCustomEvents,
	})
	if errors.Is(err, app.ErrAppNotFound) {
		name := id
		if payload.Name != nil {
			name = *payload.Name
		}
		a, err = s.services.Apps.Create(r.Context(), app.CreateRequest{
			ID:                    id,
			Name:                  name,
			CustomEvents:          payload.CustomEvents,
			AutomaticCustomEvents: payload.AutomaticCustomEvents,
		})
		if err == nil {
			render.Status(r, http.StatusCreated)
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, a)
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	opts := activity.ListActivityOptions{
		UserID:  queryString(q.Get("user_id")),
		StudyID: queryString(q.Get("study_id")),
		Subject: queryString(q.Get("subject")),
		Limit:   limit,
		Offset:  offset,
	}
	if t := q.Get("type"); t != "" {
		activityType := activity.ActivityType(t)
		opts.ActivityType = &activityType
	}

	entries, err := s.services.Activity.GetRecentActivity(r.Context(), appID(r), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	render.JSON(w, r, activityList{Items: entries})
}

func queryString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
