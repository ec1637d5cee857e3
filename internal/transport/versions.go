package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rpggio/studyevents/internal/domain/participant"
)

type participantPayload struct {
	HealthCode   string                   `json:"health_code" validate:"required"`
	DataGroups   []string                 `json:"data_groups" validate:"dive,required"`
	Languages    []string                 `json:"languages" validate:"dive,required"`
	SharingScope participant.SharingScope `json:"sharing_scope" validate:"omitempty,oneof=NO_SHARING SPONSORS_AND_PARTNERS ALL_QUALIFIED_RESEARCHERS"`
	StudyIDs     []string                 `json:"study_ids" validate:"dive,required"`
	ExternalIDs  map[string]string        `json:"external_ids"`
	TimeZone     string                   `json:"time_zone"`
}

type enrollmentPayload struct {
	StudyID     string     `json:"study_id" validate:"required"`
	ExternalID  string     `json:"external_id"`
	WithdrawnOn *time.Time `json:"withdrawn_on"`
}

type accountPayload struct {
	HealthCode     string                   `json:"health_code" validate:"required"`
	DataGroups     []string                 `json:"data_groups" validate:"dive,required"`
	Languages      []string                 `json:"languages" validate:"dive,required"`
	SharingScope   participant.SharingScope `json:"sharing_scope" validate:"omitempty,oneof=NO_SHARING SPONSORS_AND_PARTNERS ALL_QUALIFIED_RESEARCHERS"`
	ClientTimeZone string                   `json:"client_time_zone"`
	Enrollments    []enrollmentPayload      `json:"enrollments" validate:"dive"`
}

type versionList struct {
	Items []participant.Version `json:"items"`
}

type purgeResult struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleCreateFromParticipant(w http.ResponseWriter, r *http.Request) {
	var payload participantPayload
	if err := s.decode(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	var tz *time.Location
	if payload.TimeZone != "" {
		loc, err := participant.LoadZone(payload.TimeZone)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		tz = loc
	}

	result, err := s.services.Versions.CreateFromParticipant(r.Context(), appID(r), participant.Participant{
		HealthCode:   payload.HealthCode,
		DataGroups:   payload.DataGroups,
		Languages:    payload.Languages,
		SharingScope: payload.SharingScope,
		StudyIDs:     payload.StudyIDs,
		ExternalIDs:  payload.ExternalIDs,
	}, tz)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.renderCreateResult(w, r, result)
}

func (s *Server) handleCreateFromAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountPayload
	if err := s.decode(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}

	enrollments := make([]participant.Enrollment, 0, len(payload.Enrollments))
	for _, e := range payload.Enrollments {
		enrollments = append(enrollments, participant.Enrollment{
			StudyID:     e.StudyID,
			ExternalID:  e.ExternalID,
			WithdrawnOn: e.WithdrawnOn,
		})
	}

	result, err := s.services.Versions.CreateFromAccount(r.Context(), participant.Account{
		AppID:          appID(r),
		HealthCode:     payload.HealthCode,
		DataGroups:     payload.DataGroups,
		Languages:      payload.Languages,
		SharingScope:   payload.SharingScope,
		ClientTimeZone: payload.ClientTimeZone,
		Enrollments:    enrollments,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.renderCreateResult(w, r, result)
}

func (s *Server) renderCreateResult(w http.ResponseWriter, r *http.Request, result *participant.CreateResult) {
	if result.Created {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, result)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.services.Versions.List(r.Context(), appID(r), chi.URLParam(r, "healthCode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, versionList{Items: versions})
}

func (s *Server) handleGetLatestVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.services.Versions.GetLatest(r.Context(), appID(r), chi.URLParam(r, "healthCode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, v)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		s.writeError(w, r, badRequest("version must be an integer"))
		return
	}
	v, err := s.services.Versions.Get(r.Context(), appID(r), chi.URLParam(r, "healthCode"), version)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, v)
}

func (s *Server) handleDeleteVersions(w http.ResponseWriter, r *http.Request) {
	n, err := s.services.Versions.DeleteAll(r.Context(), appID(r), chi.URLParam(r, "healthCode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, purgeResult{Deleted: n})
}
