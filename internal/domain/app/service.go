package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/repository"
)

// ActivityLogger records configuration changes in the activity log.
type ActivityLogger interface {
	LogActivity(ctx context.Context, appID string, entry *activity.ActivityEntry) error
}

// Service handles app configuration.
type Service struct {
	repo       Repository
	activities ActivityLogger
	logger     *slog.Logger
}

// NewService creates a new app service.
func NewService(repo Repository, activities ActivityLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, activities: activities, logger: logger}
}

// CreateRequest defines app creation inputs.
type CreateRequest struct {
	ID                    string
	Name                  string
	CustomEvents          map[string]UpdateType
	AutomaticCustomEvents map[string]string
}

// UpdateRequest replaces the event configuration of an app. Nil maps leave
// the stored value untouched.
type UpdateRequest struct {
	Name                  *string
	CustomEvents          map[string]UpdateType
	AutomaticCustomEvents map[string]string
}

// Create registers a new app.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*App, error) {
	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	a := &App{
		ID:                    id,
		Name:                  req.Name,
		CustomEvents:          normalizeCustomEvents(req.CustomEvents),
		AutomaticCustomEvents: orEmpty(req.AutomaticCustomEvents),
		CreatedOn:             now,
		ModifiedOn:            now,
	}
	if err := Validate(a); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAppExists
		}
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s.logActivity(ctx, a, "created app")
	return a, nil
}

// Get fetches an app by ID.
func (s *Service) Get(ctx context.Context, id string) (*App, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppNotFound
		}
		return nil, fmt.Errorf("getting app: %w", err)
	}
	return a, nil
}

// Update modifies the configuration of an existing app.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*App, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.CustomEvents != nil {
		updated.CustomEvents = normalizeCustomEvents(req.CustomEvents)
	}
	if req.AutomaticCustomEvents != nil {
		updated.AutomaticCustomEvents = req.AutomaticCustomEvents
	}
	updated.ModifiedOn = time.Now()

	if err := Validate(&updated); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppNotFound
		}
		return nil, fmt.Errorf("updating app: %w", err)
	}

	s.logActivity(ctx, &updated, "updated app")
	return &updated, nil
}

func (s *Service) logActivity(ctx context.Context, a *App, summary string) {
	s.logger.Info(summary, "app_id", a.ID, "custom_events", len(a.CustomEvents), "automatic_events", len(a.AutomaticCustomEvents))
	if s.activities == nil {
		return
	}
	subject := a.ID
	_ = s.activities.LogActivity(ctx, a.ID, &activity.ActivityEntry{
		Subject:      &subject,
		ActivityType: activity.TypeAppConfigured,
		Summary:      fmt.Sprintf("%s %s", summary, a.ID),
	})
}

// normalizeCustomEvents strips "custom:" prefixes from declared keys.
func normalizeCustomEvents(in map[string]UpdateType) map[string]UpdateType {
	out := make(map[string]UpdateType, len(in))
	for key, updateType := range in {
		out[TrimCustomPrefix(strings.TrimSpace(key))] = updateType
	}
	return out
}

func orEmpty(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return in
}
