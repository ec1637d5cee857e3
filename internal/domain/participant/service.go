package participant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/repository"
	"github.com/rpggio/studyevents/internal/validation"
)

// Reconciliation outcomes reported to the Recorder.
const (
	OutcomeCreated   = "created"
	OutcomeUnchanged = "unchanged"
)

const defaultRetryAttempts = 3

var validate = validation.New()

// Service reconciles participant attributes into versions.
type Service struct {
	repo          Repository
	activities    ActivityLogger
	recorder      Recorder
	logger        *slog.Logger
	retryAttempts int
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRecorder reports reconciliation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithRetryAttempts sets how often reconciliation is re-run after another
// writer took the next version number.
func WithRetryAttempts(attempts int) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
	}
}

// NewService creates a new participant version service.
func NewService(repo Repository, activities ActivityLogger, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		activities:    activities,
		logger:        logger,
		retryAttempts: defaultRetryAttempts,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// CreateFromAccount reconciles the attributes of an account.
func (s *Service) CreateFromAccount(ctx context.Context, account Account) (*CreateResult, error) {
	return s.Create(ctx, FromAccount(account, s.now()))
}

// CreateFromParticipant reconciles the attributes of a participant in the
// given time zone.
func (s *Service) CreateFromParticipant(ctx context.Context, appID string, p Participant, tz *time.Location) (*CreateResult, error) {
	return s.Create(ctx, FromParticipant(appID, p, tz, s.now()))
}

// Create stores candidate as the next version unless its attributes equal
// those of the latest stored version, in which case nothing is written.
func (s *Service) Create(ctx context.Context, candidate Version) (*CreateResult, error) {
	if strings.TrimSpace(candidate.AppID) == "" || strings.TrimSpace(candidate.HealthCode) == "" {
		return nil, ErrInvalidInput
	}
	if err := validate.Struct(&candidate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	candidate.DataGroups = normalizeSet(candidate.DataGroups)
	if candidate.Languages == nil {
		candidate.Languages = []string{}
	}
	if candidate.StudyMemberships == nil {
		candidate.StudyMemberships = map[string]string{}
	}

	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		latest, err := s.repo.GetLatest(ctx, candidate.AppID, candidate.HealthCode)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("loading latest participant version: %w", err)
		}
		if latest != nil && latest.SameAttributes(&candidate) {
			s.observe(OutcomeUnchanged)
			return &CreateResult{Version: latest, Created: false}, nil
		}

		next := candidate
		now := s.now()
		if latest != nil {
			next.ParticipantVersion = latest.ParticipantVersion + 1
			next.CreatedOn = latest.CreatedOn
		} else {
			next.ParticipantVersion = 1
			if next.CreatedOn.IsZero() {
				next.CreatedOn = now
			}
		}
		next.ModifiedOn = now

		err = s.repo.Insert(ctx, &next)
		if err == nil {
			s.observe(OutcomeCreated)
			s.logCreated(ctx, &next)
			return &CreateResult{Version: &next, Created: true}, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("inserting participant version: %w", err)
		}
		s.logger.Debug("participant version conflict", "app_id", next.AppID, "version", next.ParticipantVersion, "attempt", attempt+1)
	}
	return nil, ErrConcurrentModification
}

// GetLatest returns the most recent version of a lineage.
func (s *Service) GetLatest(ctx context.Context, appID, healthCode string) (*Version, error) {
	if appID == "" || healthCode == "" {
		return nil, ErrInvalidInput
	}
	v, err := s.repo.GetLatest(ctx, appID, healthCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("getting latest participant version: %w", err)
	}
	return v, nil
}

// Get returns one version of a lineage.
func (s *Service) Get(ctx context.Context, appID, healthCode string, version int) (*Version, error) {
	if appID == "" || healthCode == "" || version < 1 {
		return nil, ErrInvalidInput
	}
	v, err := s.repo.Get(ctx, appID, healthCode, version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("getting participant version: %w", err)
	}
	return v, nil
}

// List returns every version of a lineage, oldest first.
func (s *Service) List(ctx context.Context, appID, healthCode string) ([]Version, error) {
	if appID == "" || healthCode == "" {
		return nil, ErrInvalidInput
	}
	versions, err := s.repo.List(ctx, appID, healthCode)
	if err != nil {
		return nil, fmt.Errorf("listing participant versions: %w", err)
	}
	return versions, nil
}

// DeleteAll purges a lineage and returns the number of versions removed.
func (s *Service) DeleteAll(ctx context.Context, appID, healthCode string) (int, error) {
	if appID == "" || healthCode == "" {
		return 0, ErrInvalidInput
	}
	n, err := s.repo.DeleteAll(ctx, appID, healthCode)
	if err != nil {
		return 0, fmt.Errorf("deleting participant versions: %w", err)
	}
	if n > 0 && s.activities != nil {
		_ = s.activities.LogActivity(ctx, appID, &activity.ActivityEntry{
			Subject:      &healthCode,
			ActivityType: activity.TypeVersionsPurged,
			Summary:      fmt.Sprintf("purged %d participant versions", n),
		})
	}
	return n, nil
}

func (s *Service) logCreated(ctx context.Context, v *Version) {
	s.logger.Info("participant version created", "app_id", v.AppID, "version", v.ParticipantVersion)
	if s.activities == nil {
		return
	}
	subject := v.HealthCode
	_ = s.activities.LogActivity(ctx, v.AppID, &activity.ActivityEntry{
		Subject:      &subject,
		ActivityType: activity.TypeVersionCreated,
		Summary:      fmt.Sprintf("created participant version %d", v.ParticipantVersion),
	})
}

func (s *Service) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.VersionOutcome(outcome)
	}
}
