package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/repository"
)

// Service publishes and queries study activity events.
type Service struct {
	events     Repository
	apps       AppRepository
	activities ActivityLogger
	recorder   Recorder
	logger     *slog.Logger

	maxCascadeDepth int
	retryAttempts   int
	now             func() time.Time
}

// NewService creates a new event service.
func NewService(
	events Repository,
	apps AppRepository,
	activities ActivityLogger,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		events:          events,
		apps:            apps,
		activities:      activities,
		logger:          logger,
		maxCascadeDepth: defaultMaxCascadeDepth,
		retryAttempts:   defaultRetryAttempts,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// cascade tracks the automatic event chain a publish belongs to.
type cascade struct {
	depth  int
	chain  map[string]bool
	legacy bool
}

func (c cascade) extend(key string) cascade {
	chain := make(map[string]bool, len(c.chain)+1)
	for k := range c.chain {
		chain[k] = true
	}
	chain[key] = true
	return cascade{depth: c.depth + 1, chain: chain}
}

// Publish records an event if the update policy allows it, then publishes
// the automatic events derived from it and, for enrollments, the legacy
// global enrollment event.
func (s *Service) Publish(ctx context.Context, req Request) (*PublishResult, error) {
	if err := req.validate(); err != nil {
		s.observe(OutcomeInvalid)
		return nil, err
	}

	a, err := s.loadApp(ctx, req.AppID)
	if err != nil {
		return nil, err
	}

	result := &PublishResult{}
	root := cascade{chain: map[string]bool{}}
	if req.ObjectType == ObjectCustom {
		root.chain[app.TrimCustomPrefix(req.ObjectID)] = true
	}

	ev, published, err := s.publish(ctx, a, req, root, result)
	if ev == nil {
		return nil, err
	}
	result.Event = ev
	result.Published = published
	return result, err
}

func (s *Service) publish(ctx context.Context, a *app.App, req Request, c cascade, result *PublishResult) (*StudyActivityEvent, bool, error) {
	ev := req.Resolve(a, s.now())
	if err := Validate(ev); err != nil {
		s.observe(OutcomeInvalid)
		return nil, false, err
	}

	published, err := s.store(ctx, ev)
	if err != nil {
		return nil, false, err
	}
	if !published {
		s.observe(OutcomeUnchanged)
		s.logger.Debug("event update not allowed", "app_id", ev.AppID, "user_id", ev.UserID, "study_id", ev.StudyID, "event_id", ev.EventID, "update_type", ev.UpdateType)
		return ev, false, nil
	}
	s.observe(OutcomeAccepted)
	s.logPublished(ctx, ev)
	if c.depth > 0 || c.legacy {
		result.Cascaded = append(result.Cascaded, *ev)
	}
	if c.legacy {
		return ev, true, nil
	}

	if err := s.publishAutomaticEvents(ctx, a, ev, c, result); err != nil {
		return ev, true, err
	}

	if ev.ObjectType == ObjectEnrollment && ev.StudyID != "" {
		global := Request{
			AppID:          ev.AppID,
			UserID:         ev.UserID,
			ObjectType:     ObjectEnrollment,
			Timestamp:      ev.Timestamp,
			ClientTimeZone: ev.ClientTimeZone,
		}
		if _, _, err := s.publish(ctx, a, global, cascade{legacy: true}, result); err != nil {
			return ev, true, fmt.Errorf("publishing global enrollment: %w", err)
		}
	}

	return ev, true, nil
}

func (s *Service) publishAutomaticEvents(ctx context.Context, a *app.App, origin *StudyActivityEvent, c cascade, result *PublishResult) error {
	originKey := origin.OriginKey()
	for _, rule := range a.AutomaticEvents() {
		if rule.Origin != originKey {
			continue
		}
		if c.depth >= s.maxCascadeDepth {
			s.logger.Warn("automatic event cascade too deep", "app_id", a.ID, "event_id", origin.EventID, "depth", c.depth)
			return nil
		}
		if c.chain[rule.Key] {
			s.logger.Warn("automatic event cycle skipped", "app_id", a.ID, "origin", originKey, "key", rule.Key)
			continue
		}

		req := Request{
			AppID:          origin.AppID,
			StudyID:        origin.StudyID,
			UserID:         origin.UserID,
			ObjectType:     ObjectCustom,
			ObjectID:       rule.Key,
			Timestamp:      rule.Period.AddTo(origin.Timestamp),
			ClientTimeZone: origin.ClientTimeZone,
		}
		if _, _, err := s.publish(ctx, a, req, c.extend(rule.Key), result); err != nil {
			return fmt.Errorf("publishing automatic event %s: %w", rule.Key, err)
		}
	}
	return nil
}

// store applies the update policy against the current most recent event and
// inserts ev when allowed, re-evaluating after a lost concurrency race.
func (s *Service) store(ctx context.Context, ev *StudyActivityEvent) (bool, error) {
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		recent, err := s.events.GetRecent(ctx, ev.AppID, ev.UserID, ev.StudyID)
		if err != nil {
			return false, fmt.Errorf("loading recent events: %w", err)
		}

		existing := recent[ev.EventID]
		if !CanUpdate(existing, ev) {
			return false, nil
		}

		var expected int64
		if existing != nil {
			expected = existing.Revision
		}
		ev.ID = uuid.NewString()
		ev.Revision = expected + 1

		err = s.events.Insert(ctx, ev, expected)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return false, fmt.Errorf("inserting event: %w", err)
		}
		s.logger.Debug("event revision conflict", "event_id", ev.EventID, "attempt", attempt+1)
	}
	return false, ErrConcurrentModification
}

// DeleteCustomEvent removes a custom event and its history. Deletion is not
// subject to the update policy.
func (s *Service) DeleteCustomEvent(ctx context.Context, req Request) (bool, error) {
	if strings.TrimSpace(req.AppID) == "" || strings.TrimSpace(req.UserID) == "" {
		return false, ErrInvalidEvent
	}
	a, err := s.loadApp(ctx, req.AppID)
	if err != nil {
		return false, err
	}

	key := app.TrimCustomPrefix(req.ObjectID)
	if _, ok := a.CustomEventUpdateType(key); !ok {
		return false, fmt.Errorf("%w: unknown custom event %q", ErrInvalidEvent, req.ObjectID)
	}
	eventID := app.CustomEventPrefix + key

	deleted, err := s.events.Delete(ctx, req.AppID, req.UserID, req.StudyID, eventID)
	if err != nil {
		return false, fmt.Errorf("deleting event: %w", err)
	}
	if deleted && s.activities != nil {
		_ = s.activities.LogActivity(ctx, req.AppID, &activity.ActivityEntry{
			UserID:       &req.UserID,
			StudyID:      optional(req.StudyID),
			Subject:      &eventID,
			ActivityType: activity.TypeEventDeleted,
			Summary:      fmt.Sprintf("deleted event %s", eventID),
		})
	}
	return deleted, nil
}

// GetRecent returns the most recent event per event ID for a study.
func (s *Service) GetRecent(ctx context.Context, appID, studyID, userID string) ([]StudyActivityEvent, error) {
	if strings.TrimSpace(studyID) == "" {
		return nil, ErrInvalidEvent
	}
	return s.recent(ctx, appID, studyID, userID)
}

// GetRecentGlobal returns the most recent study-less events of a user.
func (s *Service) GetRecentGlobal(ctx context.Context, appID, userID string) ([]StudyActivityEvent, error) {
	return s.recent(ctx, appID, "", userID)
}

func (s *Service) recent(ctx context.Context, appID, studyID, userID string) ([]StudyActivityEvent, error) {
	if strings.TrimSpace(appID) == "" || strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidEvent
	}
	if _, err := s.loadApp(ctx, appID); err != nil {
		return nil, err
	}

	recent, err := s.events.GetRecent(ctx, appID, userID, studyID)
	if err != nil {
		return nil, fmt.Errorf("loading recent events: %w", err)
	}
	events := make([]StudyActivityEvent, 0, len(recent))
	for _, ev := range recent {
		events = append(events, *ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].EventID < events[j].EventID })
	return events, nil
}

// GetHistory returns accepted publishes of one event ID, newest first.
func (s *Service) GetHistory(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	if strings.TrimSpace(q.AppID) == "" || strings.TrimSpace(q.UserID) == "" || strings.TrimSpace(q.EventID) == "" {
		return nil, ErrInvalidEvent
	}
	if q.PageSize == 0 {
		q.PageSize = defaultHistoryPageSize
	}
	if q.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidEvent)
	}
	if q.PageSize < minHistoryPageSize || q.PageSize > maxHistoryPageSize {
		return nil, fmt.Errorf("%w: page size must be between %d and %d", ErrInvalidEvent, minHistoryPageSize, maxHistoryPageSize)
	}
	if _, err := s.loadApp(ctx, q.AppID); err != nil {
		return nil, err
	}

	items, total, err := s.events.History(ctx, q.AppID, q.UserID, q.StudyID, q.EventID, q.Offset, q.PageSize)
	if err != nil {
		return nil, fmt.Errorf("loading event history: %w", err)
	}
	if items == nil {
		items = []StudyActivityEvent{}
	}
	return &HistoryPage{
		Items:    items,
		Total:    total,
		Offset:   q.Offset,
		PageSize: q.PageSize,
	}, nil
}

func (s *Service) loadApp(ctx context.Context, appID string) (*app.App, error) {
	a, err := s.apps.Get(ctx, appID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppNotFound
		}
		return nil, fmt.Errorf("loading app: %w", err)
	}
	return a, nil
}

func (s *Service) logPublished(ctx context.Context, ev *StudyActivityEvent) {
	if s.activities == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{
		"timestamp":   ev.Timestamp,
		"update_type": ev.UpdateType,
		"revision":    ev.Revision,
	})
	_ = s.activities.LogActivity(ctx, ev.AppID, &activity.ActivityEntry{
		UserID:       &ev.UserID,
		StudyID:      optional(ev.StudyID),
		Subject:      &ev.EventID,
		ActivityType: activity.TypeEventPublished,
		Summary:      fmt.Sprintf("published event %s", ev.EventID),
		Details:      string(details),
	})
}

func (s *Service) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.PublishOutcome(outcome)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
