package mocks

import (
	"context"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
	"github.com/stretchr/testify/mock"
)

// AppRepository is a mock for app.Repository.
type AppRepository struct {
	mock.Mock
}

func (m *AppRepository) Create(ctx context.Context, a *app.App) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *AppRepository) Get(ctx context.Context, id string) (*app.App, error) {
	args := m.Called(ctx, id)
	if a, ok := args.Get(0).(*app.App); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AppRepository) Update(ctx context.Context, a *app.App) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// EventRepository is a mock for event.Repository.
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) GetRecent(ctx context.Context, appID, userID, studyID string) (map[string]*event.StudyActivityEvent, error) {
	args := m.Called(ctx, appID, userID, studyID)
	if recent, ok := args.Get(0).(map[string]*event.StudyActivityEvent); ok {
		return recent, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) Insert(ctx context.Context, ev *event.StudyActivityEvent, expectedRevision int64) error {
	args := m.Called(ctx, ev, expectedRevision)
	return args.Error(0)
}

func (m *EventRepository) Delete(ctx context.Context, appID, userID, studyID, eventID string) (bool, error) {
	args := m.Called(ctx, appID, userID, studyID, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *EventRepository) History(ctx context.Context, appID, userID, studyID, eventID string, offset, limit int) ([]event.StudyActivityEvent, int, error) {
	args := m.Called(ctx, appID, userID, studyID, eventID, offset, limit)
	if list, ok := args.Get(0).([]event.StudyActivityEvent); ok {
		return list, args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

// VersionRepository is a mock for participant.Repository.
type VersionRepository struct {
	mock.Mock
}

func (m *VersionRepository) GetLatest(ctx context.Context, appID, healthCode string) (*participant.Version, error) {
	args := m.Called(ctx, appID, healthCode)
	if v, ok := args.Get(0).(*participant.Version); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VersionRepository) Get(ctx context.Context, appID, healthCode string, version int) (*participant.Version, error) {
	args := m.Called(ctx, appID, healthCode, version)
	if v, ok := args.Get(0).(*participant.Version); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VersionRepository) List(ctx context.Context, appID, healthCode string) ([]participant.Version, error) {
	args := m.Called(ctx, appID, healthCode)
	if list, ok := args.Get(0).([]participant.Version); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VersionRepository) Insert(ctx context.Context, v *participant.Version) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *VersionRepository) DeleteAll(ctx context.Context, appID, healthCode string) (int, error) {
	args := m.Called(ctx, appID, healthCode)
	return args.Int(0), args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, appID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, appID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, appID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, appID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityLogger is a mock for the activity logger the domain services use.
type ActivityLogger struct {
	mock.Mock
}

func (m *ActivityLogger) LogActivity(ctx context.Context, appID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, appID, entry)
	return args.Error(0)
}

// Recorder is a mock for the event and participant outcome recorders.
type Recorder struct {
	mock.Mock
}

func (m *Recorder) PublishOutcome(outcome string) {
	m.Called(outcome)
}

func (m *Recorder) VersionOutcome(outcome string) {
	m.Called(outcome)
}
