package event

import (
	"context"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
)

// Repository provides persistence for activity events.
type Repository interface {
	// GetRecent returns the most recent event per event ID.
	GetRecent(ctx context.Context, appID, userID, studyID string) (map[string]*StudyActivityEvent, error)
	// Insert appends ev to the history and makes it the most recent event for
	// its ID, provided the stored revision still equals expectedRevision.
	Insert(ctx context.Context, ev *StudyActivityEvent, expectedRevision int64) error
	Delete(ctx context.Context, appID, userID, studyID, eventID string) (bool, error)
	History(ctx context.Context, appID, userID, studyID, eventID string, offset, limit int) ([]StudyActivityEvent, int, error)
}

// AppRepository resolves app configuration.
type AppRepository interface {
	Get(ctx context.Context, id string) (*app.App, error)
}

// ActivityLogger records accepted publishes and deletes in the activity log.
type ActivityLogger interface {
	LogActivity(ctx context.Context, appID string, entry *activity.ActivityEntry) error
}

// Recorder observes publish outcomes.
type Recorder interface {
	PublishOutcome(outcome string)
}
