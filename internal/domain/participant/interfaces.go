package participant

import (
	"context"

	"github.com/rpggio/studyevents/internal/domain/activity"
)

// Repository provides persistence for participant versions.
type Repository interface {
	GetLatest(ctx context.Context, appID, healthCode string) (*Version, error)
	Get(ctx context.Context, appID, healthCode string, version int) (*Version, error)
	List(ctx context.Context, appID, healthCode string) ([]Version, error)
	// Insert stores a new version and fails with repository.ErrConflict when
	// the version number is already taken.
	Insert(ctx context.Context, v *Version) error
	DeleteAll(ctx context.Context, appID, healthCode string) (int, error)
}

// ActivityLogger records version changes in the activity log.
type ActivityLogger interface {
	LogActivity(ctx context.Context, appID string, entry *activity.ActivityEntry) error
}

// Recorder observes reconciliation outcomes.
type Recorder interface {
	VersionOutcome(outcome string)
}
