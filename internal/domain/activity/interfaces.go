package activity

import "context"

// Repository provides persistence operations for activity entries.
type Repository interface {
	Log(ctx context.Context, appID string, entry *ActivityEntry) error
	List(ctx context.Context, appID string, opts ListActivityOptions) ([]ActivityEntry, error)
}
