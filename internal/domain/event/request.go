package event

import (
	"strings"
	"time"

	"github.com/rpggio/studyevents/internal/domain/app"
)

// Request captures a caller's intent to record an event before it is resolved
// against the app configuration.
type Request struct {
	AppID          string
	StudyID        string
	UserID         string
	ObjectType     ObjectType
	ObjectID       string
	Timestamp      time.Time
	ClientTimeZone string
}

func (r Request) validate() error {
	if strings.TrimSpace(r.AppID) == "" || strings.TrimSpace(r.UserID) == "" {
		return ErrInvalidEvent
	}
	if !r.ObjectType.Valid() {
		return ErrInvalidEvent
	}
	if r.Timestamp.IsZero() {
		return ErrInvalidEvent
	}
	return nil
}

// Resolve turns the request into a concrete event. Custom events take the
// update type the app declares, every other object type its fixed default.
// An undeclared custom event resolves to an empty event ID so that validation
// rejects it.
func (r Request) Resolve(a *app.App, now time.Time) *StudyActivityEvent {
	ev := &StudyActivityEvent{
		AppID:          r.AppID,
		UserID:         r.UserID,
		StudyID:        r.StudyID,
		ObjectType:     r.ObjectType,
		ObjectID:       r.ObjectID,
		Timestamp:      r.Timestamp,
		CreatedOn:      now,
		ClientTimeZone: r.ClientTimeZone,
	}

	if r.ObjectType == ObjectCustom {
		key := app.TrimCustomPrefix(r.ObjectID)
		ev.ObjectID = key
		if updateType, ok := a.CustomEventUpdateType(key); ok {
			ev.EventID = app.CustomEventPrefix + key
			ev.UpdateType = updateType
		}
		return ev
	}

	ev.EventID = FormatEventID(r.ObjectType, r.ObjectID)
	ev.UpdateType = r.ObjectType.DefaultUpdateType()
	return ev
}
