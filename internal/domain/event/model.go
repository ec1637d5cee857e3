package event

import (
	"strings"
	"time"

	"github.com/rpggio/studyevents/internal/domain/app"
)

// UpdateType governs whether a published value may replace the recorded one.
type UpdateType = app.UpdateType

const (
	UpdateImmutable  = app.UpdateImmutable
	UpdateMutable    = app.UpdateMutable
	UpdateFutureOnly = app.UpdateFutureOnly
)

// ObjectType identifies what kind of milestone an event records.
type ObjectType string

const (
	ObjectEnrollment        ObjectType = "ENROLLMENT"
	ObjectCreatedOn         ObjectType = "CREATED_ON"
	ObjectTimelineRetrieved ObjectType = "TIMELINE_RETRIEVED"
	ObjectStudyStartDate    ObjectType = "STUDY_START_DATE"
	ObjectInstallLinkSent   ObjectType = "INSTALL_LINK_SENT"
	ObjectSession           ObjectType = "SESSION"
	ObjectAssessment        ObjectType = "ASSESSMENT"
	ObjectCustom            ObjectType = "CUSTOM"
)

// Valid reports whether the object type is known.
func (o ObjectType) Valid() bool {
	switch o {
	case ObjectEnrollment, ObjectCreatedOn, ObjectTimelineRetrieved, ObjectStudyStartDate,
		ObjectInstallLinkSent, ObjectSession, ObjectAssessment, ObjectCustom:
		return true
	}
	return false
}

// DefaultUpdateType is the fixed update type of a built-in object type.
// Custom events use the type the app declares instead.
func (o ObjectType) DefaultUpdateType() UpdateType {
	switch o {
	case ObjectInstallLinkSent:
		return UpdateFutureOnly
	case ObjectSession, ObjectAssessment, ObjectCustom:
		return UpdateMutable
	default:
		return UpdateImmutable
	}
}

func (o ObjectType) requiresObjectID() bool {
	return o == ObjectSession || o == ObjectAssessment || o == ObjectCustom
}

// StudyActivityEvent is a timestamped milestone for a user, scoped to a study
// or, when StudyID is empty, global to the app.
type StudyActivityEvent struct {
	ID             string     `json:"id"`
	AppID          string     `json:"app_id" validate:"required"`
	UserID         string     `json:"user_id" validate:"required"`
	StudyID        string     `json:"study_id,omitempty"`
	EventID        string     `json:"event_id" validate:"required"`
	ObjectType     ObjectType `json:"object_type" validate:"required,oneof=ENROLLMENT CREATED_ON TIMELINE_RETRIEVED STUDY_START_DATE INSTALL_LINK_SENT SESSION ASSESSMENT CUSTOM"`
	ObjectID       string     `json:"object_id,omitempty"`
	Timestamp      time.Time  `json:"timestamp" validate:"required"`
	CreatedOn      time.Time  `json:"created_on"`
	UpdateType     UpdateType `json:"update_type" validate:"required,oneof=IMMUTABLE MUTABLE FUTURE_ONLY"`
	ClientTimeZone string     `json:"client_time_zone,omitempty" validate:"omitempty,timezone"`
	Revision       int64      `json:"revision"`
}

// OriginKey is the key automatic event rules match against: the bare custom
// event name for custom events, the event ID otherwise.
func (e *StudyActivityEvent) OriginKey() string {
	if e.ObjectType == ObjectCustom {
		return app.TrimCustomPrefix(e.ObjectID)
	}
	return e.EventID
}

// HistoryPage is one page of the accepted publishes for an event ID.
type HistoryPage struct {
	Items    []StudyActivityEvent `json:"items"`
	Total    int                  `json:"total"`
	Offset   int                  `json:"offset"`
	PageSize int                  `json:"page_size"`
}

// PublishResult reports the outcome of a publish. A rejected update is not an
// error: Published is false and nothing was stored.
type PublishResult struct {
	Event     *StudyActivityEvent  `json:"event"`
	Published bool                 `json:"published"`
	Cascaded  []StudyActivityEvent `json:"cascaded,omitempty"`
}

// FormatEventID builds the event ID for a non-custom object type.
func FormatEventID(objectType ObjectType, objectID string) string {
	id := strings.ToLower(string(objectType))
	if objectType.requiresObjectID() && objectID != "" {
		id += ":" + objectID
	}
	return id
}
