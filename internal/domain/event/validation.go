package event

import (
	"fmt"
	"strings"

	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/validation"
)

var validate = validation.New()

// Validate checks a resolved event before it is stored.
func Validate(ev *StudyActivityEvent) error {
	if ev == nil {
		return ErrInvalidEvent
	}
	if err := validate.Struct(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if ev.ObjectType.requiresObjectID() && strings.TrimSpace(ev.ObjectID) == "" {
		return fmt.Errorf("%w: object_id is required for %s events", ErrInvalidEvent, ev.ObjectType)
	}
	if ev.ObjectType == ObjectCustom && !strings.HasPrefix(ev.EventID, app.CustomEventPrefix) {
		return fmt.Errorf("%w: custom event id %q", ErrInvalidEvent, ev.EventID)
	}
	return nil
}
