package app

import (
	"fmt"
	"strings"

	"github.com/rpggio/studyevents/internal/period"
	"github.com/rpggio/studyevents/internal/validation"
)

var validate = validation.New()

type appInput struct {
	ID           string                `json:"id" validate:"required"`
	Name         string                `json:"name" validate:"required"`
	CustomEvents map[string]UpdateType `json:"custom_events" validate:"dive,keys,eventkey,endkeys,oneof=IMMUTABLE MUTABLE FUTURE_ONLY"`
}

// Validate checks an app configuration before it is stored.
func Validate(a *App) error {
	if a == nil {
		return ErrInvalidInput
	}
	if err := validate.Struct(appInput{
		ID:           strings.TrimSpace(a.ID),
		Name:         strings.TrimSpace(a.Name),
		CustomEvents: a.CustomEvents,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	for key, value := range a.AutomaticCustomEvents {
		rule, err := ParseAutomaticEvent(key, value)
		if err != nil {
			return err
		}
		if _, declared := a.CustomEvents[rule.Key]; declared {
			return fmt.Errorf("%w: automatic event %q is also declared as a custom event", ErrInvalidInput, rule.Key)
		}
	}
	return nil
}

// ParseAutomaticEvent parses a rule of the form key -> "origin:ISO8601Period".
// The origin may itself carry a "custom:" prefix, so the period is taken from
// the last colon.
func ParseAutomaticEvent(key, value string) (AutomaticEvent, error) {
	key = TrimCustomPrefix(strings.TrimSpace(key))
	if !validation.IsEventKey(key) {
		return AutomaticEvent{}, fmt.Errorf("%w: automatic event key %q", ErrInvalidInput, key)
	}

	idx := strings.LastIndex(value, ":")
	if idx <= 0 || idx == len(value)-1 {
		return AutomaticEvent{}, fmt.Errorf("%w: automatic event %q must be origin:period, got %q", ErrInvalidInput, key, value)
	}

	origin := TrimCustomPrefix(strings.TrimSpace(value[:idx]))
	if origin == "" {
		return AutomaticEvent{}, fmt.Errorf("%w: automatic event %q has no origin", ErrInvalidInput, key)
	}
	p, err := period.Parse(value[idx+1:])
	if err != nil {
		return AutomaticEvent{}, fmt.Errorf("%w: automatic event %q: %v", ErrInvalidInput, key, err)
	}
	if p.IsZero() {
		return AutomaticEvent{}, fmt.Errorf("%w: automatic event %q has an empty period", ErrInvalidInput, key)
	}

	return AutomaticEvent{Key: key, Origin: origin, Period: p}, nil
}
