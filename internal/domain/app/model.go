package app

import (
	"sort"
	"strings"
	"time"

	"github.com/rpggio/studyevents/internal/period"
)

// UpdateType controls whether a newer value of an activity event may replace
// the one already recorded.
type UpdateType string

const (
	UpdateImmutable  UpdateType = "IMMUTABLE"
	UpdateMutable    UpdateType = "MUTABLE"
	UpdateFutureOnly UpdateType = "FUTURE_ONLY"
)

// Valid reports whether the update type is known.
func (u UpdateType) Valid() bool {
	switch u {
	case UpdateImmutable, UpdateMutable, UpdateFutureOnly:
		return true
	}
	return false
}

// CustomEventPrefix prefixes the event ID of every custom event.
const CustomEventPrefix = "custom:"

// App holds the per-app configuration consulted when publishing events.
type App struct {
	ID                    string                `json:"id"`
	Name                  string                `json:"name"`
	CustomEvents          map[string]UpdateType `json:"custom_events"`
	AutomaticCustomEvents map[string]string     `json:"automatic_custom_events"`
	CreatedOn             time.Time             `json:"created_on"`
	ModifiedOn            time.Time             `json:"modified_on"`
}

// AutomaticEvent is a parsed automatic custom event rule: when an event whose
// key equals Origin is published, Key is published at origin + Period.
type AutomaticEvent struct {
	Key    string
	Origin string
	Period period.Period
}

// TrimCustomPrefix strips a leading "custom:" from an event key.
func TrimCustomPrefix(key string) string {
	return strings.TrimPrefix(key, CustomEventPrefix)
}

// CustomEventUpdateType resolves the update type of a custom event key.
// Automatic event keys are implicitly declared as mutable custom events.
func (a *App) CustomEventUpdateType(key string) (UpdateType, bool) {
	key = TrimCustomPrefix(key)
	if key == "" {
		return "", false
	}
	if updateType, ok := a.CustomEvents[key]; ok {
		return updateType, true
	}
	for autoKey := range a.AutomaticCustomEvents {
		if TrimCustomPrefix(autoKey) == key {
			return UpdateMutable, true
		}
	}
	return "", false
}

// AutomaticEvents parses the automatic custom event rules. Rules that fail to
// parse are skipped; Validate rejects them before they are stored.
func (a *App) AutomaticEvents() []AutomaticEvent {
	rules := make([]AutomaticEvent, 0, len(a.AutomaticCustomEvents))
	for key, value := range a.AutomaticCustomEvents {
		rule, err := ParseAutomaticEvent(key, value)
		if err != nil {
			continue
		}
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Key < rules[j].Key })
	return rules
}
