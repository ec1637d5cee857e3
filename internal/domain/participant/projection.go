package participant

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rpggio/studyevents/internal/validation"
)

// Account is the subset of an account the reconciler reads.
type Account struct {
	AppID          string
	HealthCode     string
	DataGroups     []string
	Languages      []string
	SharingScope   SharingScope
	ClientTimeZone string
	Enrollments    []Enrollment
}

// Enrollment is an account's membership in a study.
type Enrollment struct {
	StudyID     string
	ExternalID  string
	WithdrawnOn *time.Time
}

// Participant is the request-scoped view of a participant, as seen during a
// session or schedule fetch.
type Participant struct {
	HealthCode   string
	DataGroups   []string
	Languages    []string
	SharingScope SharingScope
	StudyIDs     []string
	ExternalIDs  map[string]string
}

// FromAccount projects an account onto the versioned attributes. Withdrawn
// enrollments are not memberships.
func FromAccount(a Account, at time.Time) Version {
	memberships := make(map[string]string, len(a.Enrollments))
	for _, enrollment := range a.Enrollments {
		if enrollment.WithdrawnOn != nil {
			continue
		}
		memberships[enrollment.StudyID] = enrollment.ExternalID
	}
	return Version{
		AppID:            a.AppID,
		HealthCode:       a.HealthCode,
		DataGroups:       normalizeSet(a.DataGroups),
		Languages:        copyStrings(a.Languages),
		SharingScope:     a.SharingScope,
		StudyMemberships: memberships,
		TimeZone:         offsetForZone(a.ClientTimeZone, at),
	}
}

// FromParticipant projects a participant onto the versioned attributes. The
// time zone is recorded as its offset at the given instant.
func FromParticipant(appID string, p Participant, tz *time.Location, at time.Time) Version {
	memberships := make(map[string]string, len(p.StudyIDs))
	for _, studyID := range p.StudyIDs {
		memberships[studyID] = p.ExternalIDs[studyID]
	}
	v := Version{
		AppID:            appID,
		HealthCode:       p.HealthCode,
		DataGroups:       normalizeSet(p.DataGroups),
		Languages:        copyStrings(p.Languages),
		SharingScope:     p.SharingScope,
		StudyMemberships: memberships,
	}
	if tz != nil {
		v.TimeZone = FormatOffset(tz, at)
	}
	return v
}

// FormatOffset renders the offset of loc at the given instant as "±HH:MM".
func FormatOffset(loc *time.Location, at time.Time) string {
	return at.In(loc).Format("-07:00")
}

// LoadZone resolves an IANA zone name or a fixed "±HH:MM" offset.
func LoadZone(zone string) (*time.Location, error) {
	if validation.IsFixedOffset(zone) {
		hours, _ := strconv.Atoi(zone[1:3])
		minutes, _ := strconv.Atoi(zone[4:6])
		offset := hours*3600 + minutes*60
		if zone[0] == '-' {
			offset = -offset
		}
		return time.FixedZone(zone, offset), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil || zone == "" {
		return nil, fmt.Errorf("%w: unknown time zone %q", ErrInvalidInput, zone)
	}
	return loc, nil
}

// offsetForZone accepts either a fixed offset or an IANA zone name. Unknown
// zones yield no time zone.
func offsetForZone(zone string, at time.Time) string {
	if zone == "" {
		return ""
	}
	if validation.IsFixedOffset(zone) {
		return zone
	}
	loc, err := LoadZone(zone)
	if err != nil {
		return ""
	}
	return FormatOffset(loc, at)
}

func copyStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
