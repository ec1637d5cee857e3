package participant

import (
	"sort"
	"time"
)

// SharingScope is the participant's data sharing choice.
type SharingScope string

const (
	SharingNone                    SharingScope = "NO_SHARING"
	SharingSponsorsAndPartners     SharingScope = "SPONSORS_AND_PARTNERS"
	SharingAllQualifiedResearchers SharingScope = "ALL_QUALIFIED_RESEARCHERS"
)

// Version is an immutable snapshot of a participant's mutable attributes.
// Versions of one (AppID, HealthCode) lineage are numbered from 1 without gaps
// and share the CreatedOn of the first version.
type Version struct {
	AppID              string            `json:"app_id" validate:"required"`
	HealthCode         string            `json:"health_code" validate:"required"`
	ParticipantVersion int               `json:"participant_version"`
	CreatedOn          time.Time         `json:"created_on"`
	ModifiedOn         time.Time         `json:"modified_on"`
	DataGroups         []string          `json:"data_groups"`
	Languages          []string          `json:"languages"`
	SharingScope       SharingScope      `json:"sharing_scope,omitempty" validate:"omitempty,oneof=NO_SHARING SPONSORS_AND_PARTNERS ALL_QUALIFIED_RESEARCHERS"`
	StudyMemberships   map[string]string `json:"study_memberships"`
	TimeZone           string            `json:"time_zone,omitempty" validate:"offset"`
}

// SameAttributes compares the reconciled attributes only: data groups as a
// set, languages in order, sharing scope, study memberships and time zone.
// Nil and empty collections are equal.
func (v *Version) SameAttributes(other *Version) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.SharingScope != other.SharingScope || v.TimeZone != other.TimeZone {
		return false
	}
	if !equalStrings(normalizeSet(v.DataGroups), normalizeSet(other.DataGroups)) {
		return false
	}
	if !equalStrings(v.Languages, other.Languages) {
		return false
	}
	if len(v.StudyMemberships) != len(other.StudyMemberships) {
		return false
	}
	for studyID, externalID := range v.StudyMemberships {
		otherID, ok := other.StudyMemberships[studyID]
		if !ok || otherID != externalID {
			return false
		}
	}
	return true
}

// normalizeSet returns the sorted, de-duplicated members of values.
func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CreateResult reports whether reconciliation stored a new version. Version
// is the latest stored version either way.
type CreateResult struct {
	Version *Version `json:"version"`
	Created bool     `json:"created"`
}
