package activity

import "time"

// ActivityType represents the type of audited operation
type ActivityType string

const (
	TypeEventPublished ActivityType = "event_published"
	TypeEventDeleted   ActivityType = "event_deleted"
	TypeVersionCreated ActivityType = "version_created"
	TypeVersionsPurged ActivityType = "versions_purged"
	TypeAppConfigured  ActivityType = "app_configured"
)

// ActivityEntry represents an entry in the audit log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	AppID        string       `json:"app_id"`
	UserID       *string      `json:"user_id,omitempty"`
	StudyID      *string      `json:"study_id,omitempty"`
	Subject      *string      `json:"subject,omitempty"` // event ID, health code or app ID
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
