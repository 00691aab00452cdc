package model

import "time"

// ActivityKind identifies the source of an activity event.
type ActivityKind string

const (
	ActivityKindUser    ActivityKind = "user"
	ActivityKindProject ActivityKind = "project"
)

// ActivityEvent is a derived, read-only notification entry.
type ActivityEvent struct {
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"time"`
	Kind      ActivityKind `json:"type"`
}

// ActivityType names a persisted activity log entry.
type ActivityType string

const (
	ActivityAccountRegistered    ActivityType = "account_registered"
	ActivityAccountUpdated       ActivityType = "account_updated"
	ActivityAccountStatusChanged ActivityType = "account_status_changed"
	ActivityAccountDeleted       ActivityType = "account_deleted"
	ActivityProjectCreated       ActivityType = "project_created"
	ActivityProjectUpdated       ActivityType = "project_updated"
	ActivityProjectDeleted       ActivityType = "project_deleted"
)

// ValidActivityTypes lists every persisted activity type.
var ValidActivityTypes = []ActivityType{
	ActivityAccountRegistered,
	ActivityAccountUpdated,
	ActivityAccountStatusChanged,
	ActivityAccountDeleted,
	ActivityProjectCreated,
	ActivityProjectUpdated,
	ActivityProjectDeleted,
}

// IsValid checks if the activity type is known.
func (t ActivityType) IsValid() bool {
	for _, v := range ValidActivityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ActivityLogEntry is a persisted audit record of something that happened.
type ActivityLogEntry struct {
	ID        string       `json:"id"`
	EventID   string       `json:"-"` // stream id, idempotency key
	ActorID   string       `json:"actor_id,omitempty"`
	Type      ActivityType `json:"type"`
	SubjectID string       `json:"subject_id,omitempty"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}

// DashboardStats holds the admin dashboard totals.
type DashboardStats struct {
	Users     int64 `json:"users"`
	Projects  int64 `json:"projects"`
	Completed int64 `json:"completed"`
}
