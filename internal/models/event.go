package models

import "time"

type EventStatus string

const (
	EventDraft      EventStatus = "DRAFT"
	EventPublished  EventStatus = "PUBLISHED"
	EventInProgress EventStatus = "IN_PROGRESS"
	EventCompleted  EventStatus = "COMPLETED"
	EventCancelled  EventStatus = "CANCELLED"
)

// AcceptsRegistrations reports whether sign-ups are open for this status.
func (s EventStatus) AcceptsRegistrations() bool {
	return s == EventPublished || s == EventInProgress
}

// Event is a read copy synced from the platform core. The registration
// service never creates or edits events; they arrive via the platform
// consumer.
type Event struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Title          string      `gorm:"not null" json:"title"`
	Capacity       *int        `json:"capacity,omitempty"` // nil = unlimited
	Status         EventStatus `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"status"`
	IsPublic       bool        `gorm:"not null" json:"is_public"`
	OrganizationID uint        `gorm:"not null;index" json:"organization_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
