package models

import "time"

type RegistrationStatus string

const (
	StatusConfirmed  RegistrationStatus = "CONFIRMED"
	StatusWaitlisted RegistrationStatus = "WAITLISTED"
	StatusCancelled  RegistrationStatus = "CANCELLED"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusWaitlisted, StatusCancelled:
		return true
	}
	return false
}

// RegistrationMetadata holds the free-form fields attached to a sign-up.
type RegistrationMetadata struct {
	Notes string `json:"notes,omitempty"`
}

// Registration records a person's intent to attend an event. UserID is nil
// for anonymous email registrations. CANCELLED is terminal: re-registering
// creates a new row, the partial unique index on (event_id, email) only
// covers non-cancelled rows.
type Registration struct {
	ID               uint                 `gorm:"primaryKey" json:"id"`
	EventID          uint                 `gorm:"not null;index" json:"event_id"`
	UserID           *string              `json:"user_id,omitempty"`
	Name             string               `gorm:"not null" json:"name"`
	Email            string               `gorm:"not null" json:"email"`
	Metadata         RegistrationMetadata `gorm:"serializer:json" json:"metadata"`
	Status           RegistrationStatus   `gorm:"type:varchar(20);not null;default:'CONFIRMED'" json:"status"`
	ConfirmationCode string               `gorm:"not null;uniqueIndex" json:"confirmation_code"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}
