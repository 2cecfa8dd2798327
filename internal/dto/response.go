package dto

import (
	"time"

	"github.com/maix-platform/registration-service/internal/models"
)

type RegistrationResponse struct {
	ID               uint                      `json:"id"`
	EventID          uint                      `json:"event_id"`
	UserID           *string                   `json:"user_id,omitempty"`
	Name             string                    `json:"name"`
	Email            string                    `json:"email"`
	Notes            string                    `json:"notes,omitempty"`
	Status           models.RegistrationStatus `json:"status"`
	ConfirmationCode string                    `json:"confirmation_code"`
	CreatedAt        time.Time                 `json:"created_at"`
}

type RegistrationListResponse struct {
	Registrations []RegistrationResponse `json:"registrations"`
	Total         int64                  `json:"total"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
}

type EventStatusResponse struct {
	ID             uint               `json:"id"`
	Title          string             `json:"title"`
	Status         models.EventStatus `json:"status"`
	IsPublic       bool               `json:"is_public"`
	OrganizationID uint               `json:"organization_id"`
	Capacity       *int               `json:"capacity,omitempty"`
	Confirmed      int64              `json:"confirmed_count"`
	Waitlisted     int64              `json:"waitlisted_count"`
	SpotsAvailable *int64             `json:"spots_available,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToRegistrationResponse(r *models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:               r.ID,
		EventID:          r.EventID,
		UserID:           r.UserID,
		Name:             r.Name,
		Email:            r.Email,
		Notes:            r.Metadata.Notes,
		Status:           r.Status,
		ConfirmationCode: r.ConfirmationCode,
		CreatedAt:        r.CreatedAt,
	}
}
