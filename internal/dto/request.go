package dto

type CreateRegistrationRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Notes string `json:"notes"`
}

type UpdateRegistrationRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}
