package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/maix-platform/registration-service/internal/models"
	"github.com/maix-platform/registration-service/internal/repository"
	"gorm.io/gorm"
)

// Publisher is the broker surface the service needs for notification
// fan-out. *rabbitmq.Publisher satisfies it in production.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventNotAccepting     = errors.New("event is not accepting registrations")
	ErrPrivateEvent          = errors.New("this event is private: organization membership required")
	ErrDuplicateRegistration = errors.New("an active registration already exists for this email")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrAlreadyCancelled      = errors.New("registration is already cancelled")
	ErrForbidden             = errors.New("not allowed to manage registrations for this event")
	ErrCapacityExceeded      = errors.New("event is at capacity")
	ErrInvalidStatus         = errors.New("invalid registration status")
)

type CreateRegistrationInput struct {
	Name   string
	Email  string
	Notes  string
	UserID *string
}

type UpdateRegistrationInput struct {
	Status *models.RegistrationStatus
	Notes  *string
}

type CancelRegistrationInput struct {
	Email  *string
	UserID *string
}

type ListFilter struct {
	Statuses []models.RegistrationStatus
	Limit    int
	Offset   int
}

type RegistrationStats struct {
	Total      int64 `json:"total"`
	Confirmed  int64 `json:"confirmed"`
	Waitlisted int64 `json:"waitlisted"`
	Cancelled  int64 `json:"cancelled"`
}

type RegistrationService interface {
	CreateRegistration(ctx context.Context, eventID uint, input CreateRegistrationInput) (*models.Registration, error)
	UpdateRegistration(ctx context.Context, requesterUserID string, regID uint, input UpdateRegistrationInput) (*models.Registration, error)
	CancelRegistration(ctx context.Context, regID uint, input CancelRegistrationInput) (*models.Registration, error)
	GetRegistration(ctx context.Context, id uint) (*models.Registration, error)
	GetRegistrationByEmail(ctx context.Context, eventID uint, email string) (*models.Registration, error)
	ListEventRegistrations(ctx context.Context, requesterUserID string, eventID uint, filter ListFilter) ([]models.Registration, int64, error)
	GetRegistrationStats(ctx context.Context, eventID uint) (*RegistrationStats, error)
	CanManageRegistrations(ctx context.Context, userID string, eventID uint) (bool, error)
}

type registrationService struct {
	regRepo    repository.RegistrationRepository
	eventRepo  repository.EventRepository
	memberRepo repository.MembershipRepository
	publisher  Publisher
}

func NewRegistrationService(
	regRepo repository.RegistrationRepository,
	eventRepo repository.EventRepository,
	memberRepo repository.MembershipRepository,
	publisher Publisher,
) RegistrationService {
	return &registrationService{
		regRepo:    regRepo,
		eventRepo:  eventRepo,
		memberRepo: memberRepo,
		publisher:  publisher,
	}
}

func (s *registrationService) CreateRegistration(ctx context.Context, eventID uint, input CreateRegistrationInput) (*models.Registration, error) {
	// Stored emails are normalized so the duplicate check and the partial
	// unique index see "A@example.com" and "a@example.com" as one address.
	input.Email = normalizeEmail(input.Email)

	var result *models.Registration

	err := s.regRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the event row — serializes concurrent sign-up attempts
		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		// 2. Only published or in-progress events take sign-ups
		if !event.Status.AcceptsRegistrations() {
			return ErrEventNotAccepting
		}

		// 3. Private events require organization membership
		if !event.IsPublic {
			if input.UserID == nil {
				return ErrPrivateEvent
			}
			member, err := s.memberRepo.Exists(ctx, event.OrganizationID, *input.UserID)
			if err != nil {
				return err
			}
			if !member {
				return ErrPrivateEvent
			}
		}

		// 4. One active registration per (event, email)
		_, err = s.regRepo.FindActiveByEmail(ctx, tx, eventID, input.Email)
		if err == nil {
			return ErrDuplicateRegistration
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 5. Confirm while under capacity, waitlist beyond it
		status := models.StatusConfirmed
		if event.Capacity != nil {
			confirmed, err := s.regRepo.CountConfirmed(ctx, tx, eventID, 0)
			if err != nil {
				return err
			}
			if confirmed >= int64(*event.Capacity) {
				status = models.StatusWaitlisted
			}
		}

		reg := &models.Registration{
			EventID:          eventID,
			UserID:           input.UserID,
			Name:             input.Name,
			Email:            input.Email,
			Metadata:         models.RegistrationMetadata{Notes: input.Notes},
			Status:           status,
			ConfirmationCode: uuid.NewString(),
		}
		if err := s.regRepo.Create(ctx, tx, reg); err != nil {
			return err
		}
		result = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("registration.created", result)
	return result, nil
}

func (s *registrationService) UpdateRegistration(ctx context.Context, requesterUserID string, regID uint, input UpdateRegistrationInput) (*models.Registration, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	var result *models.Registration

	err := s.regRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg, err := s.regRepo.FindByID(ctx, tx, regID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, reg.EventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		// Re-read after taking the event lock: a concurrent cancel may have
		// committed while we waited, and the save below must not overwrite
		// that state with the stale pre-lock copy.
		reg, err = s.regRepo.FindByID(ctx, tx, regID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		manager, err := s.memberRepo.Exists(ctx, event.OrganizationID, requesterUserID)
		if err != nil {
			return err
		}
		if !manager {
			return ErrForbidden
		}

		if input.Status != nil {
			// Confirming must not push the event over capacity. The count
			// excludes the row being updated and runs before any write, so a
			// failed check leaves the registration untouched.
			if *input.Status == models.StatusConfirmed && event.Capacity != nil {
				confirmed, err := s.regRepo.CountConfirmed(ctx, tx, reg.EventID, reg.ID)
				if err != nil {
					return err
				}
				if confirmed >= int64(*event.Capacity) {
					return ErrCapacityExceeded
				}
			}
			reg.Status = *input.Status
		}
		if input.Notes != nil {
			reg.Metadata.Notes = *input.Notes
		}

		if err := s.regRepo.Save(ctx, tx, reg); err != nil {
			return err
		}
		result = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *registrationService) CancelRegistration(ctx context.Context, regID uint, input CancelRegistrationInput) (*models.Registration, error) {
	var result *models.Registration
	var promoted *models.Registration

	err := s.regRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg, err := s.regRepo.FindByID(ctx, tx, regID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		// Lock the event row so concurrent cancellations cannot promote the
		// same waitlisted registration twice. The event copy can be missing
		// if the platform removed it; cancellation still proceeds, only the
		// organizer authorization path is unavailable then.
		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, reg.EventID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Re-read after taking the lock: a concurrent cancel of the same
		// registration may have committed while we waited, and the terminal
		// check below must run on fresh state or one freed slot would
		// promote twice.
		reg, err = s.regRepo.FindByID(ctx, tx, regID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		if reg.Status == models.StatusCancelled {
			return ErrAlreadyCancelled
		}

		allowed, err := s.mayCancel(ctx, reg, event, input)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrForbidden
		}

		wasConfirmed := reg.Status == models.StatusConfirmed

		if err := s.regRepo.UpdateStatus(ctx, tx, reg.ID, models.StatusCancelled); err != nil {
			return err
		}
		reg.Status = models.StatusCancelled
		result = reg

		// A freed confirmed slot promotes exactly one registration: the
		// oldest on the waitlist.
		if wasConfirmed {
			next, err := s.regRepo.FindOldestWaitlisted(ctx, tx, reg.EventID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return err
			}
			if err := s.regRepo.UpdateStatus(ctx, tx, next.ID, models.StatusConfirmed); err != nil {
				return err
			}
			next.Status = models.StatusConfirmed
			promoted = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("registration.cancelled", result)
	if promoted != nil {
		s.publish("registration.promoted", promoted)
	}
	return result, nil
}

// mayCancel implements the three self-service/organizer cancellation paths:
// matching email, owning user, or a member of the event's organization.
func (s *registrationService) mayCancel(ctx context.Context, reg *models.Registration, event *models.Event, input CancelRegistrationInput) (bool, error) {
	if input.Email != nil && strings.EqualFold(*input.Email, reg.Email) {
		return true, nil
	}
	if input.UserID != nil {
		if reg.UserID != nil && *reg.UserID == *input.UserID {
			return true, nil
		}
		if event != nil {
			return s.memberRepo.Exists(ctx, event.OrganizationID, *input.UserID)
		}
	}
	return false, nil
}

func (s *registrationService) GetRegistration(ctx context.Context, id uint) (*models.Registration, error) {
	reg, err := s.regRepo.FindByID(ctx, s.regRepo.GetDB(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

// GetRegistrationByEmail returns the active registration for (event, email),
// or nil when there is none. Used for self-service status lookups.
func (s *registrationService) GetRegistrationByEmail(ctx context.Context, eventID uint, email string) (*models.Registration, error) {
	reg, err := s.regRepo.FindActiveByEmail(ctx, s.regRepo.GetDB(), eventID, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) ListEventRegistrations(ctx context.Context, requesterUserID string, eventID uint, filter ListFilter) ([]models.Registration, int64, error) {
	manager, err := s.CanManageRegistrations(ctx, requesterUserID, eventID)
	if err != nil {
		return nil, 0, err
	}
	if !manager {
		return nil, 0, ErrForbidden
	}
	return s.regRepo.ListByEvent(ctx, eventID, filter.Statuses, filter.Limit, filter.Offset)
}

func (s *registrationService) GetRegistrationStats(ctx context.Context, eventID uint) (*RegistrationStats, error) {
	counts, err := s.regRepo.CountByStatus(ctx, eventID)
	if err != nil {
		return nil, err
	}

	stats := &RegistrationStats{
		Confirmed:  counts[models.StatusConfirmed],
		Waitlisted: counts[models.StatusWaitlisted],
		Cancelled:  counts[models.StatusCancelled],
	}
	stats.Total = stats.Confirmed + stats.Waitlisted + stats.Cancelled
	return stats, nil
}

// CanManageRegistrations reports whether the user belongs to the event's
// owning organization.
func (s *registrationService) CanManageRegistrations(ctx context.Context, userID string, eventID uint) (bool, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrEventNotFound
		}
		return false, err
	}
	return s.memberRepo.Exists(ctx, event.OrganizationID, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// publish is best-effort: notification fan-out must never fail a request.
func (s *registrationService) publish(routingKey string, reg *models.Registration) {
	if s.publisher == nil || reg == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, reg); err != nil {
		log.Printf("[RegistrationService] publish %s: %v", routingKey, err)
	}
}
