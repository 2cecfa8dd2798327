package repository

import (
	"context"

	"github.com/maix-platform/registration-service/internal/models"
	"gorm.io/gorm"
)

// statusOrderExpr sorts by the platform's status enum order (CONFIRMED,
// CANCELLED, WAITLISTED), not alphabetically. Kept for API compatibility
// with the upstream listing behavior.
const statusOrderExpr = "CASE status WHEN 'CONFIRMED' THEN 0 WHEN 'CANCELLED' THEN 1 WHEN 'WAITLISTED' THEN 2 ELSE 3 END"

type RegistrationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, reg *models.Registration) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Registration, error)
	FindActiveByEmail(ctx context.Context, tx *gorm.DB, eventID uint, email string) (*models.Registration, error)
	FindOldestWaitlisted(ctx context.Context, tx *gorm.DB, eventID uint) (*models.Registration, error)
	CountConfirmed(ctx context.Context, tx *gorm.DB, eventID uint, excludeID uint) (int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, regID uint, status models.RegistrationStatus) error
	Save(ctx context.Context, tx *gorm.DB, reg *models.Registration) error
	ListByEvent(ctx context.Context, eventID uint, statuses []models.RegistrationStatus, limit, offset int) ([]models.Registration, int64, error)
	CountByStatus(ctx context.Context, eventID uint) (map[models.RegistrationStatus]int64, error)
	GetDB() *gorm.DB
}

type registrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *registrationRepository) Create(ctx context.Context, tx *gorm.DB, reg *models.Registration) error {
	return tx.WithContext(ctx).Create(reg).Error
}

func (r *registrationRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Registration, error) {
	var reg models.Registration
	if err := tx.WithContext(ctx).First(&reg, id).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) FindActiveByEmail(ctx context.Context, tx *gorm.DB, eventID uint, email string) (*models.Registration, error) {
	var reg models.Registration
	err := tx.WithContext(ctx).
		Where("event_id = ? AND email = ? AND status <> ?", eventID, email, models.StatusCancelled).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindOldestWaitlisted returns the next registration in line for promotion.
func (r *registrationRepository) FindOldestWaitlisted(ctx context.Context, tx *gorm.DB, eventID uint) (*models.Registration, error) {
	var reg models.Registration
	err := tx.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, models.StatusWaitlisted).
		Order("created_at ASC, id ASC").
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// CountConfirmed counts confirmed registrations for an event. excludeID, when
// non-zero, leaves that row out of the count (used when re-confirming an
// existing registration).
func (r *registrationRepository) CountConfirmed(ctx context.Context, tx *gorm.DB, eventID uint, excludeID uint) (int64, error) {
	q := tx.WithContext(ctx).
		Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", eventID, models.StatusConfirmed)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, regID uint, status models.RegistrationStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ?", regID).
		Update("status", status).Error
}

func (r *registrationRepository) Save(ctx context.Context, tx *gorm.DB, reg *models.Registration) error {
	return tx.WithContext(ctx).Save(reg).Error
}

func (r *registrationRepository) ListByEvent(ctx context.Context, eventID uint, statuses []models.RegistrationStatus, limit, offset int) ([]models.Registration, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Registration{}).Where("event_id = ?", eventID)
	if len(statuses) > 0 {
		base = base.Where("status IN ?", statuses)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var regs []models.Registration
	q := base.Session(&gorm.Session{}).Order(statusOrderExpr).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&regs).Error; err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func (r *registrationRepository) CountByStatus(ctx context.Context, eventID uint) (map[models.RegistrationStatus]int64, error) {
	type row struct {
		Status models.RegistrationStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Select("status, COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.RegistrationStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
