package repository

import (
	"context"

	"github.com/maix-platform/registration-service/internal/models"
	"gorm.io/gorm"
)

type MembershipRepository interface {
	Exists(ctx context.Context, organizationID uint, userID string) (bool, error)
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Exists(ctx context.Context, organizationID uint, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
