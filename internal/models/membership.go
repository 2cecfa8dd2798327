package models

import "time"

// Membership is a read copy of an organization membership, synced from the
// platform core. The registration service only ever asks whether a row
// exists for (organization, user).
type Membership struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;uniqueIndex:idx_membership_org_user" json:"organization_id"`
	UserID         string    `gorm:"not null;uniqueIndex:idx_membership_org_user" json:"user_id"`
	Role           string    `gorm:"not null;default:'MEMBER'" json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}
