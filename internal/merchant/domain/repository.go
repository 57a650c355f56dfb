package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, merchant *Merchant) error
	FindByOrganization(ctx context.Context, db *gorm.DB, orgID string) (*Merchant, error)
	UpdateOnboardingLink(ctx context.Context, db *gorm.DB, orgID, link string, updatedAt time.Time) error
}
