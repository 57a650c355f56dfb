package repository

import (
	"context"
	"time"

	"github.com/happybase/portal/internal/merchant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *domain.Merchant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO merchants (id, organization, first_name, last_name, email, onboarding_link, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.OrganizationID,
		m.FirstName,
		m.LastName,
		m.Email,
		m.OnboardingLink,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) FindByOrganization(ctx context.Context, db *gorm.DB, orgID string) (*domain.Merchant, error) {
	var m domain.Merchant
	err := db.WithContext(ctx).Raw(
		`SELECT id, organization, first_name, last_name, email, onboarding_link, created_at, updated_at
		 FROM merchants WHERE organization = ?`,
		orgID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == "" {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) UpdateOnboardingLink(ctx context.Context, db *gorm.DB, orgID, link string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE merchants SET onboarding_link = ?, updated_at = ? WHERE organization = ?`,
		link,
		updatedAt,
		orgID,
	).Error
}
