package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, organization, id string) (*Product, error)
	ListByOrganization(ctx context.Context, db *gorm.DB, organization string) ([]Product, error)
}
