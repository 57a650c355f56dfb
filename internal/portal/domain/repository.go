package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, portal *Portal) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Portal, error)
}
