package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, app *App) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*App, error)
	ListByCreator(ctx context.Context, db *gorm.DB, creatorID string) ([]App, error)
	DeleteOwned(ctx context.Context, db *gorm.DB, creatorID string, id int64) (int64, error)
}
