package repository

import (
	"context"

	"github.com/happybase/portal/internal/app/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, app *domain.App) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO apps (id, creator_id, name, url, catalog_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		app.ID,
		app.CreatorID,
		app.Name,
		app.URL,
		app.CatalogKey,
		app.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.App, error) {
	var a domain.App
	err := db.WithContext(ctx).Raw(
		`SELECT id, creator_id, name, url, catalog_key, created_at FROM apps WHERE id = ?`,
		id,
	).Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == 0 {
		return nil, nil
	}
	return &a, nil
}

func (r *repo) ListByCreator(ctx context.Context, db *gorm.DB, creatorID string) ([]domain.App, error) {
	var items []domain.App
	err := db.WithContext(ctx).Raw(
		`SELECT id, creator_id, name, url, catalog_key, created_at
		 FROM apps WHERE creator_id = ? ORDER BY created_at DESC, id DESC`,
		creatorID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteOwned(ctx context.Context, db *gorm.DB, creatorID string, id int64) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM apps WHERE id = ? AND creator_id = ?`,
		id,
		creatorID,
	)
	return res.RowsAffected, res.Error
}
