package repository

import (
	"context"

	"github.com/happybase/portal/internal/portal/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Portal) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO portals (id, creator_id, url, product_id, merchant, price, billing_interval, stripe_price_id, payment_link, access_token, redirect_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.CreatorID,
		p.URL,
		p.ProductID,
		p.Merchant,
		p.Price,
		p.Interval,
		p.StripePriceID,
		p.PaymentLink,
		p.AccessToken,
		p.RedirectURL,
		p.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Portal, error) {
	var p domain.Portal
	err := db.WithContext(ctx).Raw(
		`SELECT id, creator_id, url, product_id, merchant, price, billing_interval, stripe_price_id, payment_link, access_token, redirect_url, created_at
		 FROM portals WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}
