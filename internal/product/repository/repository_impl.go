package repository

import (
	"context"

	"github.com/happybase/portal/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, name, price, organization, merchant, billing_interval, private_url, stripe_price_id, payment_link, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.Price,
		product.Organization,
		product.Merchant,
		product.Interval,
		product.PrivateURL,
		product.StripePriceID,
		product.PaymentLink,
		product.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, organization, id string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, price, organization, merchant, billing_interval, private_url, stripe_price_id, payment_link, created_at
		 FROM products WHERE organization = ? AND id = ?`,
		organization,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListByOrganization(ctx context.Context, db *gorm.DB, organization string) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, price, organization, merchant, billing_interval, private_url, stripe_price_id, payment_link, created_at
		 FROM products WHERE organization = ? ORDER BY created_at DESC`,
		organization,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
