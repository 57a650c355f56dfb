package domain

import (
	"context"
	"errors"
	"time"

	"github.com/happybase/portal/internal/config"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, creatorID string) ([]Response, error)
	Get(ctx context.Context, creatorID, id string) (*Response, error)
	Delete(ctx context.Context, creatorID, id string) error
	// GetOwned returns the app only if creatorID owns it.
	GetOwned(ctx context.Context, creatorID string, id int64) (*App, error)
	Catalog() []config.CatalogEntry
}

type CreateRequest struct {
	CreatorID string `json:"-"`
	Name      string `json:"name" binding:"required"`
	URL       string `json:"url" binding:"required"`
}

type Response struct {
	ID         string    `json:"id"`
	CreatorID  string    `json:"creator_id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	CatalogKey string    `json:"catalog_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrInvalidCreator = errors.New("invalid_creator")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidURL     = errors.New("invalid_url")
	ErrDomainMismatch = errors.New("app_domain_mismatch")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)
