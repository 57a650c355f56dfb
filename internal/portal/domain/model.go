package domain

import (
	"time"

	productdomain "github.com/happybase/portal/internal/product/domain"
	"github.com/shopspring/decimal"
)

// Portal is the public, purchasable face of an app. It shares the app's id.
type Portal struct {
	ID            int64                  `json:"id" gorm:"primaryKey"`
	CreatorID     string                 `json:"creator_id" gorm:"type:text;not null"`
	URL           string                 `json:"url" gorm:"type:text;not null"`
	ProductID     string                 `json:"product_id" gorm:"type:text;not null"`
	Merchant      string                 `json:"merchant" gorm:"type:text;not null"`
	Price         decimal.Decimal        `json:"price" gorm:"type:numeric(12,2);not null"`
	Interval      productdomain.Interval `json:"interval" gorm:"column:billing_interval;type:text;not null"`
	StripePriceID string                 `json:"stripe_price_id" gorm:"type:text;not null"`
	PaymentLink   string                 `json:"payment_link" gorm:"type:text"`
	AccessToken   *string                `json:"-" gorm:"type:text"`
	RedirectURL   *string                `json:"redirect_url,omitempty" gorm:"type:text"`
	CreatedAt     time.Time              `json:"created_at" gorm:"not null"`
}

func (Portal) TableName() string { return "portals" }

// AccessView is what a visitor of the public portal page sees.
type AccessView struct {
	ID           string                 `json:"id"`
	SourceURL    string                 `json:"source_url"`
	PaymentLink  string                 `json:"payment_link"`
	Price        string                 `json:"price"`
	Suffix       string                 `json:"suffix"`
	Interval     productdomain.Interval `json:"interval"`
	ShowCheckout bool                   `json:"show_checkout"`
}

// CTA is the label of the floating subscribe button.
func (v AccessView) CTA() string {
	return "Subscribe " + v.Price + v.Suffix
}
