package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the local record of a provider product created for a portal.
// ID is the provider's product id.
type Product struct {
	ID            string          `json:"id" gorm:"primaryKey;type:text"`
	Name          string          `json:"name" gorm:"type:text;not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Organization  string          `json:"organization" gorm:"type:text;not null;index"`
	Merchant      string          `json:"merchant" gorm:"type:text;not null"`
	Interval      Interval        `json:"interval" gorm:"column:billing_interval;type:text;not null"`
	PrivateURL    string          `json:"private_url" gorm:"column:private_url;type:text"`
	StripePriceID string          `json:"stripe_price_id" gorm:"type:text;not null"`
	PaymentLink   string          `json:"payment_link" gorm:"type:text"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
