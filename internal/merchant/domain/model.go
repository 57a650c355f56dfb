package domain

import "time"

// Merchant links an organization to its connected payment account.
// ID is the connected account id.
type Merchant struct {
	ID             string    `json:"id" gorm:"primaryKey;type:text"`
	OrganizationID string    `json:"organization_id" gorm:"column:organization;type:text;not null;uniqueIndex"`
	FirstName      string    `json:"first_name" gorm:"type:text"`
	LastName       string    `json:"last_name" gorm:"type:text"`
	Email          string    `json:"email" gorm:"type:text;not null"`
	OnboardingLink string    `json:"onboarding_link" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null"`
}

func (Merchant) TableName() string { return "merchants" }
