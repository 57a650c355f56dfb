package domain

import "time"

// App is a hosted workspace a creator registered for broadcasting.
type App struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	CreatorID  string    `json:"creator_id" gorm:"type:text;not null;index"`
	Name       string    `json:"name" gorm:"type:text;not null"`
	URL        string    `json:"url" gorm:"type:text;not null"`
	CatalogKey string    `json:"catalog_key" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
}

func (App) TableName() string { return "apps" }
