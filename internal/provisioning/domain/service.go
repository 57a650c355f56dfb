package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Recorder writes saga markers. Recording is best effort and never fails the workflow.
type Recorder interface {
	Mark(ctx context.Context, m Marker)
}

type Service interface {
	Recorder
	FindOrphans(ctx context.Context, startedBefore time.Time, limit int) ([]Orphan, error)
	Reconcile(ctx context.Context, limit int) (int, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, step *Step) error
	ListOpenCorrelationIDs(ctx context.Context, db *gorm.DB, startedBefore time.Time, limit int) ([]string, error)
	ListByCorrelationIDs(ctx context.Context, db *gorm.DB, ids []string) ([]Step, error)
}
