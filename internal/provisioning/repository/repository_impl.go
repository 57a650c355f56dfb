package repository

import (
	"context"
	"time"

	"github.com/happybase/portal/internal/provisioning/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, step *domain.Step) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO provisioning_steps (id, correlation_id, workflow, organization, step, external_id, terminal, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID,
		step.CorrelationID,
		step.Workflow,
		step.Organization,
		step.Step,
		step.ExternalID,
		step.Terminal,
		step.Metadata,
		step.CreatedAt,
	).Error
}

func (r *repo) ListOpenCorrelationIDs(ctx context.Context, db *gorm.DB, startedBefore time.Time, limit int) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Raw(
		`SELECT correlation_id
		 FROM provisioning_steps
		 GROUP BY correlation_id
		 HAVING SUM(CASE WHEN terminal THEN 1 ELSE 0 END) = 0 AND MIN(created_at) < ?
		 ORDER BY MIN(created_at) ASC
		 LIMIT ?`,
		startedBefore,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ListByCorrelationIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Step, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var steps []domain.Step
	err := db.WithContext(ctx).Raw(
		`SELECT id, correlation_id, workflow, organization, step, external_id, terminal, metadata, created_at
		 FROM provisioning_steps
		 WHERE correlation_id IN ?
		 ORDER BY correlation_id ASC, created_at ASC, id ASC`,
		ids,
	).Scan(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}
