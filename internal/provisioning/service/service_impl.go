package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/happybase/portal/internal/clock"
	"github.com/happybase/portal/internal/config"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	"github.com/happybase/portal/internal/observability/metrics"
	"github.com/happybase/portal/internal/provisioning/domain"
	"github.com/happybase/portal/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config           config.Config
	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Repo             domain.Repository
	Metrics          *metrics.Metrics          `optional:"true"`
	SchedulerMetrics *metrics.SchedulerMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	metrics  *metrics.Metrics
	schedMet *metrics.SchedulerMetrics

	orphanAfter time.Duration
}

const defaultOrphanAfter = 15 * time.Minute

func New(p Params) domain.Service {
	orphanAfter := p.Config.Reconcile.OrphanAfter
	if orphanAfter <= 0 {
		orphanAfter = defaultOrphanAfter
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("provisioning.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		metrics:     p.Metrics,
		schedMet:    p.SchedulerMetrics,
		orphanAfter: orphanAfter,
	}
}

func (s *Service) Mark(ctx context.Context, m domain.Marker) {
	workflow := strings.TrimSpace(m.Workflow)
	if wf := domain.WorkflowFromContext(ctx); wf != "" {
		workflow = wf
	}
	cid := correlation.ExtractCorrelationID(ctx)
	if cid == "" {
		ctx, cid = correlation.EnsureCorrelationID(ctx)
	}

	step := &domain.Step{
		ID:            s.genID.Generate().Int64(),
		CorrelationID: cid,
		Workflow:      workflow,
		Organization:  strings.TrimSpace(m.Organization),
		Step:          m.Step,
		ExternalID:    m.ExternalID,
		Terminal:      domain.IsTerminal(workflow, m.Step),
		CreatedAt:     s.clock.Now(),
	}
	if len(m.Metadata) > 0 {
		step.Metadata = datatypes.JSONMap(m.Metadata)
	}

	if err := s.repo.Insert(ctx, s.db, step); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("failed to record provisioning step",
			zap.String("workflow", workflow),
			zap.String("step", m.Step),
			zap.String("external_id", m.ExternalID),
			zap.Error(err),
		)
	}
}

func (s *Service) FindOrphans(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Orphan, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := s.repo.ListOpenCorrelationIDs(ctx, s.db, startedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list open workflows: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	steps, err := s.repo.ListByCorrelationIDs(ctx, s.db, ids)
	if err != nil {
		return nil, fmt.Errorf("list workflow steps: %w", err)
	}

	byID := make(map[string]*domain.Orphan, len(ids))
	for _, step := range steps {
		o, ok := byID[step.CorrelationID]
		if !ok {
			o = &domain.Orphan{
				CorrelationID: step.CorrelationID,
				Workflow:      step.Workflow,
				Organization:  step.Organization,
				StartedAt:     step.CreatedAt,
			}
			byID[step.CorrelationID] = o
		}
		o.Steps = append(o.Steps, step)
	}

	out := make([]domain.Orphan, 0, len(ids))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

// Reconcile alerts on stale open workflows and closes them with a flagged
// marker so each orphan is reported once. Provider objects are left untouched.
func (s *Service) Reconcile(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()
	orphans, err := s.FindOrphans(ctx, now.Add(-s.orphanAfter), limit)
	if err != nil {
		return 0, err
	}

	for _, o := range orphans {
		octx := correlation.ContextWithCorrelationID(ctx, o.CorrelationID)
		obslogger.WithContext(octx, s.log).Warn("orphaned provider objects detected",
			zap.String("workflow", o.Workflow),
			zap.String("organization", o.Organization),
			zap.String("last_step", o.LastStep()),
			zap.Strings("external_ids", o.ExternalIDs()),
			zap.Time("started_at", o.StartedAt),
		)
		s.metrics.RecordOrphanedObject(octx, o.LastStep())
		s.schedMet.IncOrphanFound(o.Workflow, o.LastStep())

		s.Mark(octx, domain.Marker{
			Workflow:     o.Workflow,
			Organization: o.Organization,
			Step:         domain.StepOrphanFlagged,
			Metadata:     map[string]any{"last_step": o.LastStep()},
		})
	}
	return len(orphans), nil
}
