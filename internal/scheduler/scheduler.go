package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/happybase/portal/internal/clock"
	"github.com/happybase/portal/internal/lock"
	obsmetrics "github.com/happybase/portal/internal/observability/metrics"
	provisioningdomain "github.com/happybase/portal/internal/provisioning/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobReconcileProvisioning = "reconcile_provisioning"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log          *zap.Logger
	Provisioning provisioningdomain.Service
	GenID        *snowflake.Node
	Clock        clock.Clock
	Config       Config                      `optional:"true"`
	Metrics      *obsmetrics.SchedulerMetrics `optional:"true"`
	Locker       *lock.Locker                 `optional:"true"`
}

type Scheduler struct {
	log          *zap.Logger
	cfg          Config
	genID        *snowflake.Node
	clock        clock.Clock
	provisioning provisioningdomain.Service
	metrics      *obsmetrics.SchedulerMetrics
	locker       *lock.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Provisioning == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		genID:        p.GenID,
		clock:        p.Clock,
		provisioning: p.Provisioning,
		metrics:      p.Metrics,
		locker:       p.Locker,
	}, nil
}

// runJob bounds fn by timeout. A deadline is a soft failure: it is counted
// and logged but not returned.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	release, ok := s.acquire(ctx, name, timeout)
	if !ok {
		s.log.Debug("job skipped; another instance holds the lock", zap.String("job", name))
		return nil
	}
	defer release()

	ctx, run := s.startJobRun(ctx, name, batchSize)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	s.finishJobRun(run, err)
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		run.log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// acquire takes the cross-replica job lock when redis is configured.
func (s *Scheduler) acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool) {
	noop := func() {}
	if s.locker == nil {
		return noop, true
	}
	key := jobLockKey(name)
	token, ok, err := s.locker.TryLock(ctx, key, ttl)
	if err != nil {
		s.log.Warn("job lock unavailable; running unlocked", zap.String("job", name), zap.Error(err))
		return noop, true
	}
	if !ok {
		return noop, false
	}
	return func() {
		if err := s.locker.Release(context.Background(), key, token); err != nil {
			s.log.Warn("job lock release failed", zap.String("job", name), zap.Error(err))
		}
	}, true
}

func jobLockKey(name string) string {
	return "happybase:lock:scheduler:" + name
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobReconcileProvisioning, func(ctx context.Context) error {
			return s.runJob(ctx, JobReconcileProvisioning, s.cfg.BatchSize, s.cfg.JobTimeout, s.ReconcileProvisioningJob)
		}},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ReconcileProvisioningJob flags provisioning workflows that created
// provider objects but never reached their terminal step.
func (s *Scheduler) ReconcileProvisioningJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	flagged, err := s.provisioning.Reconcile(ctx, s.cfg.BatchSize)
	run.AddProcessed(flagged)
	s.metrics.AddBatchProcessed(JobReconcileProvisioning, "provisioning_workflow", flagged)
	if err != nil {
		jobError(ctx, "scheduler.reconcile.failed", err, zap.Int("batch_size", s.cfg.BatchSize))
		return err
	}
	return nil
}
