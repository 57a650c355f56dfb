package scheduler

import (
	"context"
	"time"

	obscontext "github.com/happybase/portal/internal/observability/context"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	obsmetrics "github.com/happybase/portal/internal/observability/metrics"
	"github.com/happybase/portal/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

// jobRun tracks one execution of a job. The run ID doubles as the
// correlation ID so provisioning logs emitted during reconciliation can be
// joined back to the run.
type jobRun struct {
	job       string
	runID     string
	batchSize int
	startedAt time.Time
	processed int
	failed    bool
	log       *zap.Logger
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processed += count
}

func (s *Scheduler) startJobRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithActor(ctx, obscontext.ActorTypeSystem, "scheduler")
	ctx = correlation.ContextWithCorrelationID(ctx, run.runID)
	run.log = obslogger.WithContext(ctx, s.log).With(zap.String("job", job))

	run.log.Info("scheduler.job.start", zap.Int("batch_size", batchSize))
	return ctx, run
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) finishJobRun(run *jobRun, err error) {
	if run == nil {
		return
	}
	fields := []zap.Field{
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processed),
	}
	if err != nil || run.failed {
		if err != nil {
			fields = append(fields,
				zap.String("reason", obsmetrics.ClassifySchedulerJobReason(err)),
				zap.Error(err),
			)
		}
		run.log.Warn("scheduler.job.finish", fields...)
		return
	}
	run.log.Info("scheduler.job.finish", fields...)
}

// jobError logs a failure inside a job body and marks the run as failed.
func jobError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	run := jobRunFromContext(ctx)
	if run == nil || err == nil {
		return
	}
	run.failed = true
	run.log.Error(msg, append(fields, zap.Error(err))...)
}
