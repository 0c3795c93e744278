// Package scheduler provides the adapter that drives the poll scheduler.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data"
	obserrors "github.com/target/harvester/internal/observability/errors"
	"github.com/target/harvester/internal/observability/metrics"
	"github.com/target/harvester/internal/observability/statsd"
	"github.com/target/harvester/internal/service"
)

// Runner calls Tick on the scheduler service at a fixed interval.
type Runner struct {
	scheduler core.JobScheduler
	interval  time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB       *sql.DB
	Config   *core.SchedulerConfig
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink

	// Scheduler replaces the database-backed scheduler service.
	Scheduler core.JobScheduler
}

// NewRunner creates a new scheduler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Scheduler == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sched := opts.Scheduler
	if sched == nil {
		jobs := data.NewJobRepo(opts.DB, data.RepoConfig{})
		svc, err := service.NewSchedulerService(service.SchedulerServiceOptions{
			Repo:            data.NewScheduledSourcesRepo(opts.DB),
			Jobs:            jobs,
			JobIntrospector: jobs,
			Config:          opts.Config,
			Logger:          opts.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("wire scheduler service: %w", err)
		}
		sched = svc
	}

	return &Runner{
		scheduler: sched,
		interval:  opts.Interval,
		logger:    opts.Logger.With("component", "scheduler_runner"),
		metrics:   opts.Metrics,
	}, nil
}

// Run ticks the scheduler until ctx is cancelled. Tick errors are logged and the loop continues.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting scheduler runner", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "scheduler runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case now := <-ticker.C:
			r.tick(ctx, now)
		}
	}
}

func (r *Runner) tick(ctx context.Context, now time.Time) {
	start := time.Now()
	processed, err := r.scheduler.Tick(ctx, now)
	r.emitTickMetrics(processed, time.Since(start), err)

	switch {
	case err != nil && ctx.Err() == nil:
		r.logger.ErrorContext(ctx, "scheduler tick failed", "error", err, "processed", processed)
	case processed > 0:
		r.logger.InfoContext(ctx, "scheduler tick", "processed", processed)
	}
}

func (r *Runner) emitTickMetrics(processed int, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if processed == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	r.metrics.Count("scheduler.tick", 1, tags)
	if processed > 0 {
		r.metrics.Count("scheduler.sources_processed", int64(processed), tags)
	}
	if elapsed > 0 {
		r.metrics.Timing("scheduler.tick_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		r.metrics.Gauge("scheduler.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}
