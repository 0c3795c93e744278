package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/harvester/config"
	"github.com/target/harvester/internal/adapters/jobrunner"
	"github.com/target/harvester/internal/adapters/reaper"
	schedrunner "github.com/target/harvester/internal/adapters/scheduler"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/observability/statsd"
	"github.com/target/harvester/internal/service"
)

// SchedulerConfig contains configuration for scheduler.
type SchedulerConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.SchedulerConfig
	Metrics statsd.Sink
}

// RunScheduler starts the poll scheduler.
func RunScheduler(ctx context.Context, cfg SchedulerConfig) error {
	schedulerCfg := core.SchedulerConfig{
		BatchSize:       cfg.Config.BatchSize,
		DefaultPriority: cfg.Config.DefaultPriority,
		MaxRetries:      cfg.Config.MaxRetries,
		Overrun:         cfg.Config.OverrunPolicy,
		OverrunStates:   cfg.Config.OverrunStates,
	}

	runner, err := schedrunner.NewRunner(schedrunner.RunnerOptions{
		DB:       cfg.DB,
		Config:   &schedulerCfg,
		Interval: cfg.Config.Interval,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create scheduler runner: %w", err)
	}
	return runner.Run(ctx)
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}
	return runner.Run(ctx)
}

// IngestRunnerConfig contains configuration for the ingest job workers.
type IngestRunnerConfig struct {
	Jobs    *service.JobService
	Ingest  *service.IngestService
	Logger  *slog.Logger
	Config  config.IngestRunnerConfig
	Metrics statsd.Sink
}

// RunIngestRunner starts the workers that execute dispatched ingest jobs.
func RunIngestRunner(ctx context.Context, cfg IngestRunnerConfig) error {
	if cfg.Jobs == nil || cfg.Ingest == nil {
		return errors.New("job and ingest services are required")
	}
	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		Jobs:           cfg.Jobs,
		Ingest:         cfg.Ingest,
		Logger:         cfg.Logger,
		Lease:          cfg.Config.JobLease,
		Concurrency:    cfg.Config.Concurrency,
		RetryBaseDelay: cfg.Config.RetryBaseDelay,
		RunTimeout:     cfg.Config.RunTimeout,
		Metrics:        cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create ingest runner: %w", err)
	}
	if runErr := runner.Run(ctx); runErr != nil {
		return fmt.Errorf("run ingest runner: %w", runErr)
	}
	return nil
}
