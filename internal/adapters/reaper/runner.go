// Package reaper provides the adapter that runs queue and run-log retention.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/harvester/config"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/observability/statsd"
	"github.com/target/harvester/internal/service"
)

// Runner owns a ReaperService and runs its cleanup loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB      *sql.DB
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics statsd.Sink

	// Repo and RunLogs replace the database-backed repositories.
	Repo    core.ReaperRepository
	RunLogs core.RunLogPruner
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Repo == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	repo := opts.Repo
	if repo == nil {
		repo = data.NewJobRepo(opts.DB, data.RepoConfig{})
	}
	runLogs := opts.RunLogs
	if runLogs == nil && opts.DB != nil {
		runLogs = data.NewRunLogRepo(opts.DB)
	}

	svc, err := service.NewReaperService(service.ReaperServiceOptions{
		Repo:    repo,
		RunLogs: runLogs,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: svc, logger: opts.Logger.With("component", "reaper_runner")}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
