package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/harvester/config"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/domain/model"
	obserrors "github.com/target/harvester/internal/observability/errors"
	"github.com/target/harvester/internal/observability/metrics"
	"github.com/target/harvester/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required: job queue maintenance
	RunLogs core.RunLogPruner     // Optional: run log retention
	Config  config.ReaperConfig   // Required: reaper configuration
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// ReaperService keeps the queue and the audit trail bounded.
//
// Each pass:
//   - fails pending jobs that were never picked up,
//   - deletes old completed and failed jobs,
//   - deletes run logs past retention.
type ReaperService struct {
	repo    core.ReaperRepository
	runLogs core.RunLogPruner
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper_service")
	logger.Debug("ReaperService initialized",
		"interval", opts.Config.Interval,
		"pending_max_age", opts.Config.PendingMaxAge,
		"completed_max_age", opts.Config.CompletedMaxAge,
		"failed_max_age", opts.Config.FailedMaxAge,
		"run_log_max_age", opts.Config.RunLogMaxAge,
	)

	return &ReaperService{
		repo:    opts.Repo,
		runLogs: opts.RunLogs,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run performs a cleanup pass every interval until ctx is cancelled.
// Returns nil on graceful shutdown.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)

	// Stagger replicas that start together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(ctx, err, "initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(ctx, err, "cleanup")
			}
		}
	}
}

// waitWithJitter sleeps up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	t := time.NewTimer(jitter)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

type cleanupStep struct {
	operation string
	maxAge    time.Duration
	fn        func(context.Context) (int64, error)
}

type cleanupOutcome struct {
	operation string
	count     int64
	err       error
}

// RunOnce performs every cleanup step once. Steps run independently; their
// errors are joined.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := time.Now()
	steps := s.steps()
	outcomes := make([]cleanupOutcome, 0, len(steps))
	var errs []error

	for _, step := range steps {
		count, err := step.fn(ctx)
		outcomes = append(outcomes, cleanupOutcome{operation: step.operation, count: count, err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.operation, err))
			continue
		}
		if count > 0 {
			s.logger.InfoContext(ctx, "reaper step finished",
				"operation", step.operation,
				"count", count,
				"max_age", step.maxAge,
			)
		}
	}

	s.emitCleanupMetrics(outcomes, time.Since(start))

	if len(errs) == 0 {
		return nil
	}
	joined := errors.Join(errs...)
	if allCanceled(outcomes) {
		return context.Canceled
	}
	return fmt.Errorf("cleanup failed: %w", joined)
}

func (s *ReaperService) steps() []cleanupStep {
	cfg := s.config
	steps := []cleanupStep{
		{
			operation: "fail_pending",
			maxAge:    cfg.PendingMaxAge,
			fn: func(ctx context.Context) (int64, error) {
				return drainBatches(ctx, func(ctx context.Context) (int64, error) {
					return s.repo.FailStalePendingJobs(ctx, cfg.PendingMaxAge, cfg.BatchSize)
				})
			},
		},
		{
			operation: "delete_completed",
			maxAge:    cfg.CompletedMaxAge,
			fn:        s.deleteJobs(model.JobStatusCompleted, cfg.CompletedMaxAge),
		},
		{
			operation: "delete_failed",
			maxAge:    cfg.FailedMaxAge,
			fn:        s.deleteJobs(model.JobStatusFailed, cfg.FailedMaxAge),
		},
	}
	if s.runLogs != nil {
		steps = append(steps, cleanupStep{
			operation: "delete_run_logs",
			maxAge:    cfg.RunLogMaxAge,
			fn: func(ctx context.Context) (int64, error) {
				return drainBatches(ctx, func(ctx context.Context) (int64, error) {
					return s.runLogs.DeleteOlderThan(ctx, cfg.RunLogMaxAge, cfg.BatchSize)
				})
			},
		})
	}
	return steps
}

func (s *ReaperService) deleteJobs(status model.JobStatus, maxAge time.Duration) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		return drainBatches(ctx, func(ctx context.Context) (int64, error) {
			return s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    status,
				MaxAge:    maxAge,
				BatchSize: s.config.BatchSize,
			})
		})
	}
}

// drainBatches repeats batch until it affects no rows.
func drainBatches(ctx context.Context, batch func(context.Context) (int64, error)) (int64, error) {
	var total int64
	for {
		n, err := batch(ctx)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func (s *ReaperService) emitCleanupMetrics(outcomes []cleanupOutcome, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	var total int64
	var firstErr error
	for _, o := range outcomes {
		total += o.count
		if firstErr == nil {
			firstErr = suppressContextCancellation(o.err)
		}
		s.emitOperationMetric(o)
	}

	tags := map[string]string{"result": resultFor(total, firstErr)}
	if firstErr != nil {
		tags["error_class"] = obserrors.Classify(firstErr)
	}
	s.metrics.Count("reaper.cleanup", 1, tags)
	if elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", elapsed, metrics.CloneTags(tags))
	}
	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitOperationMetric(o cleanupOutcome) {
	err := suppressContextCancellation(o.err)
	tags := map[string]string{
		"operation": o.operation,
		"result":    resultFor(o.count, err),
	}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	s.metrics.Count("reaper.cleanup_operation", 1, tags)
	if err == nil && o.count > 0 {
		s.metrics.Count("reaper.rows_processed", o.count, metrics.CloneTags(tags))
	}
}

func resultFor(count int64, err error) string {
	switch {
	case err != nil:
		return metrics.ResultError
	case count == 0:
		return metrics.ResultNoop
	default:
		return metrics.ResultSuccess
	}
}

func (s *ReaperService) logCleanupError(ctx context.Context, err error, label string) {
	if err == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}

func allCanceled(outcomes []cleanupOutcome) bool {
	sawErr := false
	for _, o := range outcomes {
		if o.err == nil {
			continue
		}
		sawErr = true
		if !isContextCancellation(o.err) {
			return false
		}
	}
	return sawErr
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
