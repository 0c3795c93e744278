// Package jobrunner executes dispatched ingest runs: workers reserve jobs from the
// queue, keep their lease alive and record the outcome.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/domain/ingest"
	domainjob "github.com/target/harvester/internal/domain/job"
	"github.com/target/harvester/internal/domain/model"
	apperrors "github.com/target/harvester/internal/errors"
	"github.com/target/harvester/internal/observability/metrics"
	"github.com/target/harvester/internal/observability/statsd"
	"github.com/target/harvester/internal/service"
)

const (
	defaultLease      = 60 * time.Second
	defaultRunTimeout = 10 * time.Minute
	finalizeTimeout   = 10 * time.Second
)

// Queue is the subset of service.JobService the runner drives.
type Queue interface {
	ReserveNext(ctx context.Context, jobType model.JobType, lease time.Duration) (*model.Job, error)
	Subscribe() (func(), <-chan struct{})
	Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, params core.FailJobParams) (bool, error)
	FailPermanently(ctx context.Context, id, errMsg string) (bool, error)
}

// Ingester runs the pipeline for one source.
type Ingester interface {
	Run(ctx context.Context, req service.RunRequest) (*model.RunResult, error)
}

// RunnerOptions configures the job runner adapter.
type RunnerOptions struct {
	Jobs   Queue    // Required
	Ingest Ingester // Required
	Logger *slog.Logger

	Lease          time.Duration // per-job lease; defaults to 60s
	Concurrency    int           // worker goroutines; defaults to 1
	RetryBaseDelay time.Duration // first retry delay; doubles per attempt
	RunTimeout     time.Duration // upper bound for one run; defaults to 10m

	Metrics statsd.Sink
}

// Runner pulls ingest jobs and executes them.
type Runner struct {
	jobs       Queue
	ingest     Ingester
	logger     *slog.Logger
	lease      time.Duration
	workers    int
	retry      domainjob.RetryPolicy
	runTimeout time.Duration
	metrics    statsd.Sink
}

// NewRunner constructs a job runner for ingest jobs.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job queue is required")
	}
	if opts.Ingest == nil {
		return nil, errors.New("ingest service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lease := opts.Lease
	if lease <= 0 {
		lease = defaultLease
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	runTimeout := opts.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}

	return &Runner{
		jobs:       opts.Jobs,
		ingest:     opts.Ingest,
		logger:     logger.With("component", "ingest_runner"),
		lease:      lease,
		workers:    workers,
		retry:      domainjob.RetryPolicy{Base: opts.RetryBaseDelay},
		runTimeout: runTimeout,
		metrics:    opts.Metrics,
	}, nil
}

// Run starts worker goroutines and processes jobs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting job runner", "workers", r.workers, "lease", r.lease)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsub, ch := r.jobs.Subscribe()
	defer unsub()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	for range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.workerLoop(ctx, ch); err != nil {
				// first error wins, cancels all workers
				select {
				case errCh <- err:
					cancel()
				default:
				}
			}
		}()
	}

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err()
	}
}

func (r *Runner) workerLoop(ctx context.Context, notify <-chan struct{}) error {
	for ctx.Err() == nil {
		job, err := r.jobs.ReserveNext(ctx, model.JobTypeIngest, r.lease)
		switch {
		case err == nil:
			if job != nil {
				r.processJob(ctx, job)
			}
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForNotify(ctx, notify) {
				return nil
			}
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("reserve next: %w", err)
		}
	}
	return nil
}

func (r *Runner) waitForNotify(ctx context.Context, notify <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case _, ok := <-notify:
		if !ok {
			// Notifier stopped; poll at lease cadence instead.
			t := time.NewTimer(r.lease / 2)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return false
			case <-t.C:
			}
		}
		return true
	}
}

// processJob runs one reserved job and records its outcome on the queue.
func (r *Runner) processJob(ctx context.Context, job *model.Job) {
	start := time.Now()
	logger := r.logger.With("job_id", job.ID, "retry_count", job.RetryCount)
	emit := func(transition, result string, err error) {
		metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
			JobType:    string(job.Type),
			Transition: transition,
			Result:     result,
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	payload, err := job.DecodeIngestPayload()
	if err != nil {
		r.failPermanently(ctx, job.ID, err.Error(), logger)
		emit("failed", metrics.ResultError, err)
		return
	}
	logger = logger.With("source_id", payload.SourceID, "trigger", payload.Trigger)

	runCtx, cancelRun := context.WithTimeout(ctx, r.runTimeout)
	hb := r.startHeartbeat(runCtx, job.ID, cancelRun, logger)
	result, runErr := r.ingest.Run(runCtx, service.RunRequest{SourceID: payload.SourceID, JobID: &job.ID})
	hb.stop()
	cancelRun()

	if hb.lost.Load() {
		emit("lease_lost", metrics.ResultNoop, runErr)
		return
	}

	// Shutdown interrupted the run; the expired lease hands it to another worker.
	if runErr != nil && ctx.Err() != nil {
		logger.InfoContext(ctx, "run interrupted by shutdown", "error", runErr)
		emit("interrupted", metrics.ResultNoop, runErr)
		return
	}

	switch {
	case runErr == nil && result != nil && result.Status == model.RunStatusFailed:
		// Configuration gate: the run was recorded but retrying cannot help.
		r.failPermanently(ctx, job.ID, runLogMessage(result), logger)
		emit("failed", metrics.ResultError, nil)
	case runErr == nil:
		r.complete(ctx, job.ID, logger, emit)
	case isPermanent(runErr):
		logger.WarnContext(ctx, "ingest run failed permanently", "error", runErr)
		r.failPermanently(ctx, job.ID, runErr.Error(), logger)
		emit("failed", metrics.ResultError, runErr)
	default:
		delay := r.retry.Delay(job.RetryCount)
		logger.WarnContext(ctx, "ingest run failed", "error", runErr, "retry_delay", delay)
		r.fail(ctx, core.FailJobParams{ID: job.ID, Error: runErr.Error(), RetryDelay: delay}, logger)
		emit("failed", metrics.ResultError, runErr)
	}
}

type heartbeat struct {
	done chan struct{}
	wg   sync.WaitGroup
	lost atomic.Bool
}

func (h *heartbeat) stop() {
	close(h.done)
	h.wg.Wait()
}

// startHeartbeat extends the lease every half lease until stopped. Losing the
// lease cancels the run and leaves the job to whoever holds it now.
func (r *Runner) startHeartbeat(ctx context.Context, id string, cancelRun context.CancelFunc, logger *slog.Logger) *heartbeat {
	hb := &heartbeat{done: make(chan struct{})}
	hb.wg.Add(1)
	go func() {
		defer hb.wg.Done()
		interval := r.lease / 2
		if interval <= 0 {
			interval = time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hb.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := r.jobs.Heartbeat(ctx, id, r.lease)
				if err != nil {
					logger.WarnContext(ctx, "heartbeat failed", "error", err)
					continue
				}
				if !ok {
					logger.WarnContext(ctx, "job lease lost, cancelling run")
					hb.lost.Store(true)
					cancelRun()
					return
				}
			}
		}
	}()
	return hb
}

func (r *Runner) complete(ctx context.Context, id string, logger *slog.Logger, emit func(string, string, error)) {
	fctx, cancel := finalizeContext(ctx)
	defer cancel()
	completed, err := r.jobs.Complete(fctx, id)
	if err != nil {
		logger.ErrorContext(ctx, "complete job error", "error", err)
		emit("completed", metrics.ResultError, err)
		return
	}
	result := metrics.ResultNoop
	if completed {
		result = metrics.ResultSuccess
	}
	emit("completed", result, nil)
}

func (r *Runner) fail(ctx context.Context, params core.FailJobParams, logger *slog.Logger) {
	fctx, cancel := finalizeContext(ctx)
	defer cancel()
	if _, err := r.jobs.Fail(fctx, params); err != nil {
		logger.ErrorContext(ctx, "fail job error", "error", err, "original_error", params.Error)
	}
}

func (r *Runner) failPermanently(ctx context.Context, id, msg string, logger *slog.Logger) {
	fctx, cancel := finalizeContext(ctx)
	defer cancel()
	if _, err := r.jobs.FailPermanently(fctx, id, msg); err != nil {
		logger.ErrorContext(ctx, "fail job error", "error", err, "original_error", msg)
	}
}

func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

func isPermanent(err error) bool {
	if apperrors.IsNotFound(err) || apperrors.IsValidation(err) {
		return true
	}
	return !ingest.IsRetryable(err)
}

func runLogMessage(result *model.RunResult) string {
	if result.RunLog != nil && result.RunLog.ErrorMessage != nil && *result.RunLog.ErrorMessage != "" {
		return *result.RunLog.ErrorMessage
	}
	return service.InvalidConfigMessage
}
