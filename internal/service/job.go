package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/harvester/internal/core"
	domainjob "github.com/target/harvester/internal/domain/job"
	"github.com/target/harvester/internal/domain/model"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo            core.JobRepository        // Required: job repository
	DefaultLease    time.Duration             // Required unless LeasePolicy is set
	Logger          *slog.Logger              // Optional: structured logger
	LeasePolicy     *domainjob.LeasePolicy    // Optional: override default lease policy
	Notifier        domainjob.Notifier        // Optional: custom job availability notifier
	NotifierOptions domainjob.NotifierOptions // Optional: configure default notifier behaviour
}

// JobService wraps the dispatch queue for workers: reservation under a lease,
// heartbeats, completion and failure, plus wake-ups when jobs are enqueued.
type JobService struct {
	repo        core.JobRepository
	leasePolicy *domainjob.LeasePolicy
	notifier    domainjob.Notifier
	logger      *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	leasePolicy := opts.LeasePolicy
	if leasePolicy == nil {
		var err error
		leasePolicy, err = domainjob.NewLeasePolicy(opts.DefaultLease)
		if err != nil {
			return nil, fmt.Errorf("create lease policy: %w", err)
		}
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Repo
		}
		b, err := domainjob.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create job notifier: %w", err)
		}
		notifier = b
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "job_service")
	logger.Debug("JobService initialized", "default_lease", leasePolicy.Default())

	return &JobService{
		repo:        opts.Repo,
		leasePolicy: leasePolicy,
		notifier:    notifier,
		logger:      logger,
	}, nil
}

// Create inserts a job and announces it to listening workers.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	job, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logger.DebugContext(ctx, "job created", "id", job.ID, "type", job.Type, "status", job.Status)
	return job, nil
}

// GetByID returns a job.
func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// ReserveNext leases the next runnable job of jobType. It returns
// model.ErrNoJobsAvailable when the queue is empty.
func (s *JobService) ReserveNext(ctx context.Context, jobType model.JobType, lease time.Duration) (*model.Job, error) {
	secs := s.leasePolicy.Seconds(lease)
	job, err := s.repo.ReserveNext(ctx, jobType, secs)
	if err != nil {
		return nil, fmt.Errorf("reserve next job: %w", err)
	}
	if job != nil {
		s.logger.DebugContext(ctx, "job reserved", "id", job.ID, "type", jobType, "lease_seconds", secs)
	}
	return job, nil
}

// Subscribe returns a channel signalled whenever jobs may be available.
func (s *JobService) Subscribe() (func(), <-chan struct{}) {
	return s.notifier.Subscribe()
}

// Heartbeat extends a running job's lease. False means the lease was lost.
func (s *JobService) Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error) {
	ok, err := s.repo.Heartbeat(ctx, id, s.leasePolicy.Seconds(extend))
	if err != nil {
		return false, fmt.Errorf("heartbeat job %s: %w", id, err)
	}
	return ok, nil
}

// Complete marks a running job completed.
func (s *JobService) Complete(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Complete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}
	if ok {
		s.logger.DebugContext(ctx, "job completed", "id", id)
	}
	return ok, nil
}

// Fail records a failed attempt. The job returns to pending after params.RetryDelay
// while retries remain, otherwise it becomes failed.
func (s *JobService) Fail(ctx context.Context, params core.FailJobParams) (bool, error) {
	if params.Error == "" {
		return false, errors.New("error message required")
	}
	ok, err := s.repo.Fail(ctx, params)
	if err != nil {
		return false, fmt.Errorf("fail job %s: %w", params.ID, err)
	}
	if ok {
		s.logger.DebugContext(ctx, "job attempt failed", "id", params.ID, "error", params.Error, "retry_delay", params.RetryDelay)
	}
	return ok, nil
}

// FailPermanently marks a job failed without consuming the remaining retries.
func (s *JobService) FailPermanently(ctx context.Context, id, errMsg string) (bool, error) {
	if errMsg == "" {
		return false, errors.New("error message required")
	}
	ok, err := s.repo.FailPermanently(ctx, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("fail job %s permanently: %w", id, err)
	}
	if ok {
		s.logger.DebugContext(ctx, "job failed permanently", "id", id, "error", errMsg)
	}
	return ok, nil
}

// Stats returns queue counts for jobType.
func (s *JobService) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx, jobType)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return stats, nil
}

// Stop shuts down the notification listener.
func (s *JobService) Stop() {
	s.notifier.Stop()
}
