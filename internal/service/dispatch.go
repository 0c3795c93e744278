package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/domain/model"
	apperrors "github.com/target/harvester/internal/errors"
)

// DefaultRunMaxRetries is the retry budget of a dispatched run.
const DefaultRunMaxRetries = 3

// DispatchServiceOptions groups dependencies for DispatchService.
type DispatchServiceOptions struct {
	Sources    core.SourceRepository // Required
	Jobs       core.JobRepository    // Required
	History    core.SourceJobLister  // Optional: enables ListJobs
	MaxRetries int                   // Optional: defaults to DefaultRunMaxRetries
	Logger     *slog.Logger          // Optional
}

// DispatchService turns "run source X" requests into ingest jobs that workers
// pick up out of band. The caller gets the job back immediately as a tracking handle.
type DispatchService struct {
	sources    core.SourceRepository
	jobs       core.JobRepository
	history    core.SourceJobLister
	maxRetries int
	logger     *slog.Logger
}

// NewDispatchService constructs a DispatchService.
func NewDispatchService(opts DispatchServiceOptions) (*DispatchService, error) {
	if opts.Sources == nil {
		return nil, errors.New("SourceRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultRunMaxRetries
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchService{
		sources:    opts.Sources,
		jobs:       opts.Jobs,
		history:    opts.History,
		maxRetries: maxRetries,
		logger:     logger.With("component", "dispatch_service"),
	}, nil
}

// EnqueueOptions tunes a dispatched run.
type EnqueueOptions struct {
	Priority int
	// MaxRetries overrides the configured retry budget when positive.
	MaxRetries int
}

// EnqueueRun queues an ingest run for sourceID and returns the job.
func (s *DispatchService) EnqueueRun(ctx context.Context, sourceID string, opts EnqueueOptions) (*model.Job, error) {
	if _, err := uuid.Parse(sourceID); err != nil {
		return nil, apperrors.NotFoundf("source %q not found", sourceID)
	}
	src, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		return nil, sourceLookupError(sourceID, err)
	}

	payload, err := json.Marshal(model.IngestJobPayload{SourceID: src.ID, Trigger: model.TriggerManual})
	if err != nil {
		return nil, fmt.Errorf("marshal ingest payload: %w", err)
	}
	maxRetries := s.maxRetries
	if opts.MaxRetries > 0 {
		maxRetries = opts.MaxRetries
	}
	req := &model.CreateJobRequest{
		Type:       model.JobTypeIngest,
		Payload:    payload,
		Priority:   opts.Priority,
		SourceID:   &src.ID,
		MaxRetries: maxRetries,
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	job, err := s.jobs.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("enqueue ingest run: %w", apperrors.MapDBError(err))
	}
	s.logger.InfoContext(ctx, "ingest run enqueued", "job_id", job.ID, "source_id", src.ID, "source", src.Name)
	return job, nil
}

// GetJob returns the job behind a tracking handle.
func (s *DispatchService) GetJob(ctx context.Context, id string) (*model.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("job %q not found", id)
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return nil, apperrors.NotFoundf("job %q not found", id)
		}
		return nil, fmt.Errorf("get job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// Stats returns ingest queue counts.
func (s *DispatchService) Stats(ctx context.Context) (*model.JobStats, error) {
	stats, err := s.jobs.Stats(ctx, model.JobTypeIngest)
	if err != nil {
		return nil, fmt.Errorf("ingest job stats: %w", apperrors.MapDBError(err))
	}
	return stats, nil
}

// ListJobs returns the most recent dispatch jobs of a source, newest first.
func (s *DispatchService) ListJobs(ctx context.Context, sourceID string, limit int) ([]*model.Job, error) {
	if s.history == nil {
		return nil, apperrors.Internal("job history is not configured")
	}
	if _, err := uuid.Parse(sourceID); err != nil {
		return nil, apperrors.NotFoundf("source %q not found", sourceID)
	}
	jobs, err := s.history.ListBySource(ctx, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}
