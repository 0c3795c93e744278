// Package service holds the business logic of the ingestion pipeline: source
// administration, pipeline runs, run dispatch, polling and queue maintenance.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/domain"
	"github.com/target/harvester/internal/domain/model"
	domainscheduler "github.com/target/harvester/internal/domain/scheduler"
)

// SchedulerServiceOptions holds the dependencies for creating a SchedulerService.
type SchedulerServiceOptions struct {
	Repo            core.ScheduledSourcesRepository // Required
	Jobs            core.JobRepositoryTx            // Required: transactional enqueue
	JobIntrospector core.JobIntrospector            // Required for the skip overrun policy
	Config          *core.SchedulerConfig           // Optional
	TimeProvider    data.TimeProvider               // Optional
	Logger          *slog.Logger                    // Optional
}

// SchedulerService implements core.JobScheduler for polled sources.
// It finds due sources, applies the overrun policy, enqueues ingest jobs and
// advances each source's next poll time. Safe under concurrent replicas.
type SchedulerService struct {
	repo         core.ScheduledSourcesRepository
	jobs         core.JobRepositoryTx
	cfg          core.SchedulerConfig
	timeProvider data.TimeProvider
	logger       *slog.Logger

	processor *domainscheduler.Processor
}

var _ core.JobScheduler = (*SchedulerService)(nil)

// NewSchedulerService creates a new SchedulerService with the given dependencies.
func NewSchedulerService(opts SchedulerServiceOptions) (*SchedulerService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ScheduledSourcesRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("transactional JobRepository is required")
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = data.RealTimeProvider{}
	}
	cfg := core.DefaultSchedulerConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = core.DefaultSchedulerConfig().BatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &SchedulerService{
		repo:         opts.Repo,
		jobs:         opts.Jobs,
		cfg:          cfg,
		timeProvider: opts.TimeProvider,
		logger:       opts.Logger.With("component", "scheduler_service"),
		processor: domainscheduler.NewProcessor(domainscheduler.ProcessorOptions{
			Policy:      cfg.Overrun,
			States:      cfg.OverrunStates,
			StateReader: opts.JobIntrospector,
		}),
	}, nil
}

// Tick processes due sources and returns how many were worked.
//
// Algorithm:
//  1. Find up to BatchSize due sources.
//  2. For each, take the per-source advisory lock; skip it if another replica holds it.
//  3. Re-check the source under a row lock, apply the overrun policy, enqueue and
//     advance next_poll_at, all in the lock's transaction.
func (s *SchedulerService) Tick(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindDue(ctx, domain.FindDueParams{Now: now, Limit: s.cfg.BatchSize})
	if err != nil {
		return 0, fmt.Errorf("find due sources: %w", err)
	}

	processed := 0
	for _, src := range due {
		worked := false
		lockOK, lockErr := s.repo.TryWithSourceLock(ctx, src.ID, func(ctx context.Context, tx *sql.Tx) error {
			w, processErr := s.processSource(ctx, tx, src.ID)
			worked = w
			return processErr
		})
		if lockErr != nil {
			return processed, fmt.Errorf("process source %s: %w", src.ID, lockErr)
		}
		if lockOK && worked {
			processed++
		}
	}
	return processed, nil
}

// processSource runs inside TryWithSourceLock. Returns worked=true when the source
// was advanced or a job was created.
func (s *SchedulerService) processSource(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	now := s.timeProvider.Now()

	src, stillDue, err := s.repo.LockDueTx(ctx, tx, id, now)
	if err != nil {
		return false, fmt.Errorf("lock source: %w", err)
	}
	if !stillDue || src == nil {
		return false, nil
	}

	result, err := s.processor.Process(ctx, domainscheduler.ProcessParams{
		Source:   *src,
		Now:      now,
		Store:    sourceStoreAdapter{repo: s.repo, tx: tx},
		Enqueuer: sourceEnqueuer{service: s, tx: tx},
	})
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}
	if result.Skipped {
		s.logger.DebugContext(ctx, "previous run outstanding, slot skipped",
			"source_id", src.ID,
			"source", src.Name,
			"next_poll_at", result.NextPollAt,
		)
	}
	if result.Enqueued {
		s.logger.InfoContext(ctx, "scheduled ingest run enqueued",
			"source_id", src.ID,
			"source", src.Name,
			"fire_key", result.FireKey,
			"next_poll_at", result.NextPollAt,
		)
	}
	return result.Worked, nil
}

type sourceStoreAdapter struct {
	repo core.ScheduledSourcesRepository
	tx   *sql.Tx
}

func (a sourceStoreAdapter) MarkQueued(ctx context.Context, params domain.MarkQueuedParams) (bool, error) {
	return a.repo.MarkQueuedTx(ctx, a.tx, params)
}

type sourceEnqueuer struct {
	service *SchedulerService
	tx      *sql.Tx
}

func (e sourceEnqueuer) Enqueue(ctx context.Context, src domain.PolledSource, fireKey string) (bool, error) {
	req, err := e.service.buildJobRequest(src, fireKey)
	if err != nil {
		return false, err
	}
	_, created, err := e.service.jobs.CreateIfAbsentInTx(ctx, e.tx, req)
	if err != nil {
		return false, fmt.Errorf("create job: %w", err)
	}
	return created, nil
}

// buildJobRequest creates the ingest job for a scheduled slot. The fire key in
// metadata makes the insert idempotent across replicas.
func (s *SchedulerService) buildJobRequest(src domain.PolledSource, fireKey string) (*model.CreateJobRequest, error) {
	payload, err := json.Marshal(model.IngestJobPayload{SourceID: src.ID, Trigger: model.TriggerScheduler})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	meta, err := json.Marshal(map[string]any{
		"scheduler.source":        src.Name,
		"scheduler.poll_interval": src.PollInterval,
		"scheduler.fire_key":      fireKey,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	sourceID := src.ID
	return &model.CreateJobRequest{
		Type:       model.JobTypeIngest,
		Priority:   s.cfg.DefaultPriority,
		Payload:    payload,
		Metadata:   meta,
		SourceID:   &sourceID,
		MaxRetries: s.cfg.MaxRetries,
	}, nil
}
