package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/domain/ingest"
	"github.com/target/harvester/internal/domain/model"
	apperrors "github.com/target/harvester/internal/errors"
	"github.com/target/harvester/internal/observability/metrics"
	"github.com/target/harvester/internal/observability/statsd"
)

const (
	// InvalidConfigMessage is the error message of runs stopped by the configuration gate.
	InvalidConfigMessage = "Invalid Config"

	// DefaultFetchTimeout bounds the fetch step when no timeout is configured.
	DefaultFetchTimeout = 30 * time.Second

	runLogWriteTimeout = 5 * time.Second
)

// StrategyFactory builds the fetch strategy for a source.
type StrategyFactory func(src model.Source, deps ingest.Deps) (ingest.Strategy, error)

// IngestServiceOptions groups dependencies for IngestService.
type IngestServiceOptions struct {
	Sources      core.SourceRepository // Required
	Store        core.IngestStore      // Required: per-run transaction
	RunLogs      core.RunLogRepository // Required
	SeenCache    core.SeenHashCache    // Optional: Redis short-circuit for known hashes
	Deps         ingest.Deps           // Shared HTTP client and browser
	NewStrategy  StrategyFactory       // Optional: defaults to ingest.NewStrategy
	FetchTimeout time.Duration         // Optional: defaults to DefaultFetchTimeout
	TimeProvider data.TimeProvider     // Optional
	Logger       *slog.Logger          // Optional
	Metrics      statsd.Sink           // Optional
}

// IngestService runs the ingestion pipeline for one source at a time.
//
// A run loads the source, validates its configuration, fetches raw postings,
// then normalizes, hashes and inserts each item inside one transaction that
// also stamps the source's last run. Exactly one run log is written per call.
type IngestService struct {
	sources      core.SourceRepository
	store        core.IngestStore
	runLogs      core.RunLogRepository
	seen         core.SeenHashCache
	deps         ingest.Deps
	newStrategy  StrategyFactory
	normalizer   ingest.Normalizer
	fetchTimeout time.Duration
	clock        data.TimeProvider
	logger       *slog.Logger
	metrics      statsd.Sink
}

// NewIngestService constructs an IngestService.
func NewIngestService(opts IngestServiceOptions) (*IngestService, error) {
	switch {
	case opts.Sources == nil:
		return nil, errors.New("SourceRepository is required")
	case opts.Store == nil:
		return nil, errors.New("IngestStore is required")
	case opts.RunLogs == nil:
		return nil, errors.New("RunLogRepository is required")
	}

	svc := &IngestService{
		sources:      opts.Sources,
		store:        opts.Store,
		runLogs:      opts.RunLogs,
		seen:         opts.SeenCache,
		deps:         opts.Deps,
		newStrategy:  opts.NewStrategy,
		normalizer:   ingest.NewNormalizer(),
		fetchTimeout: opts.FetchTimeout,
		clock:        opts.TimeProvider,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
	if svc.seen == nil {
		svc.seen = core.NoopSeenHashCache{}
	}
	if svc.newStrategy == nil {
		svc.newStrategy = ingest.NewStrategy
	}
	if svc.fetchTimeout <= 0 {
		svc.fetchTimeout = DefaultFetchTimeout
	}
	if svc.clock == nil {
		svc.clock = data.RealTimeProvider{}
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	svc.logger = svc.logger.With("component", "ingest_service")
	return svc, nil
}

// RunRequest identifies the source to ingest and, for dispatched runs, the job driving it.
type RunRequest struct {
	SourceID string
	JobID    *string
}

// Run executes one pipeline run.
//
// An unknown source returns a NotFound error and writes nothing. A source whose
// configuration is invalid gets a failed run log and a nil error; the returned
// result carries the failed status. Any failure after the fetch starts rolls the
// run back, writes a failed run log and is returned to the caller.
func (s *IngestService) Run(ctx context.Context, req RunRequest) (*model.RunResult, error) {
	start := s.clock.Now()

	src, err := s.loadSource(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("source_id", src.ID, "source", src.Name, "kind", src.Kind)
	if req.JobID != nil {
		logger = logger.With("job_id", *req.JobID)
	}

	strategy, err := s.newStrategy(*src, s.deps)
	if err == nil {
		err = strategy.ValidateConfiguration()
	}
	if err != nil {
		logger.WarnContext(ctx, "source configuration invalid, run not attempted", "error", err)
		return s.finish(ctx, runOutcome{
			source:  src,
			jobID:   req.JobID,
			status:  model.RunStatusFailed,
			message: InvalidConfigMessage,
			start:   start,
			err:     err,
		})
	}

	counts, runErr := s.execute(ctx, src, strategy, logger)
	if runErr != nil {
		logger.ErrorContext(ctx, "ingest run failed", "error", runErr, "found", counts.Found)
		result, logErr := s.finish(ctx, runOutcome{
			source:  src,
			jobID:   req.JobID,
			status:  model.RunStatusFailed,
			counts:  model.RunCounts{Found: counts.Found},
			message: runErr.Error(),
			start:   start,
			err:     runErr,
		})
		if logErr != nil {
			return result, errors.Join(runErr, logErr)
		}
		return result, runErr
	}

	result, err := s.finish(ctx, runOutcome{
		source: src,
		jobID:  req.JobID,
		status: counts.Status(),
		counts: counts,
		start:  start,
	})
	if err != nil {
		return result, err
	}
	logger.InfoContext(ctx, "ingest run finished",
		"status", result.Status,
		"found", counts.Found,
		"ingested", counts.Ingested,
		"deduplicated", counts.Deduplicated,
		"skipped", counts.Skipped,
		"duration_ms", result.RunLog.DurationMS,
	)
	return result, nil
}

func (s *IngestService) loadSource(ctx context.Context, id string) (*model.Source, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("source %q not found", id)
	}
	src, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, sourceLookupError(id, err)
	}
	return src, nil
}

// execute fetches and persists. Counts are only meaningful when err is nil,
// except Found which is set as soon as the fetch returns.
func (s *IngestService) execute(
	ctx context.Context,
	src *model.Source,
	strategy ingest.Strategy,
	logger *slog.Logger,
) (model.RunCounts, error) {
	var counts model.RunCounts

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	raws, err := strategy.FetchRawPostings(fetchCtx)
	cancel()
	if err != nil {
		return counts, err
	}
	counts.Found = len(raws)

	var known []string
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx core.IngestTx) error {
		counts = model.RunCounts{Found: len(raws)}
		known = known[:0]
		for i, raw := range raws {
			outcome, hash, itemErr := s.ingestItem(ctx, tx, src, raw)
			if itemErr != nil {
				return fmt.Errorf("item %d: %w", i, itemErr)
			}
			switch outcome {
			case itemSkipped:
				counts.Skipped++
			case itemDeduplicated:
				counts.Deduplicated++
			case itemIngested:
				counts.Ingested++
			}
			if outcome != itemSkipped && hash != "" {
				known = append(known, hash)
			}
		}
		return tx.TouchLastRun(ctx, src.ID, s.clock.Now())
	})
	if err != nil {
		return counts, apperrors.MapDBError(err)
	}

	if rememberErr := s.seen.Remember(ctx, known...); rememberErr != nil {
		logger.WarnContext(ctx, "seen hash cache update failed", "error", rememberErr)
	}
	return counts, nil
}

type itemOutcome int

const (
	itemSkipped itemOutcome = iota
	itemDeduplicated
	itemIngested
)

// ingestItem handles one raw record. Malformed records are skipped without error.
// The returned hash is empty when the record was skipped or matched the seen cache.
func (s *IngestService) ingestItem(
	ctx context.Context,
	tx core.IngestTx,
	src *model.Source,
	raw ingest.RawPosting,
) (itemOutcome, string, error) {
	normalized, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.logger.DebugContext(ctx, "skipping malformed posting", "source_id", src.ID, "error", err)
		return itemSkipped, "", nil
	}
	hash := ingest.HashOf(normalized)

	seen, err := s.seen.Seen(ctx, hash)
	if err != nil {
		s.logger.DebugContext(ctx, "seen hash cache lookup failed", "error", err)
	} else if seen {
		return itemDeduplicated, "", nil
	}

	exists, err := tx.ExistsByHash(ctx, hash)
	if err != nil {
		return itemSkipped, "", fmt.Errorf("check identity hash: %w", err)
	}
	if exists {
		return itemDeduplicated, hash, nil
	}

	inserted, err := tx.InsertPosting(ctx, model.NewPosting{
		NormalizedPosting: normalized,
		IdentityHash:      hash,
		SourceID:          src.ID,
		SourceName:        src.Name,
	})
	if err != nil {
		return itemSkipped, "", fmt.Errorf("insert posting: %w", err)
	}
	if !inserted {
		return itemDeduplicated, hash, nil
	}
	return itemIngested, hash, nil
}

type runOutcome struct {
	source  *model.Source
	jobID   *string
	status  model.RunStatus
	counts  model.RunCounts
	message string
	start   time.Time
	err     error
}

// finish writes the run log and emits metrics. The log is written even when ctx
// is already done so failed and timed-out runs are still recorded.
func (s *IngestService) finish(ctx context.Context, o runOutcome) (*model.RunResult, error) {
	elapsed := s.clock.Now().Sub(o.start)
	req := model.CreateRunLogRequest{
		SourceID: o.source.ID,
		JobID:    o.jobID,
		Status:   o.status,
		Counts:   o.counts,
		Duration: elapsed,
	}
	if o.message != "" {
		msg := o.message
		req.ErrorMessage = &msg
	}

	metrics.EmitIngestRun(s.metrics, metrics.RunMetric{
		SourceKind: string(o.source.Kind),
		Status:     o.status,
		Counts:     o.counts,
		Duration:   elapsed,
		Err:        o.err,
	})

	result := &model.RunResult{SourceID: o.source.ID, Status: o.status, Counts: o.counts}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runLogWriteTimeout)
	defer cancel()
	runLog, err := s.runLogs.Create(writeCtx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to write run log",
			"source_id", o.source.ID,
			"status", o.status,
			"error", err,
		)
		return result, fmt.Errorf("write run log: %w", apperrors.MapDBError(err))
	}
	result.RunLog = runLog
	return result, nil
}
