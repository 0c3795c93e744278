package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/domain/model"
	apperrors "github.com/target/harvester/internal/errors"
)

const (
	// DefaultListLimit applies when a listing omits limit.
	DefaultListLimit = 50
	// MaxListLimit caps any listing.
	MaxListLimit = 500
)

// CatalogServiceOptions groups dependencies for CatalogService.
type CatalogServiceOptions struct {
	Postings core.PostingRepository // Required
	RunLogs  core.RunLogRepository  // Required
	Sources  core.SourceRepository  // Required for Summary
	Logger   *slog.Logger
}

// CatalogService answers read queries over postings and run history.
type CatalogService struct {
	postings core.PostingRepository
	runLogs  core.RunLogRepository
	sources  core.SourceRepository
	logger   *slog.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(opts CatalogServiceOptions) (*CatalogService, error) {
	if opts.Postings == nil {
		return nil, errors.New("PostingRepository is required")
	}
	if opts.RunLogs == nil {
		return nil, errors.New("RunLogRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		postings: opts.Postings,
		runLogs:  opts.RunLogs,
		sources:  opts.Sources,
		logger:   logger.With("component", "catalog_service"),
	}, nil
}

// ListPostings returns postings matching opts, newest first.
func (s *CatalogService) ListPostings(ctx context.Context, opts model.PostingListOptions) ([]*model.Posting, error) {
	if opts.Offset < 0 {
		return nil, apperrors.ValidationField("offset", "offset must be >= 0")
	}
	opts.Limit = clampListLimit(opts.Limit)
	opts.Query = strings.TrimSpace(opts.Query)
	opts.Tag = strings.TrimSpace(opts.Tag)
	if opts.SourceID != nil {
		if _, err := uuid.Parse(*opts.SourceID); err != nil {
			return nil, apperrors.ValidationField("source_id", "source_id must be a UUID")
		}
	}

	postings, err := s.postings.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", apperrors.MapDBError(err))
	}
	return postings, nil
}

// GetPosting returns one posting.
func (s *CatalogService) GetPosting(ctx context.Context, id string) (*model.Posting, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("posting %q not found", id)
	}
	p, err := s.postings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrPostingNotFound) {
			return nil, apperrors.NotFoundf("posting %q not found", id)
		}
		return nil, fmt.Errorf("get posting: %w", apperrors.MapDBError(err))
	}
	return p, nil
}

// ListRunLogs returns a source's run logs in [since, until), newest first.
func (s *CatalogService) ListRunLogs(ctx context.Context, opts model.RunLogListOptions) ([]*model.RunLog, error) {
	if _, err := uuid.Parse(opts.SourceID); err != nil {
		return nil, apperrors.NotFoundf("source %q not found", opts.SourceID)
	}
	if opts.Since != nil && opts.Until != nil && !opts.Since.Before(*opts.Until) {
		return nil, apperrors.ValidationField("since", "since must be before until")
	}
	opts.Limit = clampListLimit(opts.Limit)

	logs, err := s.runLogs.ListBySource(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", apperrors.MapDBError(err))
	}
	return logs, nil
}

// SourceSummary is a source with its catalog footprint and most recent run.
type SourceSummary struct {
	Source       *model.Source `json:"source"`
	PostingCount int           `json:"posting_count"`
	LatestRun    *model.RunLog `json:"latest_run,omitempty"`
}

// Summary reports how much a source has contributed and how its last run went.
func (s *CatalogService) Summary(ctx context.Context, sourceID string) (*SourceSummary, error) {
	if s.sources == nil {
		return nil, apperrors.Internal("source repository is not configured")
	}
	if _, err := uuid.Parse(sourceID); err != nil {
		return nil, apperrors.NotFoundf("source %q not found", sourceID)
	}
	src, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		return nil, sourceLookupError(sourceID, err)
	}

	count, err := s.postings.CountBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("count postings: %w", apperrors.MapDBError(err))
	}

	summary := &SourceSummary{Source: src, PostingCount: count}
	latest, err := s.runLogs.Latest(ctx, sourceID)
	switch {
	case err == nil:
		summary.LatestRun = latest
	case errors.Is(err, data.ErrRunLogNotFound):
	default:
		return nil, fmt.Errorf("latest run log: %w", apperrors.MapDBError(err))
	}
	return summary, nil
}

// ParseWindow parses optional RFC 3339 bounds.
func ParseWindow(since, until string) (*time.Time, *time.Time, error) {
	parse := func(field, v string) (*time.Time, error) {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, apperrors.ValidationField(field, field+" must be an RFC 3339 timestamp")
		}
		return &t, nil
	}
	s, err := parse("since", since)
	if err != nil {
		return nil, nil, err
	}
	u, err := parse("until", until)
	if err != nil {
		return nil, nil, err
	}
	return s, u, nil
}

func clampListLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
