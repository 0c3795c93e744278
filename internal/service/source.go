package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/domain/model"
	domainscheduler "github.com/target/harvester/internal/domain/scheduler"
	apperrors "github.com/target/harvester/internal/errors"
)

// SourceServiceOptions groups dependencies for SourceService.
type SourceServiceOptions struct {
	SourceRepo core.SourceRepository // Required
	Logger     *slog.Logger          // Optional
}

// SourceService validates and persists source configuration.
type SourceService struct {
	src    core.SourceRepository
	logger *slog.Logger
}

// NewSourceService constructs a new SourceService.
func NewSourceService(opts SourceServiceOptions) *SourceService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceService{
		src:    opts.SourceRepo,
		logger: logger.With("component", "source_service"),
	}
}

// Upsert creates the source named in req or replaces its configuration.
// A changed poll_interval makes the source due immediately.
func (s *SourceService) Upsert(ctx context.Context, req *model.UpsertSourceRequest) (*model.Source, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if _, err := domainscheduler.ParseSchedule(req.PollInterval); err != nil {
		return nil, apperrors.ValidationField("poll_interval", err.Error())
	}

	source, err := s.src.Upsert(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upsert source: %w", apperrors.MapDBError(err))
	}
	s.logger.InfoContext(ctx, "source upserted",
		"source_id", source.ID,
		"name", source.Name,
		"kind", source.Kind,
		"active", source.Active,
	)
	return source, nil
}

// GetByID returns a source. Malformed ids are reported as not found.
func (s *SourceService) GetByID(ctx context.Context, id string) (*model.Source, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("source %q not found", id)
	}
	source, err := s.src.GetByID(ctx, id)
	if err != nil {
		return nil, sourceLookupError(id, err)
	}
	return source, nil
}

// GetByName returns a source by its unique name.
func (s *SourceService) GetByName(ctx context.Context, name string) (*model.Source, error) {
	source, err := s.src.GetByName(ctx, name)
	if err != nil {
		return nil, sourceLookupError(name, err)
	}
	return source, nil
}

// List returns sources ordered by name.
func (s *SourceService) List(ctx context.Context, limit, offset int) ([]*model.Source, error) {
	sources, err := s.src.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", apperrors.MapDBError(err))
	}
	return sources, nil
}

// Delete removes a source and its run history. Postings it produced stay in the catalog.
func (s *SourceService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NotFoundf("source %q not found", id)
	}
	ok, err := s.src.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", apperrors.MapDBError(err))
	}
	if !ok {
		return apperrors.NotFoundf("source %q not found", id)
	}
	s.logger.InfoContext(ctx, "source deleted", "source_id", id)
	return nil
}

func sourceLookupError(key string, err error) error {
	if errors.Is(err, data.ErrSourceNotFound) {
		return apperrors.NotFoundf("source %q not found", key)
	}
	return fmt.Errorf("get source: %w", apperrors.MapDBError(err))
}
