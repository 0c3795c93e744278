package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/target/harvester/internal/data/pgxutil"
	"github.com/target/harvester/internal/domain/model"
)

// SourceRepo provides database operations for source management.
type SourceRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSourceRepo creates a new SourceRepo instance with the given database connection.
func NewSourceRepo(db *sql.DB) *SourceRepo {
	return &SourceRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewSourceRepoWithTimeProvider creates a SourceRepo with a custom clock (useful for testing).
func NewSourceRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *SourceRepo {
	return &SourceRepo{DB: db, timeProvider: tp}
}

const sourceColumns = `
  id,
  name,
  kind,
  base_url,
  config,
  active,
  poll_interval,
  last_run_at,
  last_queued_at,
  next_poll_at,
  created_at,
  updated_at
`

// Upsert inserts a source or replaces the configuration of the source with the same name.
// A changed poll_interval makes the source due immediately so its schedule is recomputed
// on the next scheduler tick; last_run_at and last_queued_at are preserved.
func (r *SourceRepo) Upsert(ctx context.Context, req *model.UpsertSourceRequest) (*model.Source, error) {
	if req == nil {
		return nil, errors.New("upsert source request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cfg, err := json.Marshal(req.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal source config: %w", err)
	}

	query := `
		INSERT INTO sources (name, kind, base_url, config, active, poll_interval, next_poll_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7)
		ON CONFLICT (name) DO UPDATE SET
			kind = EXCLUDED.kind,
			base_url = EXCLUDED.base_url,
			config = EXCLUDED.config,
			active = EXCLUDED.active,
			next_poll_at = CASE
				WHEN sources.poll_interval IS DISTINCT FROM EXCLUDED.poll_interval THEN EXCLUDED.next_poll_at
				ELSE sources.next_poll_at
			END,
			poll_interval = EXCLUDED.poll_interval,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + sourceColumns

	now := r.timeProvider.Now().UTC()
	return r.queryOne(ctx, query,
		req.Name, req.Kind, req.BaseURL, cfg, req.IsActive(), req.PollInterval, now)
}

// GetByID retrieves a source by its ID.
func (r *SourceRepo) GetByID(ctx context.Context, id string) (*model.Source, error) {
	return r.queryOne(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)
}

// GetByName retrieves a source by its unique name.
func (r *SourceRepo) GetByName(ctx context.Context, name string) (*model.Source, error) {
	return r.queryOne(ctx, `SELECT `+sourceColumns+` FROM sources WHERE name = $1`, name)
}

// List returns sources ordered by name.
func (r *SourceRepo) List(ctx context.Context, limit, offset int) ([]*model.Source, error) {
	limit = clampLimit(limit, 50, 1000)
	offset = max(offset, 0)

	var out []*model.Source
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+sourceColumns+`
			FROM sources
			ORDER BY name ASC
			LIMIT $1 OFFSET $2
		`, limit, offset)
		if err != nil {
			return fmt.Errorf("query sources: %w", err)
		}
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Source])
		if err != nil {
			return fmt.Errorf("collect sources: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a source. Postings keep their rows with source_id set to NULL; run logs cascade.
func (r *SourceRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete source: %w", err)
	}
	return affected(res)
}

func (r *SourceRepo) queryOne(ctx context.Context, query string, args ...any) (*model.Source, error) {
	var src *model.Source
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		src, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.Source])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query source: %w", err)
	}
	if src.Config == nil {
		src.Config = model.SourceConfig{}
	}
	return src, nil
}
