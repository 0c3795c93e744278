package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/harvester/internal/data/pgxutil"
	"github.com/target/harvester/internal/domain/model"
)

// RunLogRepo persists the per-run audit trail.
type RunLogRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewRunLogRepo creates a new RunLogRepo.
func NewRunLogRepo(db *sql.DB) *RunLogRepo {
	return &RunLogRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewRunLogRepoWithTimeProvider creates a RunLogRepo with a custom clock.
func NewRunLogRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *RunLogRepo {
	return &RunLogRepo{DB: db, timeProvider: tp}
}

const runLogColumns = `
  id,
  source_id,
  job_id,
  status,
  jobs_found,
  jobs_ingested,
  jobs_deduplicated,
  jobs_skipped,
  error_message,
  duration_ms,
  created_at
`

// Create writes a run log. Run logs are append-only.
func (r *RunLogRepo) Create(ctx context.Context, req model.CreateRunLogRequest) (*model.RunLog, error) {
	if req.SourceID == "" {
		return nil, ErrSourceIDRequired
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("invalid run status: %q", req.Status)
	}

	var out *model.RunLog
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO run_logs (
				source_id, job_id, status, jobs_found, jobs_ingested, jobs_deduplicated,
				jobs_skipped, error_message, duration_ms, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING `+runLogColumns,
			req.SourceID,
			req.JobID,
			req.Status,
			req.Counts.Found,
			req.Counts.Ingested,
			req.Counts.Deduplicated,
			req.Counts.Skipped,
			req.ErrorMessage,
			req.Duration.Milliseconds(),
			r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.RunLog])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert run log: %w", err)
	}
	return out, nil
}

// ListBySource returns a source's run logs within an optional time window, newest first.
func (r *RunLogRepo) ListBySource(ctx context.Context, opts model.RunLogListOptions) ([]*model.RunLog, error) {
	if opts.SourceID == "" {
		return nil, ErrSourceIDRequired
	}

	var out []*model.RunLog
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+runLogColumns+`
			FROM run_logs
			WHERE source_id = $1
			  AND ($2::timestamptz IS NULL OR created_at >= $2)
			  AND ($3::timestamptz IS NULL OR created_at < $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`, opts.SourceID, utcPtr(opts.Since), utcPtr(opts.Until), clampLimit(opts.Limit, 50, 1000))
		if err != nil {
			return fmt.Errorf("query run logs: %w", err)
		}
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.RunLog])
		if err != nil {
			return fmt.Errorf("collect run logs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the most recent run log for a source.
func (r *RunLogRepo) Latest(ctx context.Context, sourceID string) (*model.RunLog, error) {
	var out *model.RunLog
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+runLogColumns+`
			FROM run_logs
			WHERE source_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		`, sourceID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.RunLog])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run log: %w", err)
	}
	return out, nil
}

// DeleteOlderThan removes up to batchSize run logs older than maxAge.
func (r *RunLogRepo) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	cutoff := r.timeProvider.Now().Add(-maxAge).UTC()
	return withReaperLock(ctx, r.DB, advisoryLockReaperRunLogs, func(tx *sql.Tx) (sql.Result, error) {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM run_logs
			WHERE id IN (
				SELECT id FROM run_logs
				WHERE created_at < $1
				ORDER BY created_at
				LIMIT $2
			)
		`, cutoff, batchSize)
		if err != nil {
			return nil, fmt.Errorf("delete old run logs: %w", err)
		}
		return res, nil
	})
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
