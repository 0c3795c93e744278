package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data/pgxutil"
	"github.com/target/harvester/internal/domain"
	"github.com/target/harvester/internal/domain/model"
)

// SQL used by ReserveNext to atomically reserve the next job.
const reserveNextUpdateSQL = `
  WITH cte AS (
    SELECT id FROM jobs
    WHERE type = $1 AND status = 'pending' AND scheduled_at <= $2
    ORDER BY priority DESC, scheduled_at ASC, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    status = 'running',
    started_at = COALESCE(j.started_at, $2),
    lease_expires_at = $3,
    updated_at = $2
  FROM cte
  WHERE j.id = cte.id
  RETURNING j.id, j.type, j.status, j.priority, j.payload, j.metadata, j.source_id, j.scheduled_at, j.started_at, j.completed_at, j.retry_count, j.max_retries, j.last_error, j.lease_expires_at, j.created_at, j.updated_at`

const insertJobSQL = `
  INSERT INTO jobs(type, status, priority, payload, metadata, source_id, scheduled_at, max_retries)
  VALUES ($1, 'pending', $2, $3, $4, $5, $6, $7)`

type insertJobArgs struct {
	query string
	args  []any
}

func (r *JobRepo) prepareInsert(req *model.CreateJobRequest, ifAbsent bool) (insertJobArgs, error) {
	if req == nil {
		return insertJobArgs{}, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return insertJobArgs{}, err
	}

	meta := []byte(req.Metadata)
	if len(meta) == 0 {
		meta = []byte(`{}`)
	}
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = r.cfg.DefaultMaxRetries
	}
	scheduledAt := r.timeProvider.Now().UTC()
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	}

	query := insertJobSQL
	if ifAbsent {
		query += `
  ON CONFLICT DO NOTHING`
	}
	query += `
  RETURNING ` + jobColumns

	return insertJobArgs{
		query: query,
		args: []any{
			req.Type,
			req.Priority,
			[]byte(req.Payload),
			meta,
			req.SourceID,
			scheduledAt,
			maxRetries,
		},
	}, nil
}

// Create inserts a pending job and notifies listeners for its type.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	ins, err := r.prepareInsert(req, false)
	if err != nil {
		return nil, err
	}

	var job *model.Job
	if txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, ins.query, ins.args...)
			if qerr != nil {
				return fmt.Errorf("insert job: %w", qerr)
			}
			defer rows.Close()
			j, cerr := collectJobFromRows(rows)
			if cerr != nil {
				return fmt.Errorf("collect job: %w", cerr)
			}
			if _, nerr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, notifyChannel(j.Type), j.ID); nerr != nil {
				return fmt.Errorf("send job notification: %w", nerr)
			}
			job = j
			return nil
		},
	}); txErr != nil {
		return nil, txErr
	}
	return job, nil
}

// CreateIfAbsentInTx inserts a job within an existing transaction unless a unique index
// (the scheduler fire key) already holds an equivalent job.
func (r *JobRepo) CreateIfAbsentInTx(
	ctx context.Context,
	sqlTx *sql.Tx,
	req *model.CreateJobRequest,
) (*model.Job, bool, error) {
	if sqlTx == nil {
		return nil, false, errors.New("transaction is required")
	}
	ins, err := r.prepareInsert(req, true)
	if err != nil {
		return nil, false, err
	}

	job, scanErr := scanJobFromRow(sqlTx.QueryRowContext(ctx, ins.query, ins.args...))
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, false, nil
	}
	if scanErr != nil {
		return nil, false, fmt.Errorf("insert job: %w", scanErr)
	}

	if _, notifyErr := sqlTx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, notifyChannel(job.Type), job.ID); notifyErr != nil {
		return nil, false, fmt.Errorf("send job notification: %w", notifyErr)
	}
	return job, true, nil
}

// Advisory lock namespace for requeueExpired to avoid cross-job-type contention.
const advisoryLockRequeueMajor int64 = 1001

func advisoryLockRequeueMinor(jobType model.JobType) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jobType))
	return int64(h.Sum32() & math.MaxInt32)
}

// requeueExpired returns running jobs whose lease lapsed to the pending state.
func (r *JobRepo) requeueExpired(ctx context.Context, jobType model.JobType) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)",
				advisoryLockRequeueMajor, advisoryLockRequeueMinor(jobType)).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			res, err := tx.ExecContext(ctx, `
          UPDATE jobs
          SET status = 'pending', lease_expires_at = NULL
          WHERE type = $1 AND status = 'running'
            AND lease_expires_at IS NOT NULL
            AND lease_expires_at < $2
        `, jobType, r.timeProvider.Now().UTC())
			if err != nil {
				return fmt.Errorf("requeue expired: %w", err)
			}
			rowsAffected, err = res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	if rowsAffected > 0 {
		r.logger.WarnContext(ctx, "requeued jobs with expired leases",
			"job_type", jobType, "count", rowsAffected)
	}
	return rowsAffected, nil
}

// ReserveNext reserves the next available job of the given type for processing.
func (r *JobRepo) ReserveNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}
	if leaseSeconds <= 0 {
		return nil, errors.New("leaseSeconds must be positive")
	}

	if _, err := r.requeueExpired(ctx, jobType); err != nil {
		return nil, fmt.Errorf("requeue expired jobs: %w", err)
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now().UTC()
			leaseExpiresAt := now.Add(time.Duration(leaseSeconds) * time.Second)

			rows, qerr := tx.Query(ctx, reserveNextUpdateSQL, jobType, now, leaseExpiresAt)
			if qerr != nil {
				return fmt.Errorf("reserve job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("reserve job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Heartbeat refreshes the lease on a running job.
func (r *JobRepo) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error) {
	if leaseSeconds <= 0 {
		return false, errors.New("leaseSeconds must be positive")
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET lease_expires_at = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'running'
	`, jobID, now.Add(time.Duration(leaseSeconds)*time.Second), now)
	if err != nil {
		return false, fmt.Errorf("heartbeat job: %w", err)
	}
	return affected(res)
}

// Complete marks a running job as completed.
func (r *JobRepo) Complete(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'completed',
		    completed_at = $2,
		    updated_at = $2,
		    lease_expires_at = NULL,
		    last_error = NULL
		WHERE id = $1 AND status = 'running'
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	return affected(res)
}

// Fail records a failed attempt. The job returns to pending after params.RetryDelay,
// or becomes failed once max_retries retries have been spent. SET expressions see
// the pre-update retry_count.
func (r *JobRepo) Fail(ctx context.Context, params core.FailJobParams) (bool, error) {
	if params.RetryDelay < 0 {
		params.RetryDelay = 0
	}
	now := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
      UPDATE jobs
      SET
        last_error = $2,
        retry_count = retry_count + 1,
        status = CASE WHEN retry_count >= max_retries THEN 'failed' ELSE 'pending' END,
        completed_at = CASE WHEN retry_count >= max_retries THEN $3::timestamptz ELSE NULL END,
        lease_expires_at = NULL,
        scheduled_at = CASE WHEN retry_count >= max_retries THEN scheduled_at
                            ELSE $4::timestamptz END,
        updated_at = $3
      WHERE id = $1 AND status = 'running'
    `, params.ID, params.Error, now, now.Add(params.RetryDelay))
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	return affected(res)
}

// FailPermanently marks a running job failed without scheduling another attempt.
func (r *JobRepo) FailPermanently(ctx context.Context, id, errMsg string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'failed',
		    last_error = $2,
		    retry_count = retry_count + 1,
		    completed_at = $3,
		    lease_expires_at = NULL,
		    updated_at = $3
		WHERE id = $1 AND status = 'running'
	`, id, errMsg, now)
	if err != nil {
		return false, fmt.Errorf("fail job permanently: %w", err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Stats returns statistics about jobs of the given type in different states.
func (r *JobRepo) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'pending')   AS pending,
    count(*) FILTER (WHERE status = 'running')   AS running,
    count(*) FILTER (WHERE status = 'completed') AS completed,
    count(*) FILTER (WHERE status = 'failed')    AS failed
  FROM jobs
  WHERE type = $1
  `, jobType).Scan(&s.Pending, &s.Running, &s.Completed, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return &s, nil
}

// WaitForNotification blocks until a job of jobType is enqueued or ctx ends.
func (r *JobRepo) WaitForNotification(ctx context.Context, jobType model.JobType) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() { _ = conn.Close() }()

	channel := notifyChannel(jobType)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", channel, execErr)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "UNLISTEN "+quoted)
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrJobNotFound
	}
	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// JobStatesBySource returns a bitmask describing which overrun states currently exist
// among the source's ingest jobs.
func (r *JobRepo) JobStatesBySource(
	ctx context.Context,
	sourceID string,
	now time.Time,
) (domain.OverrunStateMask, error) {
	query := `
		SELECT
			COALESCE(bool_or(status = 'running' AND lease_expires_at > $1), FALSE) AS has_running,
			COALESCE(bool_or(status = 'pending'), FALSE) AS has_pending,
			COALESCE(bool_or(status = 'pending' AND retry_count > 0), FALSE) AS has_retrying
		FROM jobs
		WHERE source_id = $2
		  AND type = $3
		  AND status IN ('running', 'pending')
	`

	var hasRunning, hasPending, hasRetrying bool
	if err := r.DB.QueryRowContext(ctx, query, now.UTC(), sourceID, model.JobTypeIngest).
		Scan(&hasRunning, &hasPending, &hasRetrying); err != nil {
		return 0, fmt.Errorf("check job states by source: %w", err)
	}

	var mask domain.OverrunStateMask
	if hasRunning {
		mask |= domain.OverrunStateRunning
	}
	if hasPending {
		mask |= domain.OverrunStatePending
	}
	if hasRetrying {
		mask |= domain.OverrunStateRetrying
	}
	return mask, nil
}

// ListBySource returns the most recent jobs for a source.
func (r *JobRepo) ListBySource(ctx context.Context, sourceID string, limit int) ([]*model.Job, error) {
	if sourceID == "" {
		return nil, ErrSourceIDRequired
	}
	limit = clampLimit(limit, 50, 1000)

	var out []*model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE source_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, sourceID, limit)
		if err != nil {
			return fmt.Errorf("query jobs by source: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			j, scanErr := scanJobFromRow(rows)
			if scanErr != nil {
				return fmt.Errorf("scan job: %w", scanErr)
			}
			out = append(out, j)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}
