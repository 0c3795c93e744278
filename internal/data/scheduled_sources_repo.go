package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/harvester/internal/data/pgxutil"
	"github.com/target/harvester/internal/domain"
)

// ScheduledSourcesRepo gives the scheduler concurrency-safe access to polled sources.
type ScheduledSourcesRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewScheduledSourcesRepo creates a new ScheduledSourcesRepo.
func NewScheduledSourcesRepo(db *sql.DB) *ScheduledSourcesRepo {
	return &ScheduledSourcesRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewScheduledSourcesRepoWithTimeProvider creates a ScheduledSourcesRepo with a custom clock.
func NewScheduledSourcesRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ScheduledSourcesRepo {
	return &ScheduledSourcesRepo{DB: db, timeProvider: tp}
}

// fnvHash computes an FNV-1a 64-bit hash bounded to the BIGINT range for advisory lock keys.
func fnvHash(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	u := h.Sum64()
	if u > uint64(math.MaxInt64) {
		u %= uint64(math.MaxInt64)
	}
	return int64(u) // #nosec G115 -- bounded above.
}

const polledSourceColumns = `id, name, poll_interval, last_queued_at, next_poll_at`

type polledSourceRow struct {
	ID           string     `db:"id"`
	Name         string     `db:"name"`
	PollInterval string     `db:"poll_interval"`
	LastQueuedAt *time.Time `db:"last_queued_at"`
	NextPollAt   time.Time  `db:"next_poll_at"`
}

func (r polledSourceRow) toDomain() domain.PolledSource {
	return domain.PolledSource{
		ID:           r.ID,
		Name:         r.Name,
		PollInterval: r.PollInterval,
		LastQueuedAt: r.LastQueuedAt,
		NextPollAt:   r.NextPollAt.UTC(),
	}
}

// FindDue returns active sources with next_poll_at <= p.Now, oldest first.
// Uses FOR UPDATE SKIP LOCKED so concurrent schedulers do not pick rows another replica is marking.
func (r *ScheduledSourcesRepo) FindDue(ctx context.Context, p domain.FindDueParams) ([]domain.PolledSource, error) {
	if p.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", p.Limit)
	}

	query := `
		SELECT ` + polledSourceColumns + `
		FROM sources
		WHERE active AND next_poll_at <= $1
		ORDER BY next_poll_at ASC, created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	var out []domain.PolledSource
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, p.Now.UTC(), p.Limit)
		if err != nil {
			return err
		}
		collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[polledSourceRow])
		if err != nil {
			return err
		}
		out = make([]domain.PolledSource, 0, len(collected))
		for _, row := range collected {
			out = append(out, row.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query due sources: %w", err)
	}
	return out, nil
}

// LockDueTx locks the source row within tx and reports whether it is still active and due.
func (r *ScheduledSourcesRepo) LockDueTx(
	ctx context.Context,
	tx *sql.Tx,
	id string,
	now time.Time,
) (*domain.PolledSource, bool, error) {
	var row polledSourceRow
	err := tx.QueryRowContext(ctx, `
		SELECT `+polledSourceColumns+`
		FROM sources
		WHERE id = $1 AND active AND next_poll_at <= $2
		FOR UPDATE SKIP LOCKED
	`, id, now.UTC()).Scan(&row.ID, &row.Name, &row.PollInterval, &row.LastQueuedAt, &row.NextPollAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock due source: %w", err)
	}
	src := row.toDomain()
	return &src, true, nil
}

// MarkQueuedTx stamps last_queued_at and advances next_poll_at for a source.
// Return semantics:
//   - (true, nil): source found and updated
//   - (false, nil): source not found
//   - (false, err): update failed
func (r *ScheduledSourcesRepo) MarkQueuedTx(ctx context.Context, tx *sql.Tx, p domain.MarkQueuedParams) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction is required")
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE sources
		SET last_queued_at = $2,
		    next_poll_at = $3,
		    updated_at = $4
		WHERE id = $1
	`, p.ID, p.Now.UTC(), p.NextPollAt.UTC(), r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark source queued: %w", err)
	}
	return affected(res)
}

// TryWithSourceLock attempts to acquire a transaction-scoped advisory lock for the source
// and runs fn in the same transaction when it succeeds. The transaction rolls back when fn fails.
func (r *ScheduledSourcesRepo) TryWithSourceLock(
	ctx context.Context,
	sourceID string,
	fn func(context.Context, *sql.Tx) error,
) (bool, error) {
	lockKey := fnvHash("source:" + sourceID)

	var locked bool
	var fnErr error
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1)", lockKey).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock for source %s: %w", sourceID, err)
			}
			if !locked {
				return nil
			}
			fnErr = fn(ctx, tx)
			return fnErr
		},
	})
	if fnErr != nil {
		return true, fnErr
	}
	if err != nil {
		return false, err
	}
	return locked, nil
}
