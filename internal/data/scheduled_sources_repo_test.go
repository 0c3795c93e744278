package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/domain"
	"github.com/target/harvester/internal/testutil"
)

func TestScheduledSourcesRepo_FindDue(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewScheduledSourcesRepo(db)
		now := time.Now().UTC()

		due := mustUpsertSource(t, db, "due")
		later := mustUpsertSource(t, db, "later")
		inactive := mustUpsertSource(t, db, "inactive")

		_, err := db.ExecContext(ctx, `UPDATE sources SET next_poll_at = $1 WHERE id = $2`, now.Add(time.Hour), later.ID)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `UPDATE sources SET active = FALSE WHERE id = $1`, inactive.ID)
		require.NoError(t, err)

		got, err := repo.FindDue(ctx, domain.FindDueParams{Now: now.Add(time.Second), Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, due.ID, got[0].ID)
		assert.Equal(t, "due", got[0].Name)
		assert.Equal(t, "@every 6h", got[0].PollInterval)
		assert.Nil(t, got[0].LastQueuedAt)

		_, err = repo.FindDue(ctx, domain.FindDueParams{Now: now, Limit: 0})
		require.Error(t, err)
	})
}

func TestScheduledSourcesRepo_LockAndMarkQueued(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewScheduledSourcesRepo(db)
		src := mustUpsertSource(t, db, "mark")
		now := time.Now().UTC().Add(time.Second)
		next := now.Add(6 * time.Hour)

		locked, err := repo.TryWithSourceLock(ctx, src.ID, func(ctx context.Context, tx *sql.Tx) error {
			polled, ok, lockErr := repo.LockDueTx(ctx, tx, src.ID, now)
			require.NoError(t, lockErr)
			require.True(t, ok)
			assert.Equal(t, src.ID, polled.ID)

			marked, markErr := repo.MarkQueuedTx(ctx, tx, domain.MarkQueuedParams{ID: src.ID, Now: now, NextPollAt: next})
			require.NoError(t, markErr)
			assert.True(t, marked)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, locked)

		got, err := NewSourceRepo(db).GetByID(ctx, src.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastQueuedAt)
		assert.WithinDuration(t, now, *got.LastQueuedAt, time.Millisecond)
		assert.WithinDuration(t, next, *got.NextPollAt, time.Millisecond)

		_, err = repo.TryWithSourceLock(ctx, src.ID, func(ctx context.Context, tx *sql.Tx) error {
			_, ok, lockErr := repo.LockDueTx(ctx, tx, src.ID, now)
			require.NoError(t, lockErr)
			assert.False(t, ok, "source is no longer due")
			return nil
		})
		require.NoError(t, err)
	})
}

func TestScheduledSourcesRepo_TryWithSourceLockRollsBackOnError(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewScheduledSourcesRepo(db)
		src := mustUpsertSource(t, db, "rollback")
		now := time.Now().UTC()
		boom := errors.New("boom")

		locked, err := repo.TryWithSourceLock(ctx, src.ID, func(ctx context.Context, tx *sql.Tx) error {
			_, markErr := repo.MarkQueuedTx(ctx, tx, domain.MarkQueuedParams{ID: src.ID, Now: now, NextPollAt: now.Add(time.Hour)})
			require.NoError(t, markErr)
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.True(t, locked)

		got, err := NewSourceRepo(db).GetByID(ctx, src.ID)
		require.NoError(t, err)
		assert.Nil(t, got.LastQueuedAt, "failed scheduling leaves the source untouched")
	})
}

func TestScheduledSourcesRepo_TryWithSourceLockContention(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewScheduledSourcesRepo(db)
		src := mustUpsertSource(t, db, "contended")

		outer, err := repo.TryWithSourceLock(ctx, src.ID, func(ctx context.Context, _ *sql.Tx) error {
			inner, innerErr := repo.TryWithSourceLock(ctx, src.ID, func(context.Context, *sql.Tx) error {
				t.Fatal("inner callback must not run while the lock is held")
				return nil
			})
			require.NoError(t, innerErr)
			assert.False(t, inner)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, outer)
	})
}

func TestFnvHashIsStableAndNonNegative(t *testing.T) {
	a := fnvHash("source:abc")
	assert.Equal(t, a, fnvHash("source:abc"))
	assert.NotEqual(t, a, fnvHash("source:abd"))
	assert.GreaterOrEqual(t, a, int64(0))
}
