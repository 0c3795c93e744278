package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data/pgxutil"
	"github.com/target/harvester/internal/domain"
	"github.com/target/harvester/internal/domain/model"
	"github.com/target/harvester/internal/testutil"
)

func TestJobRepo_CreateAndGet(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		src := mustUpsertSource(t, db, "create-and-get")
		repo := NewJobRepo(db, RepoConfig{})

		job, err := repo.Create(ctx, ingestJobRequest(src.ID))
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, job.Status)
		assert.Equal(t, 3, job.MaxRetries, "default max retries applies")
		require.NotNil(t, job.SourceID)
		assert.Equal(t, src.ID, *job.SourceID)
		assert.JSONEq(t, `{}`, string(job.Metadata))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		payload, err := got.DecodeIngestPayload()
		require.NoError(t, err)
		assert.Equal(t, src.ID, payload.SourceID)

		_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		require.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_CreateRejectsInvalidRequest(t *testing.T) {
	repo := NewJobRepo(nil, RepoConfig{})
	_, err := repo.Create(context.Background(), &model.CreateJobRequest{Type: "bogus", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)

	_, err = repo.Create(context.Background(), nil)
	require.Error(t, err)
}

func TestJobRepo_ReserveCompleteLifecycle(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		src := mustUpsertSource(t, db, "lifecycle")
		repo := NewJobRepo(db, RepoConfig{})

		low := ingestJobRequest(src.ID)
		lowJob, err := repo.Create(ctx, low)
		require.NoError(t, err)
		high := ingestJobRequest(src.ID)
		high.Priority = 90
		highJob, err := repo.Create(ctx, high)
		require.NoError(t, err)

		first, err := repo.ReserveNext(ctx, model.JobTypeIngest, 30)
		require.NoError(t, err)
		assert.Equal(t, highJob.ID, first.ID, "higher priority is reserved first")
		assert.Equal(t, model.JobStatusRunning, first.Status)
		require.NotNil(t, first.LeaseExpiresAt)
		require.NotNil(t, first.StartedAt)

		second, err := repo.ReserveNext(ctx, model.JobTypeIngest, 30)
		require.NoError(t, err)
		assert.Equal(t, lowJob.ID, second.ID)

		_, err = repo.ReserveNext(ctx, model.JobTypeIngest, 30)
		require.ErrorIs(t, err, model.ErrNoJobsAvailable)

		ok, err := repo.Heartbeat(ctx, first.ID, 60)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Complete(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Complete(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, ok, "completing twice is a no-op")

		ok, err = repo.Heartbeat(ctx, first.ID, 60)
		require.NoError(t, err)
		assert.False(t, ok, "completed jobs cannot be heartbeated")

		stats, err := repo.Stats(ctx, model.JobTypeIngest)
		require.NoError(t, err)
		assert.Equal(t, model.JobStats{Running: 1, Completed: 1}, *stats)
	})
}

func TestJobRepo_FailRetriesWithDelayThenFails(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := NewFixedTimeProvider(time.Now().UTC())
		src := mustUpsertSource(t, db, "retries")
		repo := NewJobRepo(db, RepoConfig{TimeProvider: clock})

		job, err := repo.Create(ctx, ingestJobRequest(src.ID))
		require.NoError(t, err)
		require.Equal(t, 3, job.MaxRetries)

		// The first attempt plus three retries, each retry delayed 60s, 120s, 240s.
		delays := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute}
		for i, delay := range delays {
			_, err = repo.ReserveNext(ctx, model.JobTypeIngest, 30)
			require.NoError(t, err, "attempt %d", i+1)

			ok, failErr := repo.Fail(ctx, core.FailJobParams{ID: job.ID, Error: "boom", RetryDelay: delay})
			require.NoError(t, failErr)
			require.True(t, ok)

			got, getErr := repo.GetByID(ctx, job.ID)
			require.NoError(t, getErr)
			assert.Equal(t, model.JobStatusPending, got.Status, "failure %d still has retries left", i+1)
			assert.Equal(t, i+1, got.RetryCount)
			assert.Nil(t, got.CompletedAt)
			require.NotNil(t, got.LastError)
			assert.Equal(t, "boom", *got.LastError)
			assert.WithinDuration(t, clock.Now().Add(delay), got.ScheduledAt, time.Second)

			_, err = repo.ReserveNext(ctx, model.JobTypeIngest, 30)
			require.ErrorIs(t, err, model.ErrNoJobsAvailable, "retry is not visible before its delay")
			clock.Advance(delay + time.Second)
		}

		_, err = repo.ReserveNext(ctx, model.JobTypeIngest, 30)
		require.NoError(t, err, "fourth attempt")
		ok, err := repo.Fail(ctx, core.FailJobParams{ID: job.ID, Error: "boom again", RetryDelay: 8 * time.Minute})
		require.NoError(t, err)
		require.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		assert.Equal(t, 4, got.RetryCount)
		assert.NotNil(t, got.CompletedAt)
		require.NotNil(t, got.LastError)
		assert.Equal(t, "boom again", *got.LastError)
	})
}

func TestJobRepo_FailSingleRetryBudget(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		src := mustUpsertSource(t, db, "single-retry")
		repo := NewJobRepo(db, RepoConfig{})

		req := ingestJobRequest(src.ID)
		req.MaxRetries = 1
		job, err := repo.Create(ctx, req)
		require.NoError(t, err)

		for attempt, want := range []model.JobStatus{model.JobStatusPending, model.JobStatusFailed} {
			_, err = repo.ReserveNext(ctx, model.JobTypeIngest, 30)
			require.NoError(t, err, "attempt %d", attempt+1)
			_, err = repo.Fail(ctx, core.FailJobParams{ID: job.ID, Error: "boom"})
			require.NoError(t, err)

			got, getErr := repo.GetByID(ctx, job.ID)
			require.NoError(t, getErr)
			assert.Equal(t, want, got.Status, "after attempt %d", attempt+1)
		}
	})
}

func TestJobRepo_FailPermanently(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		src := mustUpsertSource(t, db, "permanent")
		repo := NewJobRepo(db, RepoConfig{})

		job, err := repo.Create(ctx, ingestJobRequest(src.ID))
		require.NoError(t, err)

		ok, err := repo.FailPermanently(ctx, job.ID, "not running")
		require.NoError(t, err)
		assert.False(t, ok, "only running jobs can fail")

		_, err = repo.ReserveNext(ctx, model.JobTypeIngest, 30)
		require.NoError(t, err)

		ok, err = repo.FailPermanently(ctx, job.ID, "invalid config")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		assert.Equal(t, 1, got.RetryCount)
	})
}

func TestJobRepo_ReserveRequeuesExpiredLease(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := NewFixedTimeProvider(time.Now().UTC())
		src := mustUpsertSource(t, db, "expired-lease")
		repo := NewJobRepo(db, RepoConfig{TimeProvider: clock})

		job, err := repo.Create(ctx, ingestJobRequest(src.ID))
		require.NoError(t, err)
		_, err = repo.ReserveNext(ctx, model.JobTypeIngest, 5)
		require.NoError(t, err)

		_, err = repo.ReserveNext(ctx, model.JobTypeIngest, 5)
		require.ErrorIs(t, err, model.ErrNoJobsAvailable)

		clock.Advance(10 * time.Second)
		again, err := repo.ReserveNext(ctx, model.JobTypeIngest, 5)
		require.NoError(t, err)
		assert.Equal(t, job.ID, again.ID)
	})
}

func TestJobRepo_CreateIfAbsentInTx(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		src := mustUpsertSource(t, db, "fire-key")
		repo := NewJobRepo(db, RepoConfig{})

		create := func() (bool, error) {
			var created bool
			err := pgxutil.WithSQLTx(ctx, db, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
				req := ingestJobRequest(src.ID)
				req.Metadata = json.RawMessage(`{"scheduler.fire_key":"` + src.ID + `:1700000000"}`)
				_, c, err := repo.CreateIfAbsentInTx(ctx, tx, req)
				created = c
				return err
			}})
			return created, err
		}

		created, err := create()
		require.NoError(t, err)
		assert.True(t, created)

		created, err = create()
		require.NoError(t, err)
		assert.False(t, created, "same fire key is a no-op")

		assert.Equal(t, 1, testutil.CountRows(t, db, "jobs"))

		_, _, err = repo.CreateIfAbsentInTx(ctx, nil, ingestJobRequest(src.ID))
		require.Error(t, err)
	})
}

func TestJobRepo_JobStatesBySource(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		src := mustUpsertSource(t, db, "states")
		other := mustUpsertSource(t, db, "states-other")
		repo := NewJobRepo(db, RepoConfig{})

		mask, err := repo.JobStatesBySource(ctx, src.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, domain.OverrunStateMask(0), mask)

		_, err = repo.Create(ctx, ingestJobRequest(src.ID))
		require.NoError(t, err)

		mask, err = repo.JobStatesBySource(ctx, src.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, mask.Has(domain.OverrunStatePending))
		assert.False(t, mask.Has(domain.OverrunStateRunning))

		_, err = repo.ReserveNext(ctx, model.JobTypeIngest, 60)
		require.NoError(t, err)

		mask, err = repo.JobStatesBySource(ctx, src.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, mask.Has(domain.OverrunStateRunning))
		assert.False(t, mask.Has(domain.OverrunStatePending))

		mask, err = repo.JobStatesBySource(ctx, src.ID, time.Now().Add(2*time.Minute))
		require.NoError(t, err)
		assert.False(t, mask.Has(domain.OverrunStateRunning), "expired leases do not count as running")

		mask, err = repo.JobStatesBySource(ctx, other.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, domain.OverrunStateMask(0), mask)
	})
}

func TestJobRepo_ListBySource(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		src := mustUpsertSource(t, db, "list-by-source")
		repo := NewJobRepo(db, RepoConfig{})

		for range 3 {
			_, err := repo.Create(ctx, ingestJobRequest(src.ID))
			require.NoError(t, err)
		}

		jobs, err := repo.ListBySource(ctx, src.ID, 2)
		require.NoError(t, err)
		assert.Len(t, jobs, 2)

		_, err = repo.ListBySource(ctx, "", 10)
		require.ErrorIs(t, err, ErrSourceIDRequired)
	})
}

func TestJobRepo_WaitForNotification(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		src := mustUpsertSource(t, db, "notify")
		repo := NewJobRepo(db, RepoConfig{})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- repo.WaitForNotification(ctx, model.JobTypeIngest) }()

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case err := <-done:
				require.NoError(t, err)
				return
			case <-ticker.C:
				_, err := repo.Create(context.Background(), ingestJobRequest(src.ID))
				require.NoError(t, err)
			case <-ctx.Done():
				t.Fatal("no notification received")
			}
		}
	})
}

func TestJobRepo_WaitForNotificationHonorsContext(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		err := repo.WaitForNotification(ctx, model.JobTypeIngest)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil)
	})
}
