package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/config"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/domain/model"
	"github.com/target/harvester/internal/mocks"
	"go.uber.org/mock/gomock"
)

func testReaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:        time.Minute,
		PendingMaxAge:   time.Hour,
		CompletedMaxAge: 24 * time.Hour,
		FailedMaxAge:    48 * time.Hour,
		RunLogMaxAge:    90 * 24 * time.Hour,
		BatchSize:       100,
	}
}

func TestNewReaperService_RequiresRepo(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{Config: testReaperConfig()})
	require.Error(t, err)
}

func TestReaperService_RunOnce_DrainsEveryStep(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)
	runLogs := mocks.NewMockRunLogPruner(ctrl)
	cfg := testReaperConfig()
	sink := &recordingSink{}

	gomock.InOrder(
		repo.EXPECT().FailStalePendingJobs(gomock.Any(), cfg.PendingMaxAge, cfg.BatchSize).Return(int64(100), nil),
		repo.EXPECT().FailStalePendingJobs(gomock.Any(), cfg.PendingMaxAge, cfg.BatchSize).Return(int64(3), nil),
		repo.EXPECT().FailStalePendingJobs(gomock.Any(), cfg.PendingMaxAge, cfg.BatchSize).Return(int64(0), nil),
	)
	gomock.InOrder(
		repo.EXPECT().DeleteOldJobs(gomock.Any(), core.DeleteOldJobsParams{
			Status: model.JobStatusCompleted, MaxAge: cfg.CompletedMaxAge, BatchSize: cfg.BatchSize,
		}).Return(int64(5), nil),
		repo.EXPECT().DeleteOldJobs(gomock.Any(), core.DeleteOldJobsParams{
			Status: model.JobStatusCompleted, MaxAge: cfg.CompletedMaxAge, BatchSize: cfg.BatchSize,
		}).Return(int64(0), nil),
	)
	repo.EXPECT().DeleteOldJobs(gomock.Any(), core.DeleteOldJobsParams{
		Status: model.JobStatusFailed, MaxAge: cfg.FailedMaxAge, BatchSize: cfg.BatchSize,
	}).Return(int64(0), nil)
	gomock.InOrder(
		runLogs.EXPECT().DeleteOlderThan(gomock.Any(), cfg.RunLogMaxAge, cfg.BatchSize).Return(int64(7), nil),
		runLogs.EXPECT().DeleteOlderThan(gomock.Any(), cfg.RunLogMaxAge, cfg.BatchSize).Return(int64(0), nil),
	)

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:    repo,
		RunLogs: runLogs,
		Config:  cfg,
		Logger:  discardLogger(),
		Metrics: sink,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))

	ops := map[string]string{}
	for _, c := range sink.named("reaper.cleanup_operation") {
		ops[c.tags["operation"]] = c.tags["result"]
	}
	assert.Equal(t, map[string]string{
		"fail_pending":     "success",
		"delete_completed": "success",
		"delete_failed":    "noop",
		"delete_run_logs":  "success",
	}, ops)

	rows := map[string]float64{}
	for _, c := range sink.named("reaper.rows_processed") {
		rows[c.tags["operation"]] = c.value
	}
	assert.InDelta(t, 103, rows["fail_pending"], 0)
	assert.InDelta(t, 5, rows["delete_completed"], 0)
	assert.InDelta(t, 7, rows["delete_run_logs"], 0)
	assert.Len(t, sink.named("reaper.last_success_epoch"), 1)
}

func TestReaperService_RunOnce_ContinuesAfterStepError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)
	sink := &recordingSink{}
	boom := errors.New("db down")

	repo.EXPECT().FailStalePendingJobs(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), boom)
	repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), nil).Times(2)

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:    repo,
		Config:  testReaperConfig(),
		Logger:  discardLogger(),
		Metrics: sink,
	})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fail_pending")

	cleanup := sink.named("reaper.cleanup")
	require.Len(t, cleanup, 1)
	assert.Equal(t, "error", cleanup[0].tags["result"])
	assert.Empty(t, sink.named("reaper.last_success_epoch"))
}

func TestReaperService_RunOnce_CanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)

	repo.EXPECT().FailStalePendingJobs(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), context.Canceled)
	repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), context.Canceled).Times(2)

	svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig(), Logger: discardLogger()})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.ErrorIs(t, err, context.Canceled)
}

func TestReaperService_Run_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)
	repo.EXPECT().FailStalePendingJobs(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	cfg := testReaperConfig()
	cfg.Interval = time.Hour
	svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestDrainBatches(t *testing.T) {
	counts := []int64{10, 10, 4, 0}
	calls := 0
	total, err := drainBatches(context.Background(), func(context.Context) (int64, error) {
		n := counts[calls]
		calls++
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(24), total)
	assert.Equal(t, 4, calls)
}
