package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/domain/model"
	"github.com/target/harvester/internal/mocks"
	"go.uber.org/mock/gomock"
)

type stubJobNotifier struct {
	subscribeCalls int
	stopCalled     bool
}

func (s *stubJobNotifier) Subscribe() (func(), <-chan struct{}) {
	s.subscribeCalls++
	ch := make(chan struct{}, 1)
	return func() { close(ch) }, ch
}

func (s *stubJobNotifier) Stop() { s.stopCalled = true }

func newTestJobService(t *testing.T) (*JobService, *mocks.MockJobRepository, *stubJobNotifier) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	notifier := &stubJobNotifier{}
	svc, err := NewJobService(JobServiceOptions{
		Repo:         repo,
		DefaultLease: 30 * time.Second,
		Notifier:     notifier,
		Logger:       discardLogger(),
	})
	require.NoError(t, err)
	return svc, repo, notifier
}

func TestNewJobService_Validation(t *testing.T) {
	_, err := NewJobService(JobServiceOptions{DefaultLease: time.Second})
	require.Error(t, err)

	ctrl := gomock.NewController(t)
	_, err = NewJobService(JobServiceOptions{Repo: mocks.NewMockJobRepository(ctrl)})
	require.Error(t, err)
}

func TestNewJobService_DefaultNotifierUsesRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, err := NewJobService(JobServiceOptions{Repo: repo, DefaultLease: time.Second})
	require.NoError(t, err)
	svc.Stop()
}

func TestJobService_ReserveNext_AppliesLeasePolicy(t *testing.T) {
	svc, repo, _ := newTestJobService(t)
	ctx := context.Background()

	repo.EXPECT().ReserveNext(ctx, model.JobTypeIngest, 30).Return(&model.Job{ID: "j1"}, nil)
	job, err := svc.ReserveNext(ctx, model.JobTypeIngest, 0)
	require.NoError(t, err)
	assert.Equal(t, "j1", job.ID)

	repo.EXPECT().ReserveNext(ctx, model.JobTypeIngest, 1).Return(&model.Job{ID: "j2"}, nil)
	_, err = svc.ReserveNext(ctx, model.JobTypeIngest, 200*time.Millisecond)
	require.NoError(t, err)
}

func TestJobService_ReserveNext_Empty(t *testing.T) {
	svc, repo, _ := newTestJobService(t)
	repo.EXPECT().ReserveNext(gomock.Any(), model.JobTypeIngest, 30).Return(nil, model.ErrNoJobsAvailable)

	_, err := svc.ReserveNext(context.Background(), model.JobTypeIngest, 0)
	require.ErrorIs(t, err, model.ErrNoJobsAvailable)
}

func TestJobService_Heartbeat(t *testing.T) {
	svc, repo, _ := newTestJobService(t)
	repo.EXPECT().Heartbeat(gomock.Any(), "j1", 45).Return(false, nil)

	ok, err := svc.Heartbeat(context.Background(), "j1", 45*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobService_Complete(t *testing.T) {
	svc, repo, _ := newTestJobService(t)
	repo.EXPECT().Complete(gomock.Any(), "j1").Return(true, nil)

	ok, err := svc.Complete(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobService_Fail(t *testing.T) {
	svc, repo, _ := newTestJobService(t)
	params := core.FailJobParams{ID: "j1", Error: "fetch failed", RetryDelay: 2 * time.Minute}
	repo.EXPECT().Fail(gomock.Any(), params).Return(true, nil)

	ok, err := svc.Fail(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Fail(context.Background(), core.FailJobParams{ID: "j1"})
	require.Error(t, err)
}

func TestJobService_FailPermanently(t *testing.T) {
	svc, repo, _ := newTestJobService(t)
	repo.EXPECT().FailPermanently(gomock.Any(), "j1", InvalidConfigMessage).Return(true, nil)

	ok, err := svc.FailPermanently(context.Background(), "j1", InvalidConfigMessage)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.FailPermanently(context.Background(), "j1", "")
	require.Error(t, err)
}

func TestJobService_WrapsRepositoryErrors(t *testing.T) {
	svc, repo, _ := newTestJobService(t)
	boom := errors.New("boom")
	repo.EXPECT().Stats(gomock.Any(), model.JobTypeIngest).Return(nil, boom)

	_, err := svc.Stats(context.Background(), model.JobTypeIngest)
	require.ErrorIs(t, err, boom)
}

func TestJobService_SubscribeAndStop(t *testing.T) {
	svc, _, notifier := newTestJobService(t)

	unsub, ch := svc.Subscribe()
	require.NotNil(t, ch)
	unsub()
	assert.Equal(t, 1, notifier.subscribeCalls)

	svc.Stop()
	assert.True(t, notifier.stopCalled)
}
