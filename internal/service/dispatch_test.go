package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/domain/model"
	apperrors "github.com/target/harvester/internal/errors"
	"github.com/target/harvester/internal/mocks"
	"go.uber.org/mock/gomock"
)

const testJobID = "5f1e8a2b-9c3d-4e7f-8a1b-2c3d4e5f6a7b"

func newTestDispatchService(t *testing.T) (*DispatchService, *mocks.MockSourceRepository, *mocks.MockJobRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	sources := mocks.NewMockSourceRepository(ctrl)
	jobs := mocks.NewMockJobRepository(ctrl)
	svc, err := NewDispatchService(DispatchServiceOptions{Sources: sources, Jobs: jobs, Logger: discardLogger()})
	require.NoError(t, err)
	return svc, sources, jobs
}

func TestDispatchService_EnqueueRun(t *testing.T) {
	svc, sources, jobs := newTestDispatchService(t)
	ctx := context.Background()

	sources.EXPECT().GetByID(ctx, testSourceID).Return(apiSource(), nil)
	jobs.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			assert.Equal(t, model.JobTypeIngest, req.Type)
			assert.Equal(t, DefaultRunMaxRetries, req.MaxRetries)
			require.NotNil(t, req.SourceID)
			assert.Equal(t, testSourceID, *req.SourceID)

			var payload model.IngestJobPayload
			require.NoError(t, json.Unmarshal(req.Payload, &payload))
			assert.Equal(t, model.TriggerManual, payload.Trigger)
			assert.Equal(t, testSourceID, payload.SourceID)
			return &model.Job{ID: testJobID, Status: model.JobStatusPending, SourceID: req.SourceID}, nil
		})

	job, err := svc.EnqueueRun(ctx, testSourceID, EnqueueOptions{})
	require.NoError(t, err)
	assert.Equal(t, testJobID, job.ID)
	assert.Equal(t, model.JobStatusPending, job.Status)
}

func TestDispatchService_EnqueueRun_Overrides(t *testing.T) {
	svc, sources, jobs := newTestDispatchService(t)

	sources.EXPECT().GetByID(gomock.Any(), testSourceID).Return(apiSource(), nil)
	jobs.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			assert.Equal(t, 10, req.Priority)
			assert.Equal(t, 7, req.MaxRetries)
			return &model.Job{ID: testJobID}, nil
		})

	_, err := svc.EnqueueRun(context.Background(), testSourceID, EnqueueOptions{Priority: 10, MaxRetries: 7})
	require.NoError(t, err)
}

func TestDispatchService_EnqueueRun_Errors(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		svc, sources, jobs := newTestDispatchService(t)
		sources.EXPECT().GetByID(gomock.Any(), testSourceID).Return(nil, data.ErrSourceNotFound)
		jobs.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.EnqueueRun(context.Background(), testSourceID, EnqueueOptions{})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("malformed id", func(t *testing.T) {
		svc, _, _ := newTestDispatchService(t)
		_, err := svc.EnqueueRun(context.Background(), "abc", EnqueueOptions{})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("priority out of range", func(t *testing.T) {
		svc, sources, jobs := newTestDispatchService(t)
		sources.EXPECT().GetByID(gomock.Any(), testSourceID).Return(apiSource(), nil)
		jobs.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.EnqueueRun(context.Background(), testSourceID, EnqueueOptions{Priority: 101})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("queue unavailable", func(t *testing.T) {
		svc, sources, jobs := newTestDispatchService(t)
		sources.EXPECT().GetByID(gomock.Any(), testSourceID).Return(apiSource(), nil)
		jobs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("insert failed"))

		_, err := svc.EnqueueRun(context.Background(), testSourceID, EnqueueOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enqueue ingest run")
	})
}

func TestDispatchService_GetJob(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc, _, jobs := newTestDispatchService(t)
		jobs.EXPECT().GetByID(gomock.Any(), testJobID).Return(&model.Job{ID: testJobID, Status: model.JobStatusCompleted}, nil)

		job, err := svc.GetJob(context.Background(), testJobID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, job.Status)
	})

	t.Run("missing", func(t *testing.T) {
		svc, _, jobs := newTestDispatchService(t)
		jobs.EXPECT().GetByID(gomock.Any(), testJobID).Return(nil, data.ErrJobNotFound)

		_, err := svc.GetJob(context.Background(), testJobID)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("malformed id", func(t *testing.T) {
		svc, _, _ := newTestDispatchService(t)
		_, err := svc.GetJob(context.Background(), "job-1")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDispatchService_Stats(t *testing.T) {
	svc, _, jobs := newTestDispatchService(t)
	want := &model.JobStats{Pending: 2, Running: 1, Completed: 9, Failed: 1}
	jobs.EXPECT().Stats(gomock.Any(), model.JobTypeIngest).Return(want, nil)

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewDispatchService_RequiresDependencies(t *testing.T) {
	_, err := NewDispatchService(DispatchServiceOptions{})
	require.Error(t, err)
}

func TestDispatchService_ListJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockSourceJobLister(ctrl)
	svc, err := NewDispatchService(DispatchServiceOptions{
		Sources: mocks.NewMockSourceRepository(ctrl),
		Jobs:    mocks.NewMockJobRepository(ctrl),
		History: history,
		Logger:  discardLogger(),
	})
	require.NoError(t, err)

	want := []*model.Job{{ID: testJobID}}
	history.EXPECT().ListBySource(gomock.Any(), testSourceID, 20).Return(want, nil)

	got, err := svc.ListJobs(context.Background(), testSourceID, 20)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.ListJobs(context.Background(), "nope", 20)
	assert.True(t, apperrors.IsNotFound(err))
}
