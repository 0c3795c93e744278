package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/target/harvester/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not on the data package.

// JobRepository defines the interface for dispatch queue operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ReserveNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error)
	WaitForNotification(ctx context.Context, jobType model.JobType) error
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, params FailJobParams) (bool, error)
	FailPermanently(ctx context.Context, id, errMsg string) (bool, error)
	Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error)
}

// JobRepositoryTx defines transactional job creation used by the scheduler.
type JobRepositoryTx interface {
	// CreateIfAbsentInTx inserts a job unless a job with the same scheduler fire key exists.
	// created is false when the insert was a no-op.
	CreateIfAbsentInTx(ctx context.Context, tx *sql.Tx, req *model.CreateJobRequest) (job *model.Job, created bool, err error)
}

// SourceJobLister lists a source's recent dispatch jobs.
type SourceJobLister interface {
	ListBySource(ctx context.Context, sourceID string, limit int) ([]*model.Job, error)
}

// FailJobParams groups parameters for JobRepository.Fail.
type FailJobParams struct {
	ID    string
	Error string
	// RetryDelay is applied when the job still has retries left.
	RetryDelay time.Duration
}

// DeleteOldJobsParams groups parameters for deleting terminal jobs.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository is implemented by repositories that prune their own tables.
type ReaperRepository interface {
	FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}

// RunLogPruner deletes run logs past retention.
type RunLogPruner interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// SourceRepository defines the interface for source data operations.
type SourceRepository interface {
	Upsert(ctx context.Context, req *model.UpsertSourceRequest) (*model.Source, error)
	GetByID(ctx context.Context, id string) (*model.Source, error)
	GetByName(ctx context.Context, name string) (*model.Source, error)
	List(ctx context.Context, limit, offset int) ([]*model.Source, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// PostingRepository exposes read access to the catalog.
type PostingRepository interface {
	List(ctx context.Context, opts model.PostingListOptions) ([]*model.Posting, error)
	GetByID(ctx context.Context, id string) (*model.Posting, error)
	CountBySource(ctx context.Context, sourceID string) (int, error)
}

// RunLogRepository persists and queries run audit records.
type RunLogRepository interface {
	Create(ctx context.Context, req model.CreateRunLogRequest) (*model.RunLog, error)
	ListBySource(ctx context.Context, opts model.RunLogListOptions) ([]*model.RunLog, error)
	Latest(ctx context.Context, sourceID string) (*model.RunLog, error)
}

// IngestTx is the per-run unit of work. Nothing written through it is visible
// to other runs until the enclosing IngestStore.RunInTx call returns nil.
type IngestTx interface {
	ExistsByHash(ctx context.Context, identityHash string) (bool, error)
	// InsertPosting returns false when a uniqueness constraint absorbed the row.
	InsertPosting(ctx context.Context, p model.NewPosting) (bool, error)
	TouchLastRun(ctx context.Context, sourceID string, at time.Time) error
}

// IngestStore runs fn inside a single transaction, committing only when fn returns nil.
type IngestStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx IngestTx) error) error
}
