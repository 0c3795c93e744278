// Package core holds the ports shared by services and repositories.
package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/target/harvester/internal/domain"
)

// ScheduledSourcesRepository provides concurrency-safe access to sources that poll on a schedule.
type ScheduledSourcesRepository interface {
	// FindDue returns active sources whose next_poll_at is at or before p.Now.
	FindDue(ctx context.Context, p domain.FindDueParams) ([]domain.PolledSource, error)

	// LockDueTx re-reads the source under a row lock and reports whether it is still due.
	LockDueTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) (*domain.PolledSource, bool, error)

	// MarkQueuedTx stamps last_queued_at and advances next_poll_at within tx.
	MarkQueuedTx(ctx context.Context, tx *sql.Tx, p domain.MarkQueuedParams) (bool, error)

	// TryWithSourceLock runs fn inside a transaction holding an advisory lock for the source.
	// Return semantics:
	//   - (false, nil): lock not acquired; fn was not executed
	//   - (true, nil): lock acquired; fn executed and succeeded
	//   - (true, err): lock acquired; fn executed and failed with err
	TryWithSourceLock(ctx context.Context, sourceID string, fn func(context.Context, *sql.Tx) error) (bool, error)
}

// JobIntrospector reports outstanding ingest jobs per source.
// "running" means status='running' AND lease_expires_at > now.
type JobIntrospector interface {
	JobStatesBySource(ctx context.Context, sourceID string, now time.Time) (domain.OverrunStateMask, error)
}

// JobScheduler defines the interface for the scheduler service.
type JobScheduler interface {
	// Tick processes due sources and returns how many were worked.
	Tick(ctx context.Context, now time.Time) (int, error)
}

// SchedulerConfig holds configuration for the scheduler service.
type SchedulerConfig struct {
	BatchSize       int                     `json:"batch_size"`
	DefaultPriority int                     `json:"default_priority"`
	MaxRetries      int                     `json:"max_retries"`
	Overrun         domain.OverrunPolicy    `json:"overrun"`
	OverrunStates   domain.OverrunStateMask `json:"overrun_states"`
}

// DefaultSchedulerConfig returns a SchedulerConfig with sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BatchSize:       25,
		DefaultPriority: 0,
		MaxRetries:      3,
		Overrun:         domain.OverrunPolicySkip,
		OverrunStates:   domain.OverrunStatesDefault,
	}
}
