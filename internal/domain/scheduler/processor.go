package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/target/harvester/internal/domain"
)

// SourceStore executes scheduler persistence operations within the ambient transaction.
type SourceStore interface {
	MarkQueued(ctx context.Context, params domain.MarkQueuedParams) (bool, error)
}

// JobStateReader reports the current overrun states for a source's ingest jobs.
type JobStateReader interface {
	JobStatesBySource(ctx context.Context, sourceID string, now time.Time) (domain.OverrunStateMask, error)
}

// JobEnqueuer creates an ingest job for the provided source using the supplied fire key.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, src domain.PolledSource, fireKey string) (bool, error)
}

// ProcessorOptions configures Processor defaults.
type ProcessorOptions struct {
	Policy      domain.OverrunPolicy
	States      domain.OverrunStateMask
	StateReader JobStateReader
}

// Processor owns the overrun policy flow for polled sources.
type Processor struct {
	policy      domain.OverrunPolicy
	states      domain.OverrunStateMask
	stateReader JobStateReader
}

// NewProcessor constructs a Processor with sane defaults.
func NewProcessor(opts ProcessorOptions) *Processor {
	policy := opts.Policy
	if policy == "" {
		policy = domain.OverrunPolicySkip
	}
	states := opts.States
	if states == 0 {
		states = domain.OverrunStatesDefault
	}
	return &Processor{policy: policy, states: states, stateReader: opts.StateReader}
}

// ProcessParams supplies the per-invocation collaborators for Process.
type ProcessParams struct {
	Source   domain.PolledSource
	Now      time.Time
	Store    SourceStore
	Enqueuer JobEnqueuer
}

// ProcessResult captures the outcome of processing a polled source.
type ProcessResult struct {
	Worked       bool
	Enqueued     bool
	MarkedQueued bool
	Skipped      bool
	FireKey      string
	NextPollAt   time.Time
}

// Process evaluates a due source, enqueues an ingest job when the overrun policy allows,
// and advances the source's next poll time.
func (p *Processor) Process(ctx context.Context, params ProcessParams) (*ProcessResult, error) {
	if params.Store == nil {
		return nil, errors.New("source store is required")
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	src := params.Source
	result := &ProcessResult{}
	if src.NextPollAt.After(now) {
		return result, nil
	}

	next, err := NextPoll(src.PollInterval, now)
	if err != nil {
		return nil, err
	}
	result.NextPollAt = next
	result.FireKey = ComputeFireKey(src)

	shouldEnqueue, err := p.shouldEnqueue(ctx, src, now)
	if err != nil {
		return nil, fmt.Errorf("check overrun policy: %w", err)
	}

	if shouldEnqueue {
		if params.Enqueuer == nil {
			return nil, errors.New("job enqueuer is required")
		}
		created, enqErr := params.Enqueuer.Enqueue(ctx, src, result.FireKey)
		if enqErr != nil {
			return nil, fmt.Errorf("enqueue job: %w", enqErr)
		}
		result.Enqueued = created
	} else {
		result.Skipped = true
	}

	marked, err := params.Store.MarkQueued(ctx, domain.MarkQueuedParams{
		ID:         src.ID,
		Now:        now,
		NextPollAt: next,
	})
	if err != nil {
		return nil, fmt.Errorf("mark source queued: %w", err)
	}
	result.MarkedQueued = marked
	result.Worked = marked || result.Enqueued
	return result, nil
}

func (p *Processor) shouldEnqueue(ctx context.Context, src domain.PolledSource, now time.Time) (bool, error) {
	switch p.policy {
	case domain.OverrunPolicyQueue:
		return true, nil
	case domain.OverrunPolicyReschedule:
		return false, nil
	case domain.OverrunPolicySkip:
		if p.stateReader == nil {
			return false, errors.New("job state reader is not configured")
		}
		states, err := p.stateReader.JobStatesBySource(ctx, src.ID, now)
		if err != nil {
			return false, fmt.Errorf("check job states: %w", err)
		}
		return states&p.states == 0, nil
	default:
		return false, fmt.Errorf("unknown overrun policy: %s", p.policy)
	}
}

// ComputeFireKey derives an idempotent fire key for the source's current slot.
// Two schedulers racing on the same slot produce the same key.
func ComputeFireKey(src domain.PolledSource) string {
	return fmt.Sprintf("%s:%d", src.ID, src.NextPollAt.Unix())
}
