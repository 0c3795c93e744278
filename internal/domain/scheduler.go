// Package domain contains scheduling types shared by the scheduler service and its repositories.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// PolledSource is the scheduler's view of a source that polls on a schedule.
type PolledSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// PollInterval is a cron expression or descriptor such as "@every 6h" or "@daily".
	PollInterval string     `json:"poll_interval"`
	LastQueuedAt *time.Time `json:"last_queued_at,omitempty"`
	NextPollAt   time.Time  `json:"next_poll_at"`
}

// OverrunPolicy defines how to handle scheduling when a previous run for the source is outstanding.
type OverrunPolicy string

const (
	// OverrunPolicySkip skips the slot if an outstanding job matches the configured states.
	// Expired leases do not block scheduling.
	OverrunPolicySkip OverrunPolicy = "skip"

	// OverrunPolicyQueue always enqueues a new job regardless of outstanding jobs.
	OverrunPolicyQueue OverrunPolicy = "queue"

	// OverrunPolicyReschedule advances the schedule but never enqueues.
	OverrunPolicyReschedule OverrunPolicy = "reschedule"
)

// OverrunStateMask controls which job states block new enqueue attempts when using OverrunPolicySkip.
type OverrunStateMask uint8

const (
	// OverrunStateRunning blocks when an in-progress job with an active lease exists.
	OverrunStateRunning OverrunStateMask = 1 << iota
	// OverrunStatePending blocks when a pending job exists (covers freshly enqueued jobs).
	OverrunStatePending
	// OverrunStateRetrying blocks when a pending job exists with retry_count > 0.
	OverrunStateRetrying
)

// OverrunStatesDefault blocks on running and pending runs so a slow source never stacks jobs.
const OverrunStatesDefault = OverrunStateRunning | OverrunStatePending

// Has reports whether the mask includes the provided flag.
func (m *OverrunStateMask) Has(flag OverrunStateMask) bool {
	if m == nil {
		return false
	}
	return (*m)&flag != 0
}

var overrunStateNames = []struct {
	name string
	flag OverrunStateMask
}{
	{"running", OverrunStateRunning},
	{"pending", OverrunStatePending},
	{"retrying", OverrunStateRetrying},
}

// String returns a stable, comma-separated representation of the mask.
func (m *OverrunStateMask) String() string {
	if m == nil || *m == 0 {
		return ""
	}
	var parts []string
	for _, entry := range overrunStateNames {
		if *m&entry.flag != 0 {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseOverrunStateMask parses a comma-separated list of state names into a mask.
func ParseOverrunStateMask(v string) (OverrunStateMask, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	var mask OverrunStateMask
	for _, part := range strings.Split(v, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		found := false
		for _, entry := range overrunStateNames {
			if entry.name == name {
				mask |= entry.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("invalid overrun state: %q", name)
		}
	}
	return mask, nil
}

// MarshalText implements encoding.TextMarshaler.
func (m *OverrunStateMask) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *OverrunStateMask) UnmarshalText(text []byte) error {
	mask, err := ParseOverrunStateMask(string(text))
	if err != nil {
		return err
	}
	*m = mask
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler to parse OverrunPolicy from env or text.
func (p *OverrunPolicy) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch OverrunPolicy(v) {
	case OverrunPolicySkip, OverrunPolicyQueue, OverrunPolicyReschedule:
		*p = OverrunPolicy(v)
		return nil
	default:
		return fmt.Errorf("invalid OverrunPolicy: %q", v)
	}
}

// FindDueParams holds inputs for transactional FindDue.
type FindDueParams struct {
	Now   time.Time
	Limit int
}

// MarkQueuedParams advances a source's schedule.
type MarkQueuedParams struct {
	ID         string
	Now        time.Time
	NextPollAt time.Time
}
