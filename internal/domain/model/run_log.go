package model

import (
	"time"
)

// RunStatus is the outcome of one pipeline run.
type RunStatus string

const (
	// RunStatusSuccess means every fetched item was ingested or deduplicated.
	RunStatusSuccess RunStatus = "success"
	// RunStatusPartial means the run committed but some items were rejected.
	RunStatusPartial RunStatus = "partial"
	// RunStatusFailed means nothing from the run was persisted.
	RunStatusFailed RunStatus = "failed"
)

// Valid returns true if the RunStatus is known.
func (s RunStatus) Valid() bool {
	return s == RunStatusSuccess || s == RunStatusPartial || s == RunStatusFailed
}

// RunCounts are the per-run item tallies.
type RunCounts struct {
	Found        int `json:"found"`
	Ingested     int `json:"ingested"`
	Deduplicated int `json:"deduplicated"`
	Skipped      int `json:"skipped"`
}

// Status derives the run status of a committed run from its counts.
func (c RunCounts) Status() RunStatus {
	if c.Skipped > 0 {
		return RunStatusPartial
	}
	return RunStatusSuccess
}

// RunLog is the audit record written once at the end of every run.
type RunLog struct {
	ID               string    `json:"id"                      db:"id"`
	SourceID         string    `json:"source_id"               db:"source_id"`
	JobID            *string   `json:"job_id,omitempty"        db:"job_id"`
	Status           RunStatus `json:"status"                  db:"status"`
	JobsFound        int       `json:"jobs_found"              db:"jobs_found"`
	JobsIngested     int       `json:"jobs_ingested"           db:"jobs_ingested"`
	JobsDeduplicated int       `json:"jobs_deduplicated"       db:"jobs_deduplicated"`
	JobsSkipped      int       `json:"jobs_skipped"            db:"jobs_skipped"`
	ErrorMessage     *string   `json:"error_message,omitempty" db:"error_message"`
	DurationMS       int64     `json:"duration_ms"             db:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"              db:"created_at"`
}

// CreateRunLogRequest carries everything needed to write a RunLog.
type CreateRunLogRequest struct {
	SourceID     string
	JobID        *string
	Status       RunStatus
	Counts       RunCounts
	ErrorMessage *string
	Duration     time.Duration
}

// RunLogListOptions selects run logs for one source within a time window.
type RunLogListOptions struct {
	SourceID string
	Since    *time.Time
	Until    *time.Time
	Limit    int
}

// RunResult is returned to callers that run the pipeline synchronously.
type RunResult struct {
	SourceID string    `json:"source_id"`
	Status   RunStatus `json:"status"`
	Counts   RunCounts `json:"counts"`
	RunLog   *RunLog   `json:"run_log,omitempty"`
}
