package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/target/harvester/internal/domain"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeScheduler runs the poll scheduler.
	ServiceModeScheduler ServiceMode = "scheduler"
	// ServiceModeReaper runs the job and run log reaper.
	ServiceModeReaper ServiceMode = "reaper"
	// ServiceModeIngestRunner runs the ingest job workers.
	ServiceModeIngestRunner ServiceMode = "ingest-runner"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeScheduler,
		ServiceModeReaper,
		ServiceModeIngestRunner,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)
	if strings.TrimSpace(servicesStr) == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		mode := ServiceMode(name)
		switch mode {
		case ServiceModeHTTP, ServiceModeScheduler, ServiceModeReaper, ServiceModeIngestRunner:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, scheduler, reaper, ingest-runner)",
				name,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// SchedulerConfig contains poll scheduler configuration.
type SchedulerConfig struct {
	// BatchSize is the number of due sources claimed per tick.
	BatchSize int `env:"SCHEDULER_BATCH_SIZE" envDefault:"25"`

	// DefaultPriority is the priority assigned to scheduled ingest jobs.
	DefaultPriority int `env:"SCHEDULER_DEFAULT_PRIORITY" envDefault:"0"`

	// MaxRetries is the retry budget of scheduled ingest jobs.
	MaxRetries int `env:"SCHEDULER_MAX_RETRIES" envDefault:"3"`

	// OverrunPolicy determines what happens when a source is due while its previous run is outstanding.
	// Valid values: skip, queue, reschedule
	OverrunPolicy domain.OverrunPolicy `env:"SCHEDULER_OVERRUN" envDefault:"skip"`

	// OverrunStates lists the job states that block enqueue under the skip policy.
	// Comma-separated list of: running, pending, retrying.
	OverrunStates domain.OverrunStateMask `env:"SCHEDULER_OVERRUN_STATES" envDefault:"running,pending"`

	// Interval is the scheduler tick interval.
	Interval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"5s"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.OverrunPolicy == "" {
		s.OverrunPolicy = domain.OverrunPolicySkip
	}
	if s.OverrunStates == 0 {
		s.OverrunStates = domain.OverrunStatesDefault
	}
	if s.Interval < 100*time.Millisecond {
		s.Interval = 100 * time.Millisecond
	}
}

// IngestRunnerConfig contains ingest job runner configuration.
type IngestRunnerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"JOBS_CONCURRENCY" envDefault:"2"`

	// JobLease is the lease taken on a reserved job and renewed by heartbeats.
	JobLease time.Duration `env:"JOBS_LEASE" envDefault:"60s"`

	// MaxRetries is the retry budget of manually triggered runs.
	MaxRetries int `env:"JOBS_MAX_RETRIES" envDefault:"3"`

	// RetryBaseDelay is the backoff base: the n-th retry waits base * 2^n.
	RetryBaseDelay time.Duration `env:"JOB_RETRY_BASE_DELAY" envDefault:"60s"`

	// RunTimeout bounds one pipeline run.
	RunTimeout time.Duration `env:"JOB_RUN_TIMEOUT" envDefault:"10m"`
}

// Sanitize applies guardrails to ingest runner configuration values.
func (r *IngestRunnerConfig) Sanitize() {
	if r.Concurrency < 1 {
		r.Concurrency = 1
	}
	if r.JobLease < 5*time.Second {
		r.JobLease = 5 * time.Second
	}
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	}
	if r.RetryBaseDelay < time.Second {
		r.RetryBaseDelay = time.Second
	}
	if r.RunTimeout < 10*time.Second {
		r.RunTimeout = 10 * time.Second
	}
}

// ReaperConfig contains reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// PendingMaxAge fails jobs left pending longer than this.
	PendingMaxAge time.Duration `env:"REAPER_PENDING_MAX_AGE" envDefault:"1h"`

	// CompletedMaxAge is the retention of completed jobs.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"168h"`

	// FailedMaxAge is the retention of failed jobs.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"168h"`

	// RunLogMaxAge is the retention of run logs.
	RunLogMaxAge time.Duration `env:"REAPER_RUN_LOG_MAX_AGE" envDefault:"2160h"`

	// BatchSize is the maximum number of rows deleted per statement.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Minute {
		r.Interval = time.Minute
	}
	if r.PendingMaxAge < 5*time.Minute {
		r.PendingMaxAge = 5 * time.Minute
	}
	if r.CompletedMaxAge < time.Hour {
		r.CompletedMaxAge = time.Hour
	}
	if r.FailedMaxAge < time.Hour {
		r.FailedMaxAge = time.Hour
	}
	if r.RunLogMaxAge < 24*time.Hour {
		r.RunLogMaxAge = 24 * time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
