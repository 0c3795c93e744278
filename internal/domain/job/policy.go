// Package job holds queue policy shared by the job repository and the job runner.
package job

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidDefaultLease indicates the configured default lease duration is not positive.
var ErrInvalidDefaultLease = errors.New("default lease must be positive")

// LeasePolicy normalises lease durations for job reservations and heartbeats.
type LeasePolicy struct {
	defaultLease time.Duration
}

// NewLeasePolicy constructs a LeasePolicy with the provided default lease duration.
func NewLeasePolicy(defaultLease time.Duration) (*LeasePolicy, error) {
	if defaultLease <= 0 {
		return nil, ErrInvalidDefaultLease
	}
	return &LeasePolicy{defaultLease: defaultLease}, nil
}

// Default returns the configured default lease duration.
func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultLease
}

// Seconds converts a requested lease to whole seconds. Zero selects the default;
// anything below one second is raised to one.
func (p *LeasePolicy) Seconds(request time.Duration) int {
	if request == 0 && p != nil {
		request = p.defaultLease
	}
	secs := int64(request / time.Second)
	if secs < 1 {
		return 1
	}
	if secs > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(secs)
}

// DefaultRetryBase is the delay before the first retry of a failed run.
const DefaultRetryBase = 60 * time.Second

// maxBackoffShift caps the exponent so the delay never overflows time.Duration.
const maxBackoffShift = 16

// RetryPolicy computes exponential backoff for failed jobs: base * 2^retryCount.
type RetryPolicy struct {
	Base time.Duration
}

// Delay returns the wait before the next attempt given the number of retries already consumed.
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = DefaultRetryBase
	}
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > maxBackoffShift {
		retryCount = maxBackoffShift
	}
	return base * time.Duration(1<<uint(retryCount))
}

// CanRetry reports whether another attempt is allowed.
func CanRetry(retryCount, maxRetries int) bool {
	return retryCount < maxRetries
}
