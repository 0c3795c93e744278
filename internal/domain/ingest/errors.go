package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/target/harvester/internal/errors"
)

// ErrMalformedPosting marks a raw record that cannot be normalized. It never aborts a run.
var ErrMalformedPosting = errors.New("malformed posting")

// ConfigurationError reports a source whose configuration lacks what its strategy requires.
// Runs for such a source are never retried.
type ConfigurationError struct {
	Source  string
	Missing []string
	// Reason describes a present but unusable value.
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("source %q: missing required configuration: %s", e.Source, strings.Join(e.Missing, ", "))
	case e.Reason != "":
		return fmt.Sprintf("source %q: invalid configuration: %s", e.Source, e.Reason)
	default:
		return fmt.Sprintf("source %q: invalid configuration", e.Source)
	}
}

// FetchError wraps a network, parse or render failure while retrieving raw postings.
type FetchError struct {
	Source string
	Op     string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsFetchError reports whether err is or wraps a *FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// IsRetryable classifies a run failure for the dispatcher. Configuration, not-found and
// constraint errors are permanent; fetch failures, timeouts and database outages are not.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case IsConfigurationError(err):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case IsFetchError(err), errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return apperrors.IsTransient(err)
	}
}
