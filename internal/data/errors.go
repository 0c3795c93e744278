package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrSourceNotFound  = errors.New("source not found")
	ErrPostingNotFound = errors.New("posting not found")
	ErrRunLogNotFound  = errors.New("run log not found")

	ErrSourceIDRequired = errors.New("source_id is required")
)
