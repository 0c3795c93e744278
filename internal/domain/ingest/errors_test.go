package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/target/harvester/internal/errors"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"configuration", &ConfigurationError{Source: "s", Missing: []string{"url"}}, false},
		{"wrapped configuration", fmt.Errorf("run: %w", &ConfigurationError{Source: "s"}), false},
		{"fetch", &FetchError{Source: "s", Op: "get", Err: errors.New("reset")}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"not found", apperrors.NotFound("source not found"), false},
		{"conflict", apperrors.Conflict("dup"), false},
		{"db unavailable", apperrors.Wrap(errors.New("conn"), apperrors.ErrCodeUnavailable, "db"), true},
		{"plain", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestConfigurationError_Message(t *testing.T) {
	err := &ConfigurationError{Source: "board", Missing: []string{"url", "title_selector"}}
	assert.Equal(t, `source "board": missing required configuration: url, title_selector`, err.Error())

	err = &ConfigurationError{Source: "board", Reason: "bad list_key"}
	assert.Contains(t, err.Error(), "bad list_key")
}
