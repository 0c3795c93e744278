package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/target/harvester/internal/domain/ingest"
	apperrors "github.com/target/harvester/internal/errors"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), ClassTimeout},
		{"fetch timeout", &ingest.FetchError{Source: "s", Op: "get", Err: context.DeadlineExceeded}, ClassTimeout},
		{"canceled", context.Canceled, ClassCanceled},
		{"config", fmt.Errorf("x: %w", &ingest.ConfigurationError{Source: "s", Missing: []string{"url"}}), ClassConfig},
		{"fetch", &ingest.FetchError{Source: "s", Op: "decode", Err: errors.New("bad json")}, ClassFetch},
		{"not found", apperrors.NotFound("source not found"), ClassNotFound},
		{"validation", apperrors.Validation("bad"), ClassValidation},
		{"pg", &pgconn.PgError{Code: "23505"}, ClassDB},
		{"unavailable", apperrors.Wrap(errors.New("conn reset"), apperrors.ErrCodeUnavailable, "db down"), ClassDB},
		{"plain", errors.New("boom"), ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
