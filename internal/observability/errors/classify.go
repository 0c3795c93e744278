// Package errors maps failures onto a small set of metric tag values.
package errors

import (
	"context"
	goerrors "errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/target/harvester/internal/domain/ingest"
	apperrors "github.com/target/harvester/internal/errors"
)

// Error classes used as the error_class tag.
const (
	ClassTimeout    = "timeout"
	ClassCanceled   = "canceled"
	ClassConfig     = "config"
	ClassFetch      = "fetch"
	ClassNotFound   = "not_found"
	ClassValidation = "validation"
	ClassDB         = "db"
	ClassNetwork    = "network"
	ClassUnknown    = "unknown"
)

// Classify returns the error class for err, or "" when err is nil.
// Timeouts and cancellations win over the error's own category.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case goerrors.Is(err, context.DeadlineExceeded) || apperrors.IsTimeout(err):
		return ClassTimeout
	case goerrors.Is(err, context.Canceled) || apperrors.IsCanceled(err):
		return ClassCanceled
	case ingest.IsConfigurationError(err):
		return ClassConfig
	case ingest.IsFetchError(err):
		return ClassFetch
	case apperrors.IsNotFound(err):
		return ClassNotFound
	case apperrors.IsValidation(err):
		return ClassValidation
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) || apperrors.GetCode(err) != "" {
		return ClassDB
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		return ClassNetwork
	}
	return ClassUnknown
}
