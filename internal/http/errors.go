package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/target/harvester/internal/domain/ingest"
	apperrors "github.com/target/harvester/internal/errors"
)

// classify maps an error onto an HTTP status and a stable error code.
func classify(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
	}

	switch code := apperrors.GetCode(err); code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, string(code)
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, string(code)
	case apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey:
		return http.StatusConflict, string(code)
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, string(code)
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable, string(code)
	case apperrors.ErrCodeCanceled:
		return statusClientClosedRequest, string(code)
	case apperrors.ErrCodeInternal:
		return http.StatusInternalServerError, string(code)
	}

	var fetchErr *ingest.FetchError
	var cfgErr *ingest.ConfigurationError
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "fetch_failed"
	case errors.As(err, &cfgErr):
		return http.StatusUnprocessableEntity, "invalid_config"
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
		return http.StatusConflict, string(apperrors.ErrCodeForeignKey)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, string(apperrors.ErrCodeTimeout)
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, string(apperrors.ErrCodeCanceled)
	}
	return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
}

// statusClientClosedRequest is the nginx convention for a caller that hung up.
const statusClientClosedRequest = 499
