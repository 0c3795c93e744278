package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/domain/ingest"
	apperrors "github.com/target/harvester/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.NotFound("x"), http.StatusNotFound, "not_found"},
		{"wrapped validation", fmt.Errorf("upsert: %w", apperrors.Validation("bad")), http.StatusBadRequest, "validation"},
		{"conflict", apperrors.Conflict("dup"), http.StatusConflict, "conflict"},
		{"unavailable", apperrors.Wrap(errors.New("conn reset"), apperrors.ErrCodeUnavailable, "db"), http.StatusServiceUnavailable, "unavailable"},
		{"fetch", &ingest.FetchError{Source: "s", Op: "http", Err: errors.New("502")}, http.StatusBadGateway, "fetch_failed"},
		{"config", &ingest.ConfigurationError{Source: "s", Missing: []string{"api_url"}}, http.StatusUnprocessableEntity, "invalid_config"},
		{"raw fk", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, http.StatusConflict, "foreign_key"},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"canceled", context.Canceled, statusClientClosedRequest, "canceled"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, errors.New("pq: password authentication failed for user harvester"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body.Error)
	assert.Equal(t, "internal", body.Code)
}

func TestWriteError_ValidationField(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, apperrors.ValidationField("since", "since must be before until"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"since must be before until","code":"validation","field":"since"}`, rec.Body.String())
}
