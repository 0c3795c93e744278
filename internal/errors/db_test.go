package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Passthrough(t *testing.T) {
	assert.NoError(t, MapDBError(nil))

	plain := errors.New("something else")
	assert.Equal(t, plain, MapDBError(plain))
}

func TestMapDBError_ContextAndNoRows(t *testing.T) {
	assert.True(t, IsTimeout(MapDBError(context.DeadlineExceeded)))
	assert.True(t, IsCanceled(MapDBError(context.Canceled)))
	assert.True(t, IsNotFound(MapDBError(pgx.ErrNoRows)))
}

func TestMapDBError_PgErrors(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantCode  ErrorCode
		wantField string
	}{
		{
			name: "unique from detail",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: "Key (url)=(https://example.com/1) already exists.",
			},
			wantCode:  ErrCodeConflict,
			wantField: "url",
		},
		{
			name: "unique from constraint",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "sources_name_key",
			},
			wantCode:  ErrCodeConflict,
			wantField: "name",
		},
		{
			name: "foreign key",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (source_id)=(x) is not present in table "sources".`,
			},
			wantCode: ErrCodeForeignKey,
		},
		{
			name:      "not null",
			pgErr:     &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "title"},
			wantCode:  ErrCodeValidation,
			wantField: "title",
		},
		{
			name:     "serialization failure",
			pgErr:    &pgconn.PgError{Code: pgerrcode.SerializationFailure},
			wantCode: ErrCodeUnavailable,
		},
		{
			name:     "other",
			pgErr:    &pgconn.PgError{Code: pgerrcode.SyntaxError},
			wantCode: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetCode(err))
			assert.Equal(t, tt.wantField, GetField(err))
			assert.ErrorIs(t, err, tt.pgErr)
		})
	}
}

func TestMapForeignKeyViolation_Message(t *testing.T) {
	err := MapDBError(&pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (source_id)=(x) is not present in table "sources".`,
	})
	assert.Contains(t, err.Error(), "referenced source does not exist")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.CheckViolation}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}

func TestInferFieldFromConstraint(t *testing.T) {
	assert.Equal(t, "name", inferFieldFromConstraint("sources_name_key"))
	assert.Equal(t, "identity_hash", inferFieldFromConstraint("postings_identity_hash_key"))
	assert.Equal(t, "", inferFieldFromConstraint("weird"))
	assert.Equal(t, "", inferFieldFromConstraint(""))
}
