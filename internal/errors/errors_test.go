package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_WrapAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "load source")

	assert.Equal(t, "load source: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeInternal, GetCode(fmt.Errorf("outer: %w", err)))
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "noop"))
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("source %s not found", "abc")))
	assert.True(t, IsConflict(Conflict("dup")))
	assert.True(t, IsValidation(ValidationField("name", "required")))
	assert.Equal(t, "name", GetField(ValidationField("name", "required")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Empty(t, GetCode(errors.New("plain")))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "not found", err: NotFound("x"), want: false},
		{name: "validation", err: Validation("x"), want: false},
		{name: "conflict", err: Conflict("x"), want: false},
		{name: "unavailable", err: Wrap(errors.New("conn reset"), ErrCodeUnavailable, "db"), want: true},
		{name: "timeout", err: Wrap(errors.New("slow"), ErrCodeTimeout, "db"), want: true},
		{name: "plain error", err: errors.New("network"), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
