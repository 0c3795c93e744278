package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeasePolicy(t *testing.T) {
	policy, err := NewLeasePolicy(30 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, policy.Default())

	_, err = NewLeasePolicy(0)
	require.ErrorIs(t, err, ErrInvalidDefaultLease)
}

func TestLeasePolicy_Seconds(t *testing.T) {
	policy, err := NewLeasePolicy(30 * time.Second)
	require.NoError(t, err)

	assert.Equal(t, 45, policy.Seconds(45*time.Second))
	assert.Equal(t, 30, policy.Seconds(0))
	assert.Equal(t, 1, policy.Seconds(500*time.Millisecond))
	assert.Equal(t, 1, policy.Seconds(-5*time.Second))
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{}
	assert.Equal(t, 60*time.Second, p.Delay(0))
	assert.Equal(t, 120*time.Second, p.Delay(1))
	assert.Equal(t, 240*time.Second, p.Delay(2))
	assert.Equal(t, 60*time.Second, p.Delay(-1))

	short := RetryPolicy{Base: time.Second}
	assert.Equal(t, 4*time.Second, short.Delay(2))
	assert.Equal(t, time.Second<<16, short.Delay(100))
}

func TestCanRetry(t *testing.T) {
	assert.True(t, CanRetry(0, 3))
	assert.True(t, CanRetry(2, 3))
	assert.False(t, CanRetry(3, 3))
	assert.False(t, CanRetry(0, 0))
}
