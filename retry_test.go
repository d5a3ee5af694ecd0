package jobq_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/taskforge/jobq"
)

func TestCalculateBackoff_FirstAttemptBounds(t *testing.T) {
	require := require.New(t)

	base := 100 * time.Millisecond
	maxDelay := 10 * time.Second
	for i := 0; i < 100; i++ {
		delay := jobq.CalculateBackoff(0, base, maxDelay)
		require.GreaterOrEqual(delay, 100*time.Millisecond)
		require.Less(delay, 110*time.Millisecond)
	}
}

func TestCalculateBackoff_Growth(t *testing.T) {
	require := require.New(t)

	base := 100 * time.Millisecond
	maxDelay := time.Hour
	// With at most 10% jitter, attempt n+1 always exceeds attempt n:
	// 2^(n+1) > 2^n * 1.1.
	prev := jobq.CalculateBackoff(0, base, maxDelay)
	for attempt := int32(1); attempt < 8; attempt++ {
		delay := jobq.CalculateBackoff(attempt, base, maxDelay)
		require.Greater(delay, prev)
		prev = delay
	}
}

func TestCalculateBackoff_Cap(t *testing.T) {
	require := require.New(t)

	delay := jobq.CalculateBackoff(10, 100*time.Millisecond, 10*time.Second)
	require.Equal(10*time.Second, delay)
}

func TestShouldRetry(t *testing.T) {
	require := require.New(t)
	policy := jobq.DefaultRetryPolicy()

	require.True(jobq.ShouldRetry(1, 3, "timeout", policy))
	require.False(jobq.ShouldRetry(3, 3, "timeout", policy))
	require.False(jobq.ShouldRetry(4, 3, "timeout", policy))

	require.False(jobq.ShouldRetry(1, 3, "invalid-recipient", policy))
	require.False(jobq.ShouldRetry(1, 3, "template-not-found", policy))
	require.False(jobq.ShouldRetry(1, 3, "validation-error", policy))
}

func TestRetryExhausted(t *testing.T) {
	require := require.New(t)

	require.False(jobq.RetryExhausted(0, 1))
	require.True(jobq.RetryExhausted(1, 1))
	require.True(jobq.RetryExhausted(2, 1))
}

func TestRetryState(t *testing.T) {
	require := require.New(t)

	policy := jobq.RetryPolicy{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
	}
	now := time.Now().UTC()

	state := jobq.RetryState{}
	state = jobq.UpdateRetryState(state, errors.New("boom"), policy, now)
	require.EqualValues(1, state.Attempts)
	require.Equal("boom", state.LastError)
	require.True(state.NextRetryAt.After(now))

	require.False(jobq.ReadyForRetry(state, now))
	require.True(jobq.ReadyForRetry(state, state.NextRetryAt))
	require.True(jobq.ReadyForRetry(state, now.Add(time.Second)))

	state = jobq.UpdateRetryState(state, errors.New("boom again"), policy, now)
	require.EqualValues(2, state.Attempts)
	require.Equal("boom again", state.LastError)
}
