package jobq

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls backoff timing and which error types are not
// worth retrying.
type RetryPolicy struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	NonRetryable []string
}

// DefaultRetryPolicy returns the policy used by workers unless overridden.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  10 * time.Second,
		NonRetryable: []string{
			"invalid-recipient",
			"template-not-found",
			"validation-error",
		},
	}
}

func (p RetryPolicy) nonRetryable(errType string) bool {
	for _, t := range p.NonRetryable {
		if t == errType {
			return true
		}
	}
	return false
}

// CalculateBackoff returns min(base * 2^attempt * (1 + jitter), max),
// where jitter is uniform in [0, 0.1). Attempt 0 is the first retry.
func CalculateBackoff(attempt int32, baseDelay, maxDelay time.Duration) time.Duration {
	delay := float64(baseDelay) * math.Pow(2, float64(attempt))
	delay *= 1 + rand.Float64()*0.1
	if delay > float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether another attempt may be made: the attempt
// budget is not exhausted and the error type is retryable under the policy.
func ShouldRetry(attempts, maxAttempts int32, errType string, policy RetryPolicy) bool {
	if RetryExhausted(attempts, maxAttempts) {
		return false
	}
	return !policy.nonRetryable(errType)
}

// RetryExhausted reports whether the attempt budget is used up.
func RetryExhausted(attempts, maxAttempts int32) bool {
	return attempts >= maxAttempts
}

// RetryState tracks retry progress for callers that manage their own
// work items outside a job store.
type RetryState struct {
	Attempts    int32
	LastError   string
	NextRetryAt time.Time
}

// UpdateRetryState records one failed attempt and computes when the next
// attempt becomes due.
func UpdateRetryState(state RetryState, err error, policy RetryPolicy, now time.Time) RetryState {
	delay := CalculateBackoff(state.Attempts, policy.BaseDelay, policy.MaxDelay)
	state.Attempts++
	if err != nil {
		state.LastError = err.Error()
	}
	state.NextRetryAt = now.Add(delay)
	return state
}

// ReadyForRetry reports whether the next attempt is due.
func ReadyForRetry(state RetryState, now time.Time) bool {
	return !now.Before(state.NextRetryAt)
}
