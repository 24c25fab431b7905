package syncengine

import (
	"math"
	"time"
)

const (
	maxRetries      = 5
	baseDelayMS     = 500 // base backoff delay in milliseconds
	maxBackoffDelay = 30 * time.Second
)

// backoffDelay returns the exponential backoff delay for a zero-based
// attempt number: baseDelay * 2^attempt, capped at maxBackoffDelay.
func backoffDelay(attempt int) time.Duration {
	delay := time.Duration(baseDelayMS*int64(math.Pow(2, float64(attempt)))) * time.Millisecond
	if delay > maxBackoffDelay {
		return maxBackoffDelay
	}
	return delay
}

// retryDelay picks the wait before the next attempt. A provider-indicated
// retry window takes precedence over the generic schedule when it is known
// and under the cap.
func retryDelay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 && retryAfter <= maxBackoffDelay {
		return retryAfter
	}
	return backoffDelay(attempt)
}
