package syncengine

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// Values at or above 13 digits are millisecond timestamps; Unix seconds
	// won't reach 13 digits for centuries. Providers are inconsistent about
	// which they send in the reset header.
	msTimestampThreshold = 1_000_000_000_000

	defaultRateLimitWindow = 60 * time.Second
	resetSafetyMargin      = 2 * time.Second
)

// RateLimitState is the tracked call budget for one platform. remaining is
// non-increasing within a window and resets only once resetAt has passed.
type RateLimitState struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RateLimitTracker owns the per-platform rate-limit map. State is learned
// from response headers at runtime and not persisted: after a restart the
// process re-learns limits from the first responses it sees.
type RateLimitTracker struct {
	mu     sync.Mutex
	states map[string]RateLimitState

	margin time.Duration
	now    func() time.Time
}

// NewRateLimitTracker creates an empty tracker.
func NewRateLimitTracker() *RateLimitTracker {
	return &RateLimitTracker{
		states: make(map[string]RateLimitState),
		margin: resetSafetyMargin,
		now:    time.Now,
	}
}

// Wait blocks until the platform's budget allows a call: if the tracked
// state shows the window exhausted, it sleeps until resetAt plus a safety
// margin. Platforms the tracker has never seen pass through immediately.
func (t *RateLimitTracker) Wait(ctx context.Context, platform string) error {
	t.mu.Lock()
	state, ok := t.states[platform]
	now := t.now()
	if ok && state.Remaining <= 0 && now.Before(state.ResetAt) {
		wait := state.ResetAt.Sub(now) + t.margin
		t.mu.Unlock()

		log.Warn().
			Str("platform", platform).
			Dur("wait", wait).
			Time("reset_at", state.ResetAt).
			Msg("rate limit budget exhausted, waiting for window reset")

		return sleepCtx(ctx, wait)
	}
	t.mu.Unlock()
	return nil
}

// UpdateFromResponse records the budget a successful response reported.
func (t *RateLimitTracker) UpdateFromResponse(platform string, h http.Header) {
	remaining, okRemaining := headerInt(h, "X-RateLimit-Remaining")
	limit, okLimit := headerInt(h, "X-RateLimit-Limit")
	reset, okReset := headerInt(h, "X-RateLimit-Reset")
	if !okRemaining && !okLimit && !okReset {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.states[platform]
	if okRemaining {
		state.Remaining = int(remaining)
	}
	if okLimit {
		state.Limit = int(limit)
	}
	if okReset {
		state.ResetAt = parseResetTimestamp(reset)
	}
	t.states[platform] = state

	log.Debug().
		Str("platform", platform).
		Int("remaining", state.Remaining).
		Int("limit", state.Limit).
		Time("reset_at", state.ResetAt).
		Msg("rate limit state updated")
}

// RecordRateLimited handles an explicit 429: the budget is zero regardless
// of what earlier headers said. The reset time comes from Retry-After when
// the provider sends one, else the tracked reset, else a default window.
func (t *RateLimitTracker) RecordRateLimited(platform string, h http.Header) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.states[platform]
	state.Remaining = 0

	now := t.now()
	if secs, ok := headerInt(h, "Retry-After"); ok && secs > 0 {
		state.ResetAt = now.Add(time.Duration(secs) * time.Second)
	} else if state.ResetAt.Before(now) {
		state.ResetAt = now.Add(defaultRateLimitWindow)
	}
	t.states[platform] = state

	log.Warn().
		Str("platform", platform).
		Time("reset_at", state.ResetAt).
		Msg("provider returned 429, budget zeroed")
}

// RetryAfter reports how long a caller hitting this platform right now
// would have to wait, zero when the budget is open.
func (t *RateLimitTracker) RetryAfter(platform string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[platform]
	now := t.now()
	if !ok || state.Remaining > 0 || !now.Before(state.ResetAt) {
		return 0
	}
	return state.ResetAt.Sub(now) + t.margin
}

// State returns a copy of the tracked state for a platform.
func (t *RateLimitTracker) State(platform string) (RateLimitState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[platform]
	return state, ok
}

// parseResetTimestamp disambiguates the reset header: providers send either
// Unix seconds or Unix milliseconds, distinguished by magnitude.
func parseResetTimestamp(v int64) time.Time {
	if v >= msTimestampThreshold {
		return time.UnixMilli(v)
	}
	return time.Unix(v, 0)
}

func headerInt(h http.Header, key string) (int64, bool) {
	raw := h.Get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
