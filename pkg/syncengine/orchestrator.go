package syncengine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"audience-sync/pkg/metrics"
)

// Orchestrator is the sync decision engine: given a target account it
// decides skip-vs-call from the mode policy, cache state, and rate-limit
// state, executes warranted calls with retry and backoff, and reconciles
// results against the cache.
//
// Transport failures never surface to the caller: they degrade to the last
// cached snapshot, or the zero-valued default, with a logged warning. The
// only raised error is ErrMissingIdentity.
type Orchestrator struct {
	cfg      ModeConfig
	store    Store
	adapters AdapterRegistry
	limits   *RateLimitTracker

	now func() time.Time
}

// NewOrchestrator wires the decision engine. The rate-limit tracker is
// shared with every other component calling the same platforms.
func NewOrchestrator(cfg ModeConfig, store Store, adapters AdapterRegistry, limits *RateLimitTracker) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		adapters: adapters,
		limits:   limits,
		now:      time.Now,
	}
}

// SyncAccount synchronizes one account, calling the platform API only when
// the mode policy and cache state justify it.
func (o *Orchestrator) SyncAccount(ctx context.Context, target SyncTarget) (AccountSnapshot, error) {
	if target.Platform == "" || target.Username == "" {
		return AccountSnapshot{}, ErrMissingIdentity
	}
	platformID := target.PlatformID
	if platformID == "" {
		platformID = target.Username
	}

	now := o.now()
	cached := o.loadCached(ctx, target.Platform, platformID)
	cacheValid := o.cfg.UseCache && cached != nil && now.Sub(cached.ObservedAt) <= o.cfg.CacheExpiry

	// A still-valid cache satisfies modes that accept every sync: there is
	// nothing a fresh call could tell us that we'd reject.
	if cacheValid && !o.cfg.RequireChangeForSync {
		log.Debug().
			Str("platform", target.Platform).
			Str("platform_id", platformID).
			Msg("cache valid, skipping platform call")
		metrics.SyncCalls.WithLabelValues(target.Platform, "cache_hit").Inc()
		return *cached, nil
	}

	// Too soon since the last sync: short-circuit without a call. This
	// returns the zero-valued default, not the cached snapshot; callers
	// polling faster than the interval see zeroed metrics.
	if target.LastSyncedAt != nil && now.Sub(*target.LastSyncedAt) < o.cfg.AccountSyncInterval {
		log.Debug().
			Str("platform", target.Platform).
			Str("username", target.Username).
			Time("last_synced_at", *target.LastSyncedAt).
			Msg("sync interval not elapsed, skipping")
		metrics.SyncCalls.WithLabelValues(target.Platform, "too_soon").Inc()
		return DefaultSnapshot(target.Platform, platformID, target.Username), nil
	}

	return o.fetchAndReconcile(ctx, target.Platform, platformID, target.Username, cached)
}

// ForceSync bypasses the cache and elapsed-time gates entirely but still
// honors rate limits and the bounded retry discipline. Used for explicit
// user-triggered refreshes.
func (o *Orchestrator) ForceSync(ctx context.Context, target SyncTarget) (AccountSnapshot, error) {
	if target.Platform == "" || target.Username == "" {
		return AccountSnapshot{}, ErrMissingIdentity
	}
	platformID := target.PlatformID
	if platformID == "" {
		platformID = target.Username
	}

	cached := o.loadCached(ctx, target.Platform, platformID)
	fresh, ok := o.fetchWithRetry(ctx, target.Platform, platformID)
	if !ok {
		return o.degrade(target.Platform, platformID, target.Username, cached), nil
	}

	fresh.Username = orDefault(fresh.Username, target.Username)
	if err := o.store.SaveSnapshot(ctx, fresh); err != nil {
		log.Warn().Err(err).Str("platform", target.Platform).Msg("failed to cache forced snapshot")
	}
	metrics.SyncCalls.WithLabelValues(target.Platform, "success").Inc()
	return fresh, nil
}

// fetchAndReconcile executes the platform call and decides, via change
// detection, whether the fresh snapshot supersedes the cached one.
func (o *Orchestrator) fetchAndReconcile(ctx context.Context, platform, platformID, username string, cached *AccountSnapshot) (AccountSnapshot, error) {
	start := o.now()
	fresh, ok := o.fetchWithRetry(ctx, platform, platformID)
	metrics.SyncDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())

	if !ok {
		return o.degrade(platform, platformID, username, cached), nil
	}
	fresh.Username = orDefault(fresh.Username, username)

	if !IsSignificant(o.cfg, cached, fresh) {
		// The delta is noise at this mode's threshold. Keep the cached
		// values with a refreshed timestamp so downstream consumers don't
		// rewrite rows for nothing.
		log.Debug().
			Str("platform", platform).
			Str("platform_id", platformID).
			Float64("threshold", o.cfg.ChangeThreshold).
			Msg("change below threshold, keeping cached values")
		metrics.SyncCalls.WithLabelValues(platform, "unchanged").Inc()
		kept := *cached
		kept.ObservedAt = o.now()
		return kept, nil
	}

	if err := o.store.SaveSnapshot(ctx, fresh); err != nil {
		log.Warn().Err(err).Str("platform", platform).Msg("failed to cache snapshot")
	}
	metrics.SyncCalls.WithLabelValues(platform, "success").Inc()
	return fresh, nil
}

// fetchWithRetry runs one platform call inside the bounded retry loop,
// routed through the rate-limit tracker before and after. The bool reports
// whether a snapshot was obtained; all failures are absorbed.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, platform, platformID string) (AccountSnapshot, bool) {
	adapter := o.adapters.Lookup(platform)
	if adapter == nil {
		log.Warn().
			Str("platform", platform).
			Msg("no adapter configured for platform, returning default snapshot")
		metrics.SyncCalls.WithLabelValues(platform, "unsupported").Inc()
		return AccountSnapshot{}, false
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := o.limits.Wait(ctx, platform); err != nil {
			log.Warn().Err(err).Str("platform", platform).Msg("cancelled while waiting for rate limit window")
			return AccountSnapshot{}, false
		}

		snap, err := adapter.FetchAccount(ctx, platformID)
		if err == nil {
			return snap, true
		}
		lastErr = err

		var permErr *PermissionError
		var notFoundErr *NotFoundError
		switch {
		case errors.As(err, &permErr):
			// A 403 means the API tier doesn't allow this call; retrying
			// cannot change that.
			log.Warn().
				Str("platform", platform).
				Str("platform_id", platformID).
				Msg("insufficient API permissions, not retrying")
			metrics.SyncCalls.WithLabelValues(platform, "forbidden").Inc()
			return AccountSnapshot{}, false
		case errors.As(err, &notFoundErr):
			log.Warn().
				Str("platform", platform).
				Str("platform_id", platformID).
				Msg("account not found on platform, not retrying")
			metrics.SyncCalls.WithLabelValues(platform, "not_found").Inc()
			return AccountSnapshot{}, false
		case ctx.Err() != nil:
			return AccountSnapshot{}, false
		}

		if attempt == maxRetries-1 {
			break
		}

		var rlErr *RateLimitedError
		var retryAfter time.Duration
		if errors.As(err, &rlErr) {
			retryAfter = rlErr.RetryAfter
			if retryAfter == 0 {
				retryAfter = o.limits.RetryAfter(platform)
			}
			metrics.RateLimitWaits.WithLabelValues(platform).Inc()
		}
		delay := retryDelay(attempt, retryAfter)

		log.Warn().
			Err(err).
			Str("platform", platform).
			Int("attempt", attempt+1).
			Dur("retry_delay", delay).
			Msg("platform call failed, retrying")

		if err := sleepCtx(ctx, delay); err != nil {
			return AccountSnapshot{}, false
		}
	}

	log.Error().
		Err(lastErr).
		Str("platform", platform).
		Str("platform_id", platformID).
		Int("attempts", maxRetries).
		Msg("platform call failed after all retries")
	metrics.SyncCalls.WithLabelValues(platform, "failed").Inc()
	return AccountSnapshot{}, false
}

// degrade picks the fallback result for an unobtainable snapshot: stale
// cached data when we have it, the zero default when we don't.
func (o *Orchestrator) degrade(platform, platformID, username string, cached *AccountSnapshot) AccountSnapshot {
	if cached != nil {
		log.Warn().
			Str("platform", platform).
			Str("platform_id", platformID).
			Time("observed_at", cached.ObservedAt).
			Msg("sync failed, falling back to cached snapshot")
		return *cached
	}
	log.Warn().
		Str("platform", platform).
		Str("platform_id", platformID).
		Msg("sync failed with no cached snapshot, returning default")
	return DefaultSnapshot(platform, platformID, username)
}

func (o *Orchestrator) loadCached(ctx context.Context, platform, platformID string) *AccountSnapshot {
	cached, err := o.store.LoadCachedSnapshot(ctx, platform, platformID)
	if err != nil {
		log.Warn().Err(err).
			Str("platform", platform).
			Str("platform_id", platformID).
			Msg("failed to load cached snapshot")
		return nil
	}
	return cached
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
