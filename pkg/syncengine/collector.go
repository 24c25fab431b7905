package syncengine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"audience-sync/pkg/metrics"
)

// Collector paginates full follower lists per platform. Collection is
// strictly more expensive than metric sync, so it is gated harder: the
// follower interval is longer, and minimal mode skips collection entirely
// unless forced.
type Collector struct {
	mode     Mode
	cfg      ModeConfig
	store    Store
	adapters AdapterRegistry
	limits   *RateLimitTracker

	now func() time.Time
}

// NewCollector wires a follower collector sharing the orchestrator's
// rate-limit tracker.
func NewCollector(mode Mode, store Store, adapters AdapterRegistry, limits *RateLimitTracker) *Collector {
	return &Collector{
		mode:     mode,
		cfg:      mode.Config(),
		store:    store,
		adapters: adapters,
		limits:   limits,
		now:      time.Now,
	}
}

// Collect walks the account's follower list page by page and persists the
// result, returning how many records were collected. Partial walks persist
// and count what they got: partial data beats total loss. Expected
// conditions (skipped by policy, no follower capability, no adapter)
// return 0 without error.
func (c *Collector) Collect(ctx context.Context, account AccountSnapshot, lastCollectedAt *time.Time, force bool) (int, error) {
	if account.Platform == "" {
		return 0, ErrMissingIdentity
	}
	platformID := account.PlatformID
	if platformID == "" {
		platformID = account.Username
	}

	if c.mode == ModeMinimal && !force {
		log.Debug().
			Str("platform", account.Platform).
			Str("platform_id", platformID).
			Msg("follower collection is opt-in under minimal mode, skipping")
		return 0, nil
	}
	if !force && lastCollectedAt != nil && c.now().Sub(*lastCollectedAt) < c.cfg.FollowerSyncInterval {
		log.Debug().
			Str("platform", account.Platform).
			Str("platform_id", platformID).
			Time("last_collected_at", *lastCollectedAt).
			Msg("follower sync interval not elapsed, skipping")
		return 0, nil
	}

	adapter := c.adapters.Lookup(account.Platform)
	if adapter == nil {
		log.Warn().
			Str("platform", account.Platform).
			Msg("no adapter configured for platform, skipping follower collection")
		return 0, nil
	}
	source, ok := adapter.(FollowerSource)
	if !ok {
		// Expected for platforms whose public API exposes only aggregate
		// counts (YouTube), not an error.
		log.Info().
			Str("platform", account.Platform).
			Msg("platform API exposes no follower list, nothing to collect")
		return 0, nil
	}

	collected := c.walk(ctx, source, account.Platform, platformID)
	if len(collected) == 0 {
		return 0, nil
	}

	if err := c.store.SaveFollowers(ctx, account.Platform, platformID, collected); err != nil {
		log.Error().Err(err).
			Str("platform", account.Platform).
			Str("platform_id", platformID).
			Int("count", len(collected)).
			Msg("failed to persist collected followers")
		return 0, nil
	}

	metrics.FollowersCollected.WithLabelValues(account.Platform).Add(float64(len(collected)))
	log.Info().
		Str("platform", account.Platform).
		Str("platform_id", platformID).
		Int("count", len(collected)).
		Msg("follower collection finished")
	return len(collected), nil
}

// walk requests pages strictly in cursor order: each cursor comes from the
// previous response, so pages are never fetched in parallel or reordered.
// A 429 mid-walk sleeps out the provider's window and resumes the same
// cursor; any other failure that survives retries ends the walk with
// whatever was gathered.
func (c *Collector) walk(ctx context.Context, source FollowerSource, platform, platformID string) []FollowerRecord {
	limits := source.PageLimits()
	pacer := rate.NewLimiter(rate.Every(limits.MinInterval), 1)

	var collected []FollowerRecord
	cursor := ""
	pages := 0
	attempt := 0

	for {
		if err := pacer.Wait(ctx); err != nil {
			log.Warn().Err(err).Str("platform", platform).Msg("follower walk cancelled during pacing")
			return collected
		}
		if err := c.limits.Wait(ctx, platform); err != nil {
			log.Warn().Err(err).Str("platform", platform).Msg("follower walk cancelled during rate limit wait")
			return collected
		}

		records, next, err := source.FetchFollowersPage(ctx, platformID, cursor)
		if err != nil {
			var rlErr *RateLimitedError
			if errors.As(err, &rlErr) {
				// Sleep out the provider's window, then resume the same
				// cursor; the walk is not restarted.
				wait := rlErr.RetryAfter
				if wait == 0 {
					wait = c.limits.RetryAfter(platform)
				}
				if wait == 0 {
					wait = defaultRateLimitWindow
				}
				metrics.RateLimitWaits.WithLabelValues(platform).Inc()
				log.Warn().
					Str("platform", platform).
					Dur("wait", wait).
					Int("page", pages).
					Msg("rate limited mid-walk, sleeping before resuming")
				if err := sleepCtx(ctx, wait); err != nil {
					return collected
				}
				continue
			}

			if attempt < maxRetries-1 && ctx.Err() == nil && retryableWalkError(err) {
				delay := backoffDelay(attempt)
				attempt++
				log.Warn().Err(err).
					Str("platform", platform).
					Int("page", pages).
					Dur("retry_delay", delay).
					Msg("follower page fetch failed, retrying")
				if err := sleepCtx(ctx, delay); err != nil {
					return collected
				}
				continue
			}

			log.Error().Err(err).
				Str("platform", platform).
				Str("platform_id", platformID).
				Int("pages", pages).
				Int("collected", len(collected)).
				Msg("follower walk terminated early, keeping partial result")
			return collected
		}
		attempt = 0

		collected = append(collected, records...)
		pages++

		if next == "" {
			return collected
		}
		if limits.MaxPages > 0 && pages >= limits.MaxPages {
			log.Info().
				Str("platform", platform).
				Int("pages", pages).
				Msg("follower walk hit page cap")
			return collected
		}
		if limits.MaxFollowers > 0 && len(collected) >= limits.MaxFollowers {
			log.Info().
				Str("platform", platform).
				Int("collected", len(collected)).
				Msg("follower walk hit follower cap")
			return collected
		}
		cursor = next
	}
}

// retryableWalkError filters out the classes where retrying the same page
// cannot help.
func retryableWalkError(err error) bool {
	var permErr *PermissionError
	var notFoundErr *NotFoundError
	return !errors.As(err, &permErr) && !errors.As(err, &notFoundErr)
}
