package syncengine

// IsSignificant decides whether a freshly fetched snapshot differs enough
// from the cached one to be worth accepting. Pure function; it never
// touches the cache.
//
// No cached value means the fresh snapshot is always accepted, and a mode
// that doesn't require change accepts unconditionally. Otherwise the
// largest percent delta across follower/following/post counts is compared
// against the mode threshold. The boundary is inclusive: a delta exactly
// at the threshold counts as significant.
func IsSignificant(cfg ModeConfig, cached *AccountSnapshot, fresh AccountSnapshot) bool {
	if cached == nil {
		return true
	}
	if !cfg.RequireChangeForSync {
		return true
	}

	maxDelta := percentChange(cached.FollowerCount, fresh.FollowerCount)
	if d := percentChange(cached.FollowingCount, fresh.FollowingCount); d > maxDelta {
		maxDelta = d
	}
	if d := percentChange(cached.PostCount, fresh.PostCount); d > maxDelta {
		maxDelta = d
	}

	return maxDelta >= cfg.ChangeThreshold
}

// percentChange returns abs(new-old)/old as a percentage. Growing from
// zero is treated as a 100% change, staying at zero as 0%.
func percentChange(old, new int64) float64 {
	if old == 0 {
		if new == 0 {
			return 0
		}
		return 100
	}
	delta := new - old
	if delta < 0 {
		delta = -delta
	}
	return float64(delta) / float64(old) * 100
}
