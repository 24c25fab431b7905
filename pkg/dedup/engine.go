// Package dedup computes a "true unique audience" count across the
// follower lists collected from multiple platforms.
package dedup

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"audience-sync/pkg/metrics"
	"audience-sync/pkg/syncengine"
)

// PlatformFollowers pairs one platform's reported follower count with
// whatever portion of its follower list has actually been collected.
type PlatformFollowers struct {
	Platform      string
	ReportedCount int64
	Followers     []syncengine.FollowerRecord
}

// TrueFollowerCount computes the unique audience size across platforms
// using set-based username and email matching. This is the authoritative
// algorithm; FuzzyClusterCount is an optional refinement over the same
// inputs.
//
// The result never exceeds the sum of reported counts and never drops
// below the single largest platform's raw count.
func TrueFollowerCount(accounts []PlatformFollowers) int64 {
	start := time.Now()
	defer func() {
		metrics.DedupDuration.Observe(time.Since(start).Seconds())
	}()

	switch len(accounts) {
	case 0:
		return 0
	case 1:
		// One platform cannot have cross-platform duplicates; the reported
		// count is already the answer, lists or no lists.
		return accounts[0].ReportedCount
	}

	var totalReported, maxReported int64
	collectedAny := false
	for _, a := range accounts {
		totalReported += a.ReportedCount
		if a.ReportedCount > maxReported {
			maxReported = a.ReportedCount
		}
		if len(a.Followers) > 0 {
			collectedAny = true
		}
	}

	// No lists collected yet anywhere: degrade to the reported sum rather
	// than guessing at overlap.
	if !collectedAny {
		log.Debug().Int("platforms", len(accounts)).Msg("no follower lists collected, using reported sum")
		return totalReported
	}

	usernameDups, matchedUsernames := usernameDuplicates(accounts)
	emailDups := emailDuplicates(accounts, matchedUsernames)

	unique := totalReported - usernameDups - emailDups

	// Floor at the identities username matching already established, and at
	// the largest single platform: cross-platform overlap can never shrink
	// the audience below either.
	distinct := distinctNormalizedUsernames(accounts)
	if unique < distinct {
		unique = distinct
	}
	if unique < maxReported {
		unique = maxReported
	}

	log.Debug().
		Int("platforms", len(accounts)).
		Int64("total_reported", totalReported).
		Int64("username_duplicates", usernameDups).
		Int64("email_duplicates", emailDups).
		Int64("unique", unique).
		Msg("computed true follower count")
	return unique
}

// usernameDuplicates counts cross-platform identities by normalized
// username: a username seen on k>1 distinct platforms contributes k-1
// duplicates. Returns the duplicate count and the set of normalized
// usernames that matched across platforms.
func usernameDuplicates(accounts []PlatformFollowers) (int64, map[string]bool) {
	platformsByUsername := make(map[string]map[string]bool)
	for _, a := range accounts {
		for _, f := range a.Followers {
			u := NormalizeUsername(f.Username)
			if u == "" {
				continue
			}
			if platformsByUsername[u] == nil {
				platformsByUsername[u] = make(map[string]bool)
			}
			platformsByUsername[u][a.Platform] = true
		}
	}

	var dups int64
	matched := make(map[string]bool)
	for u, platforms := range platformsByUsername {
		if len(platforms) > 1 {
			dups += int64(len(platforms) - 1)
			matched[u] = true
		}
	}
	return dups, matched
}

// emailDuplicates counts additional cross-platform duplicates among
// followers that username matching did not already consume, grouped by
// case-insensitive email.
func emailDuplicates(accounts []PlatformFollowers, matchedUsernames map[string]bool) int64 {
	platformsByEmail := make(map[string]map[string]bool)
	for _, a := range accounts {
		for _, f := range a.Followers {
			if f.Email == "" {
				continue
			}
			if matchedUsernames[NormalizeUsername(f.Username)] {
				continue
			}
			e := strings.ToLower(strings.TrimSpace(f.Email))
			if platformsByEmail[e] == nil {
				platformsByEmail[e] = make(map[string]bool)
			}
			platformsByEmail[e][a.Platform] = true
		}
	}

	var dups int64
	for _, platforms := range platformsByEmail {
		if len(platforms) > 1 {
			dups += int64(len(platforms) - 1)
		}
	}
	return dups
}

func distinctNormalizedUsernames(accounts []PlatformFollowers) int64 {
	seen := make(map[string]bool)
	for _, a := range accounts {
		for _, f := range a.Followers {
			if u := NormalizeUsername(f.Username); u != "" {
				seen[u] = true
			}
		}
	}
	return int64(len(seen))
}

// NormalizeUsername lowercases and strips the separator characters
// platforms allow users to vary freely: "Sam.Jones" and "sam_jones" are
// the same handle for matching purposes.
func NormalizeUsername(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '_', '-':
			return -1
		}
		return r
	}, s)
}
