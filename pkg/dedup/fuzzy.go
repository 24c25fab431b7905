package dedup

import (
	"github.com/rs/zerolog/log"

	"audience-sync/pkg/syncengine"
)

// Similarity thresholds for pairwise identity matching. Bio matching only
// applies when both bios carry enough text to be distinctive.
const (
	usernameSimilarityThreshold    = 0.85
	displayNameSimilarityThreshold = 0.90
	bioSimilarityThreshold         = 0.80
	minBioLength                   = 20
)

// FuzzyClusterCount groups followers across platforms into identity
// clusters by multi-signal pairwise matching and returns the cluster
// count, i.e. one representative per matched identity.
//
// This is the expensive secondary strategy: it catches identities that
// share no exact username or email, but it is quadratic in list size and
// can disagree with TrueFollowerCount. TrueFollowerCount stays
// authoritative; this exists for on-demand, smaller-scale analysis.
func FuzzyClusterCount(accounts []PlatformFollowers) int {
	var all []syncengine.FollowerRecord
	for _, a := range accounts {
		all = append(all, a.Followers...)
	}
	if len(all) == 0 {
		return 0
	}

	parent := make([]int, len(all))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if sameIdentity(all[i], all[j]) {
				union(i, j)
			}
		}
	}

	clusters := make(map[int]bool)
	for i := range all {
		clusters[find(i)] = true
	}

	log.Debug().
		Int("followers", len(all)).
		Int("clusters", len(clusters)).
		Msg("fuzzy identity clustering finished")
	return len(clusters)
}

// sameIdentity decides whether two follower records plausibly belong to
// the same person: any one strong signal suffices.
func sameIdentity(a, b syncengine.FollowerRecord) bool {
	if a.ProfileImageHash != "" && a.ProfileImageHash == b.ProfileImageHash {
		return true
	}
	if Similarity(NormalizeUsername(a.Username), NormalizeUsername(b.Username)) >= usernameSimilarityThreshold {
		return true
	}
	if a.DisplayName != "" && b.DisplayName != "" &&
		Similarity(a.DisplayName, b.DisplayName) >= displayNameSimilarityThreshold {
		return true
	}
	if len(a.Bio) > minBioLength && len(b.Bio) > minBioLength &&
		Similarity(a.Bio, b.Bio) >= bioSimilarityThreshold {
		return true
	}
	return false
}

// Similarity is normalized Levenshtein similarity:
// 1 - distance(a,b)/max(len(a),len(b)). Two empty strings are not similar;
// there is no identity signal in the absence of data.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes edit distance with the classic two-row dynamic
// programming table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
