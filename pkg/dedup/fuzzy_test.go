package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"audience-sync/pkg/syncengine"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein([]rune(tt.a), []rune(tt.b)), "%q vs %q", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("samjones", "samjones"))
	assert.Zero(t, Similarity("", ""), "no data carries no identity signal")
	// One edit over eight characters.
	assert.InDelta(t, 0.875, Similarity("samjones", "samjonez"), 0.001)
}

func TestFuzzyClusterCount_NearMissUsernames(t *testing.T) {
	accounts := []PlatformFollowers{
		{Platform: "instagram", Followers: []syncengine.FollowerRecord{
			{ID: "1", Username: "samjones99"},
			{ID: "2", Username: "unrelated_person"},
		}},
		{Platform: "twitter", Followers: []syncengine.FollowerRecord{
			{ID: "3", Username: "samjones_9"}, // normalizes to samjones9, one edit away
		}},
	}
	assert.Equal(t, 2, FuzzyClusterCount(accounts))
}

func TestFuzzyClusterCount_ImageHashEquality(t *testing.T) {
	accounts := []PlatformFollowers{
		{Platform: "instagram", Followers: []syncengine.FollowerRecord{
			{ID: "1", Username: "alpha", ProfileImageHash: "abc123"},
		}},
		{Platform: "tiktok", Followers: []syncengine.FollowerRecord{
			{ID: "2", Username: "omega", ProfileImageHash: "abc123"},
		}},
	}
	assert.Equal(t, 1, FuzzyClusterCount(accounts), "identical avatars merge otherwise unrelated handles")
}

func TestFuzzyClusterCount_ShortBiosIgnored(t *testing.T) {
	accounts := []PlatformFollowers{
		{Platform: "instagram", Followers: []syncengine.FollowerRecord{
			{ID: "1", Username: "alpha", Bio: "hi"},
		}},
		{Platform: "tiktok", Followers: []syncengine.FollowerRecord{
			{ID: "2", Username: "omega", Bio: "hi"},
		}},
	}
	assert.Equal(t, 2, FuzzyClusterCount(accounts), "bios under the length floor are not a signal")
}

func TestFuzzyClusterCount_BioMatch(t *testing.T) {
	bio := "Coffee enthusiast, travel photographer, based in Lisbon"
	accounts := []PlatformFollowers{
		{Platform: "instagram", Followers: []syncengine.FollowerRecord{
			{ID: "1", Username: "alpha", Bio: bio},
		}},
		{Platform: "tiktok", Followers: []syncengine.FollowerRecord{
			{ID: "2", Username: "omega", Bio: bio},
		}},
	}
	assert.Equal(t, 1, FuzzyClusterCount(accounts))
}

func TestFuzzyClusterCount_TransitiveClusters(t *testing.T) {
	accounts := []PlatformFollowers{
		{Platform: "instagram", Followers: []syncengine.FollowerRecord{
			{ID: "1", Username: "samjones", ProfileImageHash: "h1"},
		}},
		{Platform: "twitter", Followers: []syncengine.FollowerRecord{
			{ID: "2", Username: "samjonez"}, // near-miss of samjones
		}},
		{Platform: "tiktok", Followers: []syncengine.FollowerRecord{
			{ID: "3", Username: "completely_else", ProfileImageHash: "h1"},
		}},
	}
	// 1~2 by username, 1~3 by image hash: one cluster of three.
	assert.Equal(t, 1, FuzzyClusterCount(accounts))
}

func TestFuzzyClusterCount_Empty(t *testing.T) {
	assert.Zero(t, FuzzyClusterCount(nil))
}
