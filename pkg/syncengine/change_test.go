package syncengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsSignificant_NoCachedValue(t *testing.T) {
	cfg := ModeMinimal.Config()
	fresh := snapshotAt("instagram", "acct", 100, time.Now())

	assert.True(t, IsSignificant(cfg, nil, fresh), "missing cache must always be significant")
}

func TestIsSignificant_IdenticalSnapshots(t *testing.T) {
	cfg := ModeMedium.Config()
	snap := snapshotAt("instagram", "acct", 1000, time.Now())

	assert.False(t, IsSignificant(cfg, &snap, snap))
}

func TestIsSignificant_ChangeNotRequired(t *testing.T) {
	cfg := ModeLive.Config()
	snap := snapshotAt("instagram", "acct", 1000, time.Now())

	assert.True(t, IsSignificant(cfg, &snap, snap), "live mode accepts even a zero delta")
}

// The boundary is inclusive: a delta exactly at the threshold is
// significant. 1000 -> 1050 is exactly 5%, so at a 5.0 threshold it
// passes.
func TestIsSignificant_ExactThresholdBoundary(t *testing.T) {
	cfg := ModeConfig{RequireChangeForSync: true, ChangeThreshold: 5.0}

	cached := AccountSnapshot{FollowerCount: 1000}
	fresh := AccountSnapshot{FollowerCount: 1050}

	assert.True(t, IsSignificant(cfg, &cached, fresh), "delta equal to threshold must count as significant")

	fresh.FollowerCount = 1049
	assert.False(t, IsSignificant(cfg, &cached, fresh), "delta just under threshold must not count")
}

func TestIsSignificant_MaxOfThreeCounts(t *testing.T) {
	cfg := ModeConfig{RequireChangeForSync: true, ChangeThreshold: 10.0}

	cached := AccountSnapshot{FollowerCount: 1000, FollowingCount: 100, PostCount: 50}
	fresh := AccountSnapshot{FollowerCount: 1010, FollowingCount: 101, PostCount: 60}

	// Followers moved 1%, following 1%, posts 20%: the max decides.
	assert.True(t, IsSignificant(cfg, &cached, fresh))
}

func TestPercentChange_ZeroBaselines(t *testing.T) {
	assert.Equal(t, 0.0, percentChange(0, 0))
	assert.Equal(t, 100.0, percentChange(0, 7))
	assert.Equal(t, 50.0, percentChange(100, 150))
	assert.Equal(t, 50.0, percentChange(100, 50), "shrinking counts as change too")
}
