package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"minimal", ModeMinimal},
		{"medium", ModeMedium},
		{"live", ModeLive},
		{"LIVE", ModeLive},
		{" medium ", ModeMedium},
		{"", ModeMinimal},
		{"turbo", ModeMinimal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMode(tt.input), "input %q", tt.input)
	}
}

func TestModeConfig_ThresholdOrdering(t *testing.T) {
	minimal := ModeMinimal.Config()
	medium := ModeMedium.Config()
	live := ModeLive.Config()

	assert.Greater(t, minimal.ChangeThreshold, medium.ChangeThreshold)
	assert.Greater(t, medium.ChangeThreshold, live.ChangeThreshold)
	assert.Zero(t, live.ChangeThreshold)
}

func TestModeConfig_LiveAcceptsUnconditionally(t *testing.T) {
	assert.False(t, ModeLive.Config().RequireChangeForSync)
	assert.True(t, ModeMinimal.Config().RequireChangeForSync)
	assert.True(t, ModeMedium.Config().RequireChangeForSync)
}

func TestModeConfig_MinimalMaximizesIntervals(t *testing.T) {
	minimal := ModeMinimal.Config()
	medium := ModeMedium.Config()
	live := ModeLive.Config()

	assert.Greater(t, minimal.AccountSyncInterval, medium.AccountSyncInterval)
	assert.Greater(t, medium.AccountSyncInterval, live.AccountSyncInterval)
	assert.Greater(t, minimal.CacheExpiry, live.CacheExpiry)
	assert.Greater(t, minimal.FollowerSyncInterval, minimal.AccountSyncInterval)
}

func TestModeConfig_UnknownModeGetsMinimalPolicy(t *testing.T) {
	assert.Equal(t, ModeMinimal.Config(), Mode("bogus").Config())
}
