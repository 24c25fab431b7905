package syncengine

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Mode is the process-wide operating mode, read from the environment once
// at startup. Changing it requires a restart.
type Mode string

const (
	ModeMinimal Mode = "minimal"
	ModeMedium  Mode = "medium"
	ModeLive    Mode = "live"
)

// ModeConfig is the resolved sync policy for one operating mode. One
// instance per mode, computed once, never mutated.
type ModeConfig struct {
	AccountSyncInterval   time.Duration
	FollowerSyncInterval  time.Duration
	AnalyticsSyncInterval time.Duration
	UseCache              bool
	CacheExpiry           time.Duration
	RequireChangeForSync  bool
	ChangeThreshold       float64 // percent
}

// ParseMode maps the SYNC_MODE environment string to a Mode, defaulting to
// minimal for anything unrecognized.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMedium:
		return ModeMedium
	case ModeLive:
		return ModeLive
	case ModeMinimal:
		return ModeMinimal
	default:
		if s != "" {
			log.Warn().Str("sync_mode", s).Msg("unrecognized sync mode, falling back to minimal")
		}
		return ModeMinimal
	}
}

// Config resolves the mode's policy. Pure and total: every Mode value maps
// to a config, unknown values get the minimal policy.
func (m Mode) Config() ModeConfig {
	switch m {
	case ModeLive:
		// Live trades API budget for freshness: short intervals, and every
		// completed call is accepted regardless of delta magnitude.
		return ModeConfig{
			AccountSyncInterval:   15 * time.Minute,
			FollowerSyncInterval:  24 * time.Hour,
			AnalyticsSyncInterval: time.Hour,
			UseCache:              true,
			CacheExpiry:           15 * time.Minute,
			RequireChangeForSync:  false,
			ChangeThreshold:       0,
		}
	case ModeMedium:
		return ModeConfig{
			AccountSyncInterval:   6 * time.Hour,
			FollowerSyncInterval:  48 * time.Hour,
			AnalyticsSyncInterval: 12 * time.Hour,
			UseCache:              true,
			CacheExpiry:           6 * time.Hour,
			RequireChangeForSync:  true,
			ChangeThreshold:       5.0,
		}
	default:
		return ModeConfig{
			AccountSyncInterval:   24 * time.Hour,
			FollowerSyncInterval:  7 * 24 * time.Hour,
			AnalyticsSyncInterval: 24 * time.Hour,
			UseCache:              true,
			CacheExpiry:           24 * time.Hour,
			RequireChangeForSync:  true,
			ChangeThreshold:       10.0,
		}
	}
}
