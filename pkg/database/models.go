package database

import (
	"time"

	"audience-sync/pkg/syncengine"
)

// AccountRecord is one social account row, linking a platform account to
// the influencer that owns it.
type AccountRecord struct {
	InfluencerID      string     `json:"influencer_id" db:"influencer_id"`
	Platform          string     `json:"platform" db:"platform"`
	PlatformID        string     `json:"platform_id" db:"platform_id"`
	Username          string     `json:"username" db:"username"`
	FollowerCount     int64      `json:"follower_count" db:"follower_count"`
	FollowingCount    int64      `json:"following_count" db:"following_count"`
	PostCount         int64      `json:"post_count" db:"post_count"`
	EngagementRate    float64    `json:"engagement_rate" db:"engagement_rate"`
	Verified          bool       `json:"verified" db:"verified"`
	ProfileURL        string     `json:"profile_url" db:"profile_url"`
	ObservedAt        time.Time  `json:"observed_at" db:"observed_at"`
	FollowersSyncedAt *time.Time `json:"followers_synced_at,omitempty" db:"followers_synced_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Snapshot projects the row onto the engine's snapshot shape.
func (a AccountRecord) Snapshot() syncengine.AccountSnapshot {
	return syncengine.AccountSnapshot{
		Platform:       a.Platform,
		PlatformID:     a.PlatformID,
		Username:       a.Username,
		FollowerCount:  a.FollowerCount,
		FollowingCount: a.FollowingCount,
		PostCount:      a.PostCount,
		EngagementRate: a.EngagementRate,
		Verified:       a.Verified,
		ProfileURL:     a.ProfileURL,
		ObservedAt:     a.ObservedAt,
	}
}
