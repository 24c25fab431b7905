package syncengine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AccountSnapshot is the fetched-or-cached state of one platform account.
// Snapshots are immutable: an accepted fetch produces a new snapshot, it
// never mutates the previous one in place.
type AccountSnapshot struct {
	Platform       string    `json:"platform"`
	PlatformID     string    `json:"platform_id"`
	Username       string    `json:"username"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	PostCount      int64     `json:"post_count"`
	EngagementRate float64   `json:"engagement_rate"`
	Verified       bool      `json:"verified"`
	ProfileURL     string    `json:"profile_url"`
	ObservedAt     time.Time `json:"observed_at"`
}

// DefaultSnapshot returns the zero-valued snapshot used whenever the engine
// degrades instead of erroring (missing credentials, unsupported platform,
// too-soon short-circuit).
func DefaultSnapshot(platform, platformID, username string) AccountSnapshot {
	return AccountSnapshot{
		Platform:   platform,
		PlatformID: platformID,
		Username:   username,
		ObservedAt: time.Now(),
	}
}

// FollowerRecord is one follower entry as collected from one platform.
// The engine reads these; it never mutates or persists them itself.
type FollowerRecord struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	DisplayName      string `json:"display_name,omitempty"`
	ProfileImageHash string `json:"profile_image_hash,omitempty"`
	Bio              string `json:"bio,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
}

// SyncTarget identifies the account a caller wants synchronized.
type SyncTarget struct {
	Platform     string     `json:"platform"`
	Username     string     `json:"username"`
	PlatformID   string     `json:"platform_id,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// Store is the persistence collaborator. The relational store behind it is
// owned by the surrounding application; the engine only loads and saves
// through this contract.
type Store interface {
	LoadCachedSnapshot(ctx context.Context, platform, platformID string) (*AccountSnapshot, error)
	SaveSnapshot(ctx context.Context, snap AccountSnapshot) error
	// SaveFollowers has replace-all semantics per (platform, platformID).
	SaveFollowers(ctx context.Context, platform, platformID string, followers []FollowerRecord) error
	LoadFollowers(ctx context.Context, platform, platformID string) ([]FollowerRecord, error)
}

// Adapter maps one provider's API onto the engine's uniform account shape.
type Adapter interface {
	Platform() string
	FetchAccount(ctx context.Context, platformID string) (AccountSnapshot, error)
}

// FollowerSource is the optional capability of an Adapter whose platform
// exposes a follower list. Platforms without it (e.g. YouTube's public API)
// simply don't implement the interface.
type FollowerSource interface {
	FetchFollowersPage(ctx context.Context, platformID, cursor string) ([]FollowerRecord, string, error)
	PageLimits() PageLimits
}

// PageLimits are the per-platform pagination constraints a collection walk
// must honor.
type PageLimits struct {
	PageSize     int
	MaxPages     int           // 0 means unbounded
	MaxFollowers int           // 0 means unbounded
	MinInterval  time.Duration // minimum wait between page requests
}

// AdapterRegistry resolves a platform name to its configured adapter.
// Lookup returns nil for unknown or unconfigured platforms.
type AdapterRegistry interface {
	Lookup(platform string) Adapter
}

// ErrMissingIdentity is the only error class the engine raises to callers:
// a sync request without the fields needed to identify an account is a
// programmer error, not an operational condition.
var ErrMissingIdentity = errors.New("sync target requires platform and username")

// RateLimitedError reports a 429 from a provider. It is always recoverable;
// the retry loop waits RetryAfter (when known) and tries again.
type RateLimitedError struct {
	Platform   string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Platform, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Platform)
}

// PermissionError reports a 403: the configured credentials lack the API
// tier for this call. Retrying cannot help, so the engine degrades
// immediately instead.
type PermissionError struct {
	Platform   string
	PlatformID string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s denied access to account %s: insufficient API permissions", e.Platform, e.PlatformID)
}

// NotFoundError reports an account the provider says does not exist.
// Not retried.
type NotFoundError struct {
	Platform   string
	PlatformID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s account %s not found", e.Platform, e.PlatformID)
}
