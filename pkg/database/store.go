package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"audience-sync/pkg/syncengine"
)

// Store implements the sync engine's persistence contract on top of the
// shared Postgres connection.
type Store struct{}

// NewStore returns a Store bound to the global connection. Initialize
// must have been called first.
func NewStore() *Store {
	return &Store{}
}

// LoadCachedSnapshot returns the last accepted snapshot for an account,
// or nil when none has been saved yet.
func (s *Store) LoadCachedSnapshot(ctx context.Context, platform, platformID string) (*syncengine.AccountSnapshot, error) {
	query := `
		SELECT platform, platform_id, username, follower_count, following_count,
		       post_count, engagement_rate, verified, profile_url, observed_at
		FROM social_accounts
		WHERE platform = $1 AND platform_id = $2
	`

	var snap syncengine.AccountSnapshot
	err := DB.QueryRowContext(ctx, query, platform, platformID).Scan(
		&snap.Platform, &snap.PlatformID, &snap.Username,
		&snap.FollowerCount, &snap.FollowingCount, &snap.PostCount,
		&snap.EngagementRate, &snap.Verified, &snap.ProfileURL, &snap.ObservedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached snapshot: %w", err)
	}
	return &snap, nil
}

// SaveSnapshot upserts an accepted snapshot as the account's new cached
// state.
func (s *Store) SaveSnapshot(ctx context.Context, snap syncengine.AccountSnapshot) error {
	query := `
		INSERT INTO social_accounts (
			platform, platform_id, username, follower_count, following_count,
			post_count, engagement_rate, verified, profile_url, observed_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (platform, platform_id) DO UPDATE SET
			username = EXCLUDED.username,
			follower_count = EXCLUDED.follower_count,
			following_count = EXCLUDED.following_count,
			post_count = EXCLUDED.post_count,
			engagement_rate = EXCLUDED.engagement_rate,
			verified = EXCLUDED.verified,
			profile_url = EXCLUDED.profile_url,
			observed_at = EXCLUDED.observed_at,
			updated_at = NOW()
	`

	_, err := DB.ExecContext(ctx, query,
		snap.Platform, snap.PlatformID, snap.Username,
		snap.FollowerCount, snap.FollowingCount, snap.PostCount,
		snap.EngagementRate, snap.Verified, snap.ProfileURL, snap.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// SaveFollowers replaces the stored follower list for one account in a
// single transaction, bulk-loading the new rows with COPY. Also stamps
// the account's followers_synced_at.
func (s *Store) SaveFollowers(ctx context.Context, platform, platformID string, followers []syncengine.FollowerRecord) error {
	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin followers transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM account_followers WHERE platform = $1 AND platform_id = $2`,
		platform, platformID,
	); err != nil {
		return fmt.Errorf("failed to clear previous followers: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("account_followers",
		"platform", "platform_id", "follower_id", "username", "display_name",
		"profile_image_hash", "bio", "email", "phone",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare followers copy: %w", err)
	}

	for _, f := range followers {
		if _, err := stmt.ExecContext(ctx,
			platform, platformID, f.ID, f.Username, f.DisplayName,
			f.ProfileImageHash, f.Bio, f.Email, f.Phone,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy follower row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush followers copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close followers copy: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE social_accounts SET followers_synced_at = $3, updated_at = NOW()
		 WHERE platform = $1 AND platform_id = $2`,
		platform, platformID, time.Now(),
	); err != nil {
		return fmt.Errorf("failed to stamp followers sync time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit followers: %w", err)
	}

	log.Debug().
		Str("platform", platform).
		Str("platform_id", platformID).
		Int("count", len(followers)).
		Msg("replaced stored follower list")
	return nil
}

// LoadFollowers returns the stored follower list for one account.
func (s *Store) LoadFollowers(ctx context.Context, platform, platformID string) ([]syncengine.FollowerRecord, error) {
	query := `
		SELECT follower_id, username, display_name, profile_image_hash, bio, email, phone
		FROM account_followers
		WHERE platform = $1 AND platform_id = $2
	`

	rows, err := DB.QueryContext(ctx, query, platform, platformID)
	if err != nil {
		return nil, fmt.Errorf("failed to load followers: %w", err)
	}
	defer rows.Close()

	var followers []syncengine.FollowerRecord
	for rows.Next() {
		var f syncengine.FollowerRecord
		if err := rows.Scan(&f.ID, &f.Username, &f.DisplayName, &f.ProfileImageHash, &f.Bio, &f.Email, &f.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan follower row: %w", err)
		}
		followers = append(followers, f)
	}
	return followers, rows.Err()
}

// ListInfluencerAccounts returns every platform account linked to one
// influencer.
func (s *Store) ListInfluencerAccounts(ctx context.Context, influencerID string) ([]AccountRecord, error) {
	query := `
		SELECT influencer_id, platform, platform_id, username, follower_count,
		       following_count, post_count, engagement_rate, verified,
		       profile_url, observed_at, followers_synced_at, created_at, updated_at
		FROM social_accounts
		WHERE influencer_id = $1
		ORDER BY platform
	`

	rows, err := DB.QueryContext(ctx, query, influencerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list influencer accounts: %w", err)
	}
	defer rows.Close()

	var accounts []AccountRecord
	for rows.Next() {
		var a AccountRecord
		if err := rows.Scan(
			&a.InfluencerID, &a.Platform, &a.PlatformID, &a.Username,
			&a.FollowerCount, &a.FollowingCount, &a.PostCount, &a.EngagementRate,
			&a.Verified, &a.ProfileURL, &a.ObservedAt, &a.FollowersSyncedAt,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
