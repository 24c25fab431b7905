package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"audience-sync/pkg/syncengine"
)

const (
	instagramAPIBase = "https://graph.instagram.com"

	instagramPageSize = 100
	instagramMaxPages = 50
)

// InstagramAdapter fetches account metrics and follower pages from the
// Instagram Graph API.
type InstagramAdapter struct {
	client  *http.Client
	baseURL string
	token   string
	limits  LimitObserver
}

// NewInstagram builds the Instagram adapter. The access token comes from
// the environment; callers skip construction entirely when it is absent.
func NewInstagram(token string, limits LimitObserver) *InstagramAdapter {
	logConfigured("instagram")
	return &InstagramAdapter{
		client:  newHTTPClient(),
		baseURL: instagramAPIBase,
		token:   token,
		limits:  limits,
	}
}

func (a *InstagramAdapter) Platform() string { return "instagram" }

type instagramUserResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FollowersCount int64  `json:"followers_count"`
	FollowsCount   int64  `json:"follows_count"`
	MediaCount     int64  `json:"media_count"`
	IsVerified     bool   `json:"is_verified"`
}

// FetchAccount maps the Graph API user object onto an AccountSnapshot.
func (a *InstagramAdapter) FetchAccount(ctx context.Context, platformID string) (syncengine.AccountSnapshot, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=id,username,followers_count,follows_count,media_count,is_verified&access_token=%s",
		a.baseURL, url.PathEscape(platformID), url.QueryEscape(a.token))

	var user instagramUserResponse
	if err := a.getJSON(ctx, endpoint, platformID, &user); err != nil {
		return syncengine.AccountSnapshot{}, err
	}

	snap := syncengine.AccountSnapshot{
		Platform:       "instagram",
		PlatformID:     user.ID,
		Username:       user.Username,
		FollowerCount:  user.FollowersCount,
		FollowingCount: user.FollowsCount,
		PostCount:      user.MediaCount,
		Verified:       user.IsVerified,
		ProfileURL:     fmt.Sprintf("https://instagram.com/%s", user.Username),
		ObservedAt:     time.Now(),
	}
	if snap.PlatformID == "" {
		snap.PlatformID = platformID
	}

	log.Debug().
		Str("platform_id", snap.PlatformID).
		Int64("followers", snap.FollowerCount).
		Msg("fetched instagram account")
	return snap, nil
}

type instagramFollowersResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

// FetchFollowersPage requests one follower page; the returned cursor is
// empty when the provider reports no further pages.
func (a *InstagramAdapter) FetchFollowersPage(ctx context.Context, platformID, cursor string) ([]syncengine.FollowerRecord, string, error) {
	endpoint := fmt.Sprintf("%s/%s/followers?limit=%d&access_token=%s",
		a.baseURL, url.PathEscape(platformID), instagramPageSize, url.QueryEscape(a.token))
	if cursor != "" {
		endpoint += "&after=" + url.QueryEscape(cursor)
	}

	var page instagramFollowersResponse
	if err := a.getJSON(ctx, endpoint, platformID, &page); err != nil {
		return nil, "", err
	}

	records := make([]syncengine.FollowerRecord, 0, len(page.Data))
	for _, f := range page.Data {
		records = append(records, syncengine.FollowerRecord{
			ID:          f.ID,
			Username:    f.Username,
			DisplayName: f.Name,
		})
	}

	next := ""
	if page.Paging.Next != "" {
		next = page.Paging.Cursors.After
	}
	return records, next, nil
}

// PageLimits bounds an Instagram follower walk.
func (a *InstagramAdapter) PageLimits() syncengine.PageLimits {
	return syncengine.PageLimits{
		PageSize:    instagramPageSize,
		MaxPages:    instagramMaxPages,
		MinInterval: time.Second,
	}
}

func (a *InstagramAdapter) getJSON(ctx context.Context, endpoint, platformID string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create instagram request: %w", err)
	}

	res, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("instagram request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return classifyResponse("instagram", platformID, res, a.limits)
	}
	a.limits.UpdateFromResponse("instagram", res.Header)

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse instagram response: %w", err)
	}
	return nil
}
