package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"audience-sync/pkg/syncengine"
)

const (
	tiktokAPIBase = "https://open.tiktokapis.com/v2"

	tiktokPageSize = 50
	tiktokMaxPages = 40
)

// TikTokAdapter fetches account metrics and follower pages from the
// TikTok open API.
type TikTokAdapter struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limits  LimitObserver
}

func NewTikTok(apiKey string, limits LimitObserver) *TikTokAdapter {
	logConfigured("tiktok")
	return &TikTokAdapter{
		client:  newHTTPClient(),
		baseURL: tiktokAPIBase,
		apiKey:  apiKey,
		limits:  limits,
	}
}

func (a *TikTokAdapter) Platform() string { return "tiktok" }

type tiktokUserResponse struct {
	Data struct {
		User struct {
			OpenID          string `json:"open_id"`
			Username        string `json:"username"`
			DisplayName     string `json:"display_name"`
			FollowerCount   int64  `json:"follower_count"`
			FollowingCount  int64  `json:"following_count"`
			VideoCount      int64  `json:"video_count"`
			IsVerified      bool   `json:"is_verified"`
			ProfileDeepLink string `json:"profile_deep_link"`
		} `json:"user"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *TikTokAdapter) FetchAccount(ctx context.Context, platformID string) (syncengine.AccountSnapshot, error) {
	endpoint := fmt.Sprintf("%s/user/info/?fields=open_id,username,display_name,follower_count,following_count,video_count,is_verified,profile_deep_link&username=%s",
		a.baseURL, url.QueryEscape(platformID))

	var resp tiktokUserResponse
	if err := a.getJSON(ctx, endpoint, platformID, &resp); err != nil {
		return syncengine.AccountSnapshot{}, err
	}
	if resp.Error.Code != "" && resp.Error.Code != "ok" {
		if strings.Contains(strings.ToLower(resp.Error.Message), "not found") {
			return syncengine.AccountSnapshot{}, &syncengine.NotFoundError{Platform: "tiktok", PlatformID: platformID}
		}
		return syncengine.AccountSnapshot{}, fmt.Errorf("tiktok API error %s: %s", resp.Error.Code, resp.Error.Message)
	}

	u := resp.Data.User
	snap := syncengine.AccountSnapshot{
		Platform:       "tiktok",
		PlatformID:     u.OpenID,
		Username:       u.Username,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		PostCount:      u.VideoCount,
		Verified:       u.IsVerified,
		ProfileURL:     u.ProfileDeepLink,
		ObservedAt:     time.Now(),
	}
	if snap.PlatformID == "" {
		snap.PlatformID = platformID
	}

	log.Debug().
		Str("platform_id", snap.PlatformID).
		Int64("followers", snap.FollowerCount).
		Msg("fetched tiktok account")
	return snap, nil
}

type tiktokFollowersResponse struct {
	Data struct {
		UserList []struct {
			OpenID         string `json:"open_id"`
			Username       string `json:"username"`
			DisplayName    string `json:"display_name"`
			BioDescription string `json:"bio_description"`
		} `json:"user_list"`
		Cursor  string `json:"cursor"`
		HasMore bool   `json:"has_more"`
	} `json:"data"`
}

func (a *TikTokAdapter) FetchFollowersPage(ctx context.Context, platformID, cursor string) ([]syncengine.FollowerRecord, string, error) {
	endpoint := fmt.Sprintf("%s/user/followers/?username=%s&count=%d",
		a.baseURL, url.QueryEscape(platformID), tiktokPageSize)
	if cursor != "" {
		endpoint += "&cursor=" + url.QueryEscape(cursor)
	}

	var page tiktokFollowersResponse
	if err := a.getJSON(ctx, endpoint, platformID, &page); err != nil {
		return nil, "", err
	}

	records := make([]syncengine.FollowerRecord, 0, len(page.Data.UserList))
	for _, f := range page.Data.UserList {
		records = append(records, syncengine.FollowerRecord{
			ID:          f.OpenID,
			Username:    f.Username,
			DisplayName: f.DisplayName,
			Bio:         f.BioDescription,
		})
	}

	next := ""
	if page.Data.HasMore {
		next = page.Data.Cursor
	}
	return records, next, nil
}

func (a *TikTokAdapter) PageLimits() syncengine.PageLimits {
	return syncengine.PageLimits{
		PageSize:    tiktokPageSize,
		MaxPages:    tiktokMaxPages,
		MinInterval: 1500 * time.Millisecond,
	}
}

func (a *TikTokAdapter) getJSON(ctx context.Context, endpoint, platformID string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create tiktok request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	res, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return classifyResponse("tiktok", platformID, res, a.limits)
	}
	a.limits.UpdateFromResponse("tiktok", res.Header)

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse tiktok response: %w", err)
	}
	return nil
}
