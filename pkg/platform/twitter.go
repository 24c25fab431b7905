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
	twitterAPIBase = "https://api.twitter.com/2"

	twitterPageSize     = 200
	twitterMaxFollowers = 10000
)

// TwitterAdapter fetches account metrics and follower pages from the
// Twitter v2 API. Follower pagination is unbounded by default, so a total
// cap keeps one very large account from consuming the day's budget.
type TwitterAdapter struct {
	client  *http.Client
	baseURL string
	bearer  string
	limits  LimitObserver
}

func NewTwitter(bearerToken string, limits LimitObserver) *TwitterAdapter {
	logConfigured("twitter")
	return &TwitterAdapter{
		client:  newHTTPClient(),
		baseURL: twitterAPIBase,
		bearer:  bearerToken,
		limits:  limits,
	}
}

func (a *TwitterAdapter) Platform() string { return "twitter" }

type twitterUserResponse struct {
	Data struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		Name          string `json:"name"`
		Verified      bool   `json:"verified"`
		PublicMetrics struct {
			FollowersCount int64 `json:"followers_count"`
			FollowingCount int64 `json:"following_count"`
			TweetCount     int64 `json:"tweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (a *TwitterAdapter) FetchAccount(ctx context.Context, platformID string) (syncengine.AccountSnapshot, error) {
	endpoint := fmt.Sprintf("%s/users/by/username/%s?user.fields=public_metrics,verified",
		a.baseURL, url.PathEscape(platformID))

	var resp twitterUserResponse
	if err := a.getJSON(ctx, endpoint, platformID, &resp); err != nil {
		return syncengine.AccountSnapshot{}, err
	}
	if len(resp.Errors) > 0 && resp.Data.ID == "" {
		return syncengine.AccountSnapshot{}, &syncengine.NotFoundError{Platform: "twitter", PlatformID: platformID}
	}

	u := resp.Data
	snap := syncengine.AccountSnapshot{
		Platform:       "twitter",
		PlatformID:     u.ID,
		Username:       u.Username,
		FollowerCount:  u.PublicMetrics.FollowersCount,
		FollowingCount: u.PublicMetrics.FollowingCount,
		PostCount:      u.PublicMetrics.TweetCount,
		Verified:       u.Verified,
		ProfileURL:     fmt.Sprintf("https://twitter.com/%s", u.Username),
		ObservedAt:     time.Now(),
	}
	if snap.PlatformID == "" {
		snap.PlatformID = platformID
	}

	log.Debug().
		Str("platform_id", snap.PlatformID).
		Int64("followers", snap.FollowerCount).
		Msg("fetched twitter account")
	return snap, nil
}

type twitterFollowersResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"data"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

func (a *TwitterAdapter) FetchFollowersPage(ctx context.Context, platformID, cursor string) ([]syncengine.FollowerRecord, string, error) {
	endpoint := fmt.Sprintf("%s/users/%s/followers?max_results=%d&user.fields=description",
		a.baseURL, url.PathEscape(platformID), twitterPageSize)
	if cursor != "" {
		endpoint += "&pagination_token=" + url.QueryEscape(cursor)
	}

	var page twitterFollowersResponse
	if err := a.getJSON(ctx, endpoint, platformID, &page); err != nil {
		return nil, "", err
	}

	records := make([]syncengine.FollowerRecord, 0, len(page.Data))
	for _, f := range page.Data {
		records = append(records, syncengine.FollowerRecord{
			ID:          f.ID,
			Username:    f.Username,
			DisplayName: f.Name,
			Bio:         f.Description,
		})
	}
	return records, page.Meta.NextToken, nil
}

func (a *TwitterAdapter) PageLimits() syncengine.PageLimits {
	return syncengine.PageLimits{
		PageSize:     twitterPageSize,
		MaxFollowers: twitterMaxFollowers,
		MinInterval:  2 * time.Second,
	}
}

func (a *TwitterAdapter) getJSON(ctx context.Context, endpoint, platformID string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create twitter request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.bearer)

	res, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("twitter request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return classifyResponse("twitter", platformID, res, a.limits)
	}
	a.limits.UpdateFromResponse("twitter", res.Header)

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse twitter response: %w", err)
	}
	return nil
}
