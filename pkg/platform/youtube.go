package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"audience-sync/pkg/syncengine"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// YouTubeAdapter fetches channel statistics from the YouTube Data API.
// YouTube's public API exposes subscriber counts but no subscriber list,
// so this adapter does not implement FollowerSource.
type YouTubeAdapter struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limits  LimitObserver
}

func NewYouTube(apiKey string, limits LimitObserver) *YouTubeAdapter {
	logConfigured("youtube")
	return &YouTubeAdapter{
		client:  newHTTPClient(),
		baseURL: youtubeAPIBase,
		apiKey:  apiKey,
		limits:  limits,
	}
}

func (a *YouTubeAdapter) Platform() string { return "youtube" }

type youtubeChannelResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title     string `json:"title"`
			CustomURL string `json:"customUrl"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// FetchAccount maps a channel's statistics onto an AccountSnapshot.
// Subscribers map to followers; YouTube has no following count.
func (a *YouTubeAdapter) FetchAccount(ctx context.Context, platformID string) (syncengine.AccountSnapshot, error) {
	endpoint := fmt.Sprintf("%s/channels?part=snippet,statistics&forHandle=%s&key=%s",
		a.baseURL, url.QueryEscape(platformID), url.QueryEscape(a.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return syncengine.AccountSnapshot{}, fmt.Errorf("failed to create youtube request: %w", err)
	}

	res, err := a.client.Do(req)
	if err != nil {
		return syncengine.AccountSnapshot{}, fmt.Errorf("youtube request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return syncengine.AccountSnapshot{}, classifyResponse("youtube", platformID, res, a.limits)
	}
	a.limits.UpdateFromResponse("youtube", res.Header)

	var resp youtubeChannelResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return syncengine.AccountSnapshot{}, fmt.Errorf("failed to parse youtube response: %w", err)
	}
	if len(resp.Items) == 0 {
		return syncengine.AccountSnapshot{}, &syncengine.NotFoundError{Platform: "youtube", PlatformID: platformID}
	}

	ch := resp.Items[0]
	subs, _ := strconv.ParseInt(ch.Statistics.SubscriberCount, 10, 64)
	videos, _ := strconv.ParseInt(ch.Statistics.VideoCount, 10, 64)

	snap := syncengine.AccountSnapshot{
		Platform:      "youtube",
		PlatformID:    ch.ID,
		Username:      ch.Snippet.CustomURL,
		FollowerCount: subs,
		PostCount:     videos,
		ProfileURL:    fmt.Sprintf("https://youtube.com/%s", ch.Snippet.CustomURL),
		ObservedAt:    time.Now(),
	}
	if snap.Username == "" {
		snap.Username = ch.Snippet.Title
	}
	if snap.PlatformID == "" {
		snap.PlatformID = platformID
	}

	log.Debug().
		Str("channel_id", snap.PlatformID).
		Int64("subscribers", snap.FollowerCount).
		Msg("fetched youtube channel")
	return snap, nil
}
