package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audience-sync/pkg/syncengine"
)

func TestRegistry_Lookup(t *testing.T) {
	limits := syncengine.NewRateLimitTracker()
	reg := NewRegistry(
		NewInstagram("token", limits),
		NewYouTube("key", limits),
	)

	assert.NotNil(t, reg.Lookup("instagram"))
	assert.NotNil(t, reg.Lookup("Instagram"), "lookup is case-insensitive")
	assert.Nil(t, reg.Lookup("tiktok"), "unconfigured platforms resolve to nil")
	assert.Nil(t, reg.Lookup("myspace"))
	assert.Equal(t, []string{"instagram", "youtube"}, reg.Platforms())
}

func TestRegistry_YouTubeHasNoFollowerSource(t *testing.T) {
	limits := syncengine.NewRateLimitTracker()
	reg := NewRegistry(NewInstagram("token", limits), NewYouTube("key", limits))

	_, ok := reg.Lookup("instagram").(syncengine.FollowerSource)
	assert.True(t, ok)

	_, ok = reg.Lookup("youtube").(syncengine.FollowerSource)
	assert.False(t, ok, "youtube exposes subscriber counts only")
}

func TestInstagramAdapter_FetchAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("fields"), "followers_count")
		w.Header().Set("X-RateLimit-Remaining", "99")
		w.Header().Set("X-RateLimit-Limit", "200")
		w.Write([]byte(`{"id":"17841400","username":"samjones","followers_count":5200,"follows_count":310,"media_count":87,"is_verified":true}`))
	}))
	defer srv.Close()

	limits := syncengine.NewRateLimitTracker()
	adapter := NewInstagram("token", limits)
	adapter.baseURL = srv.URL

	snap, err := adapter.FetchAccount(context.Background(), "samjones")
	require.NoError(t, err)

	assert.Equal(t, "instagram", snap.Platform)
	assert.Equal(t, "17841400", snap.PlatformID)
	assert.Equal(t, "samjones", snap.Username)
	assert.Equal(t, int64(5200), snap.FollowerCount)
	assert.Equal(t, int64(310), snap.FollowingCount)
	assert.Equal(t, int64(87), snap.PostCount)
	assert.True(t, snap.Verified)
	assert.False(t, snap.ObservedAt.IsZero())

	state, ok := limits.State("instagram")
	require.True(t, ok, "response headers must feed the tracker")
	assert.Equal(t, 99, state.Remaining)
}

func TestInstagramAdapter_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "429 maps to RateLimitedError with retry-after",
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "17"},
			check: func(t *testing.T, err error) {
				var rlErr *syncengine.RateLimitedError
				require.ErrorAs(t, err, &rlErr)
				assert.Equal(t, "instagram", rlErr.Platform)
				assert.Equal(t, float64(17), rlErr.RetryAfter.Seconds())
			},
		},
		{
			name:   "403 maps to PermissionError",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var permErr *syncengine.PermissionError
				require.ErrorAs(t, err, &permErr)
			},
		},
		{
			name:   "404 maps to NotFoundError",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				var nfErr *syncengine.NotFoundError
				require.ErrorAs(t, err, &nfErr)
			},
		},
		{
			name:   "500 is a generic transport error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				var rlErr *syncengine.RateLimitedError
				var permErr *syncengine.PermissionError
				assert.False(t, errors.As(err, &rlErr))
				assert.False(t, errors.As(err, &permErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			adapter := NewInstagram("token", syncengine.NewRateLimitTracker())
			adapter.baseURL = srv.URL

			_, err := adapter.FetchAccount(context.Background(), "samjones")
			tt.check(t, err)
		})
	}
}

func TestInstagramAdapter_FollowerPagination(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("after") == "" {
			w.Write([]byte(`{"data":[{"id":"1","username":"a"},{"id":"2","username":"b"}],"paging":{"cursors":{"after":"CURSOR2"},"next":"https://next"}}`))
			return
		}
		assert.Equal(t, "CURSOR2", r.URL.Query().Get("after"))
		w.Write([]byte(`{"data":[{"id":"3","username":"c"}],"paging":{"cursors":{"after":""}}}`))
	}))
	defer srv.Close()

	adapter := NewInstagram("token", syncengine.NewRateLimitTracker())
	adapter.baseURL = srv.URL

	records, next, err := adapter.FetchFollowersPage(context.Background(), "samjones", "")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "CURSOR2", next)

	records, next, err = adapter.FetchFollowersPage(context.Background(), "samjones", next)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Empty(t, next, "absent paging.next ends the walk")
	assert.Equal(t, 2, calls)
}

func TestTwitterAdapter_PageLimitsCapped(t *testing.T) {
	adapter := NewTwitter("bearer", syncengine.NewRateLimitTracker())
	limits := adapter.PageLimits()

	assert.Equal(t, twitterPageSize, limits.PageSize)
	assert.Zero(t, limits.MaxPages, "twitter pagination is unbounded by pages")
	assert.Equal(t, twitterMaxFollowers, limits.MaxFollowers)
	assert.Positive(t, limits.MinInterval)
}
