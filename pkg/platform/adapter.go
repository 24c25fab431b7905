// Package platform implements the per-provider API adapters. Each adapter
// maps one provider's response shape onto the engine's uniform
// AccountSnapshot, feeds rate-limit headers back to the shared tracker,
// and classifies provider errors into the engine's taxonomy.
package platform

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"audience-sync/pkg/syncengine"
)

const clientTimeout = 30 * time.Second

// LimitObserver receives rate-limit metadata parsed from provider
// responses. Satisfied by syncengine.RateLimitTracker.
type LimitObserver interface {
	UpdateFromResponse(platform string, h http.Header)
	RecordRateLimited(platform string, h http.Header)
}

// Registry resolves platform names to configured adapters. Adapters whose
// credentials are absent are simply never registered, so lookups for them
// return nil and the engine degrades to its default snapshot.
type Registry struct {
	adapters map[string]syncengine.Adapter
}

// NewRegistry builds a registry from the adapters that could be
// configured.
func NewRegistry(adapters ...syncengine.Adapter) *Registry {
	m := make(map[string]syncengine.Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Platform()] = a
	}
	return &Registry{adapters: m}
}

// Lookup returns the adapter for a platform, nil when none is configured.
func (r *Registry) Lookup(platform string) syncengine.Adapter {
	return r.adapters[strings.ToLower(platform)]
}

// Platforms lists the configured platform names, sorted.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newHTTPClient returns the shared client configuration: a fixed timeout
// covers every external call, so a hung provider enters the retry path
// like any other transport failure.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: clientTimeout}
}

// classifyResponse turns a non-200 provider response into the engine's
// error taxonomy and notifies the limit observer about 429s. The caller
// still owns the response body.
func classifyResponse(platform, platformID string, res *http.Response, limits LimitObserver) error {
	switch res.StatusCode {
	case http.StatusTooManyRequests:
		limits.RecordRateLimited(platform, res.Header)
		return &syncengine.RateLimitedError{
			Platform:   platform,
			RetryAfter: retryAfterHeader(res.Header),
		}
	case http.StatusForbidden:
		return &syncengine.PermissionError{Platform: platform, PlatformID: platformID}
	case http.StatusNotFound:
		return &syncengine.NotFoundError{Platform: platform, PlatformID: platformID}
	default:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s returned HTTP %d: %s", platform, res.StatusCode, strings.TrimSpace(string(body)))
	}
}

func retryAfterHeader(h http.Header) time.Duration {
	raw := h.Get("Retry-After")
	if raw == "" {
		return 0
	}
	var secs int64
	if _, err := fmt.Sscanf(raw, "%d", &secs); err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func logConfigured(platform string) {
	log.Info().Str("platform", platform).Msg("platform adapter configured")
}
