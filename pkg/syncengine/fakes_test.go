package syncengine

import (
	"context"
	"sync"
	"time"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	mu        sync.Mutex
	snaps     map[string]*AccountSnapshot
	followers map[string][]FollowerRecord
	saveCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snaps:     make(map[string]*AccountSnapshot),
		followers: make(map[string][]FollowerRecord),
	}
}

func storeKey(platform, platformID string) string {
	return platform + "/" + platformID
}

func (s *fakeStore) LoadCachedSnapshot(_ context.Context, platform, platformID string) (*AccountSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[storeKey(platform, platformID)]
	if !ok {
		return nil, nil
	}
	copied := *snap
	return &copied, nil
}

func (s *fakeStore) SaveSnapshot(_ context.Context, snap AccountSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	copied := snap
	s.snaps[storeKey(snap.Platform, snap.PlatformID)] = &copied
	return nil
}

func (s *fakeStore) SaveFollowers(_ context.Context, platform, platformID string, followers []FollowerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followers[storeKey(platform, platformID)] = append([]FollowerRecord(nil), followers...)
	return nil
}

func (s *fakeStore) LoadFollowers(_ context.Context, platform, platformID string) ([]FollowerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.followers[storeKey(platform, platformID)], nil
}

// fakeAdapter scripts FetchAccount responses and counts calls.
type fakeAdapter struct {
	platform string
	mu       sync.Mutex
	calls    int
	fetch    func(call int) (AccountSnapshot, error)
}

func (a *fakeAdapter) Platform() string { return a.platform }

func (a *fakeAdapter) FetchAccount(_ context.Context, _ string) (AccountSnapshot, error) {
	a.mu.Lock()
	call := a.calls
	a.calls++
	a.mu.Unlock()
	return a.fetch(call)
}

func (a *fakeAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// fakePagedAdapter scripts follower pages for collector tests.
type fakePagedAdapter struct {
	fakeAdapter
	limits    PageLimits
	mu        sync.Mutex
	pageCalls int
	pages     func(call int, cursor string) ([]FollowerRecord, string, error)
}

func (a *fakePagedAdapter) FetchFollowersPage(_ context.Context, _ string, cursor string) ([]FollowerRecord, string, error) {
	a.mu.Lock()
	call := a.pageCalls
	a.pageCalls++
	a.mu.Unlock()
	return a.pages(call, cursor)
}

func (a *fakePagedAdapter) PageLimits() PageLimits { return a.limits }

func (a *fakePagedAdapter) pageCallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pageCalls
}

type fakeRegistry struct {
	adapters map[string]Adapter
}

func newFakeRegistry(adapters ...Adapter) *fakeRegistry {
	m := make(map[string]Adapter)
	for _, a := range adapters {
		m[a.Platform()] = a
	}
	return &fakeRegistry{adapters: m}
}

func (r *fakeRegistry) Lookup(platform string) Adapter {
	return r.adapters[platform]
}

func snapshotAt(platform, id string, followers int64, observed time.Time) AccountSnapshot {
	return AccountSnapshot{
		Platform:       platform,
		PlatformID:     id,
		Username:       id,
		FollowerCount:  followers,
		FollowingCount: followers / 10,
		PostCount:      followers / 100,
		ObservedAt:     observed,
	}
}
