// Package sync exposes the account synchronization engine over HTTP.
package sync

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"audience-sync/pkg/database"
	"audience-sync/pkg/dedup"
	"audience-sync/pkg/queue"
	"audience-sync/pkg/syncengine"
)

const (
	maxBatchAccounts    = 100
	defaultBatchWorkers = 5
	maxBatchWorkers     = 20
)

// Engine is the sync surface the handlers need from the orchestrator.
type Engine interface {
	SyncAccount(ctx context.Context, target syncengine.SyncTarget) (syncengine.AccountSnapshot, error)
	ForceSync(ctx context.Context, target syncengine.SyncTarget) (syncengine.AccountSnapshot, error)
}

// Collector is the follower-collection surface the handlers need.
type Collector interface {
	Collect(ctx context.Context, account syncengine.AccountSnapshot, lastCollectedAt *time.Time, force bool) (int, error)
}

// AccountStore is the read surface for influencer accounts and their
// collected followers.
type AccountStore interface {
	ListInfluencerAccounts(ctx context.Context, influencerID string) ([]database.AccountRecord, error)
	LoadFollowers(ctx context.Context, platform, platformID string) ([]syncengine.FollowerRecord, error)
}

// TaskQueue accepts fire-and-forget background work.
type TaskQueue interface {
	Enqueue(task queue.Task) error
}

// Handler bundles the engine's HTTP endpoints.
type Handler struct {
	engine    Engine
	collector Collector
	store     AccountStore
	pool      TaskQueue
}

// NewHandler wires the endpoint dependencies.
func NewHandler(engine Engine, collector Collector, store AccountStore, pool TaskQueue) *Handler {
	return &Handler{
		engine:    engine,
		collector: collector,
		store:     store,
		pool:      pool,
	}
}

// SyncAccount handles POST /api/v1/accounts/sync.
func (h *Handler) SyncAccount(c *gin.Context) {
	h.runSync(c, h.engine.SyncAccount, false)
}

// ForceSyncAccount handles POST /api/v1/accounts/sync/force.
func (h *Handler) ForceSyncAccount(c *gin.Context) {
	h.runSync(c, h.engine.ForceSync, true)
}

func (h *Handler) runSync(c *gin.Context, fn func(context.Context, syncengine.SyncTarget) (syncengine.AccountSnapshot, error), forced bool) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request format",
			"details": err.Error(),
		})
		return
	}

	snap, err := fn(c.Request.Context(), req.Target())
	if err != nil {
		// The engine absorbs operational failures; anything surfacing here
		// is a malformed request.
		if errors.Is(err, syncengine.ErrMissingIdentity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("platform", req.Platform).Msg("unexpected sync error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}

	c.JSON(http.StatusOK, SyncResponse{
		Account: snap,
		Meta:    ResponseMeta{ProcessedAt: time.Now(), Forced: forced},
	})
}

// BatchSync handles POST /api/v1/accounts/sync/batch: bounded-concurrency
// fan-out over the orchestrator, one result per account.
func (h *Handler) BatchSync(c *gin.Context) {
	var req BatchSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request format",
			"details": err.Error(),
		})
		return
	}
	if len(req.Accounts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accounts array cannot be empty"})
		return
	}
	if len(req.Accounts) > maxBatchAccounts {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maximum 100 accounts per batch"})
		return
	}

	workers := req.MaxConcurrency
	if workers <= 0 {
		workers = defaultBatchWorkers
	}
	if workers > maxBatchWorkers {
		workers = maxBatchWorkers
	}

	log.Info().
		Int("accounts", len(req.Accounts)).
		Int("max_concurrency", workers).
		Msg("starting batch account sync")

	started := time.Now()
	results := make([]BatchResult, len(req.Accounts))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, account := range req.Accounts {
		wg.Add(1)
		go func(i int, account SyncRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			snap, err := h.engine.SyncAccount(c.Request.Context(), account.Target())
			result := BatchResult{
				Platform:    account.Platform,
				Username:    account.Username,
				ProcessedAt: time.Now(),
			}
			if err != nil {
				result.Status = "error"
				result.Error = err.Error()
			} else {
				result.Status = "success"
				result.Account = &snap
			}
			results[i] = result
		}(i, account)
	}
	wg.Wait()

	completed := time.Now()
	summary := BatchSummary{
		Total:           len(results),
		DurationSeconds: completed.Sub(started).Seconds(),
		StartedAt:       started,
		CompletedAt:     completed,
	}
	for _, r := range results {
		if r.Status == "success" {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	c.JSON(http.StatusOK, BatchSyncResponse{Results: results, Summary: summary})
}

// CollectFollowers handles POST /api/v1/influencers/:id/followers/collect.
// Collection runs as a background task; the response only acknowledges
// that the job was accepted.
func (h *Handler) CollectFollowers(c *gin.Context) {
	influencerID := c.Param("id")
	if influencerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "influencer ID is required"})
		return
	}
	force := c.Query("force") == "true"

	accounts, err := h.store.ListInfluencerAccounts(c.Request.Context(), influencerID)
	if err != nil {
		log.Error().Err(err).Str("influencer_id", influencerID).Msg("failed to list accounts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load influencer accounts"})
		return
	}
	if len(accounts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no accounts linked to influencer"})
		return
	}

	task := queue.NewCollectionTask(influencerID, func(ctx context.Context) error {
		for _, account := range accounts {
			count, err := h.collector.Collect(ctx, account.Snapshot(), account.FollowersSyncedAt, force)
			if err != nil {
				// Only programmer errors escape Collect; log and keep
				// going so one bad account doesn't starve the rest.
				log.Error().Err(err).
					Str("platform", account.Platform).
					Str("influencer_id", influencerID).
					Msg("follower collection failed for account")
				continue
			}
			log.Info().
				Str("platform", account.Platform).
				Str("influencer_id", influencerID).
				Int("collected", count).
				Msg("follower collection task finished for account")
		}
		return nil
	})

	if err := h.pool.Enqueue(task); err != nil {
		log.Error().Err(err).Str("influencer_id", influencerID).Msg("failed to enqueue collection task")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "collection queue is full, try again later"})
		return
	}

	c.JSON(http.StatusAccepted, CollectionAccepted{
		JobID:        task.JobID.String(),
		InfluencerID: influencerID,
		Accounts:     len(accounts),
		Status:       "accepted",
	})
}

// Audience handles GET /api/v1/influencers/:id/audience: the true unique
// follower count across the influencer's platforms.
func (h *Handler) Audience(c *gin.Context) {
	influencerID := c.Param("id")
	if influencerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "influencer ID is required"})
		return
	}

	accounts, err := h.store.ListInfluencerAccounts(c.Request.Context(), influencerID)
	if err != nil {
		log.Error().Err(err).Str("influencer_id", influencerID).Msg("failed to list accounts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load influencer accounts"})
		return
	}
	if len(accounts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no accounts linked to influencer"})
		return
	}

	inputs := make([]dedup.PlatformFollowers, 0, len(accounts))
	platforms := make([]PlatformAudience, 0, len(accounts))
	for _, account := range accounts {
		followers, err := h.store.LoadFollowers(c.Request.Context(), account.Platform, account.PlatformID)
		if err != nil {
			log.Warn().Err(err).
				Str("platform", account.Platform).
				Msg("failed to load followers, treating platform as uncollected")
			followers = nil
		}
		inputs = append(inputs, dedup.PlatformFollowers{
			Platform:      account.Platform,
			ReportedCount: account.FollowerCount,
			Followers:     followers,
		})
		platforms = append(platforms, PlatformAudience{
			Platform:      account.Platform,
			ReportedCount: account.FollowerCount,
			Collected:     len(followers),
		})
	}

	c.JSON(http.StatusOK, AudienceResponse{
		InfluencerID:        influencerID,
		UniqueFollowerCount: dedup.TrueFollowerCount(inputs),
		Platforms:           platforms,
	})
}
