package sync

import (
	"time"

	"audience-sync/pkg/syncengine"
)

// SyncRequest identifies one account to synchronize.
type SyncRequest struct {
	Platform     string     `json:"platform" binding:"required"`
	Username     string     `json:"username" binding:"required"`
	PlatformID   string     `json:"platform_id,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// Target converts the request to the engine's target shape.
func (r SyncRequest) Target() syncengine.SyncTarget {
	return syncengine.SyncTarget{
		Platform:     r.Platform,
		Username:     r.Username,
		PlatformID:   r.PlatformID,
		LastSyncedAt: r.LastSyncedAt,
	}
}

// SyncResponse wraps a snapshot with response metadata.
type SyncResponse struct {
	Account syncengine.AccountSnapshot `json:"account"`
	Meta    ResponseMeta               `json:"meta"`
}

// ResponseMeta provides metadata about the response.
type ResponseMeta struct {
	ProcessedAt time.Time `json:"processed_at"`
	Forced      bool      `json:"forced,omitempty"`
}

// BatchSyncRequest asks for several accounts to be synchronized in one
// call.
type BatchSyncRequest struct {
	Accounts       []SyncRequest `json:"accounts" binding:"required"`
	MaxConcurrency int           `json:"max_concurrency,omitempty"`
}

// BatchSyncResponse carries per-account results plus a summary.
type BatchSyncResponse struct {
	Results []BatchResult `json:"results"`
	Summary BatchSummary  `json:"summary"`
}

// BatchResult is the outcome for a single account in a batch.
type BatchResult struct {
	Platform    string                      `json:"platform"`
	Username    string                      `json:"username"`
	Status      string                      `json:"status"` // "success", "error"
	Account     *syncengine.AccountSnapshot `json:"account,omitempty"`
	Error       string                      `json:"error,omitempty"`
	ProcessedAt time.Time                   `json:"processed_at"`
}

// BatchSummary summarizes a batch run.
type BatchSummary struct {
	Total           int       `json:"total"`
	Successful      int       `json:"successful"`
	Failed          int       `json:"failed"`
	DurationSeconds float64   `json:"duration_seconds"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}

// CollectionAccepted acknowledges a fire-and-forget collection job.
type CollectionAccepted struct {
	JobID        string `json:"job_id"`
	InfluencerID string `json:"influencer_id"`
	Accounts     int    `json:"accounts"`
	Status       string `json:"status"`
}

// AudienceResponse reports the deduplicated audience for an influencer.
type AudienceResponse struct {
	InfluencerID        string             `json:"influencer_id"`
	UniqueFollowerCount int64              `json:"unique_follower_count"`
	Platforms           []PlatformAudience `json:"platforms"`
}

// PlatformAudience is one platform's contribution to the audience.
type PlatformAudience struct {
	Platform      string `json:"platform"`
	ReportedCount int64  `json:"reported_count"`
	Collected     int    `json:"collected"`
}
