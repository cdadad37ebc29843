package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SchedulerTokenTTL is the time-to-live for the bearer token attached
	// to queued start-task deliveries (5 minutes)
	SchedulerTokenTTL = 5 * time.Minute
)

// Campaign constants
const (
	// ImportedViaCampaignTag marks contacts created implicitly by an inline
	// campaign contact list
	ImportedViaCampaignTag = "imported-via-campaign"

	// PauseSnapshotTTL is how long paused-campaign snapshots stay cached
	// for the dashboard across a disconnect/reconnect window
	PauseSnapshotTTL = 24 * time.Hour

	// RecentDisconnectTTL bounds the "recently disconnected" UI flag in case
	// the dashboard never clears it
	RecentDisconnectTTL = 6 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
