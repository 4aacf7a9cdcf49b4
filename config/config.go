// fedistash/config/config.go
package config

const (
	AppVersion = "0.4-beta"

	// Timeline Read Defaults
	DefaultPostsPerPage = 25
	MaxPostsPerPage     = 100

	// Remote Sync Limits
	RemotePageSize = 40 // Mastodon caps public timeline pages at 40 statuses
	MaxSyncBatch   = 10

	// Rate Limiting Defaults (per-IP, mutation endpoints)
	DefaultRateLimitEvery  = "2s"
	DefaultRateLimitBurst  = 10
	DefaultRateLimitPrune  = "1h"
	DefaultRateLimitExpire = "24h"

	// Per-server spacing between remote page fetches
	DefaultSyncEvery = "1s"
	DefaultSyncBurst = 2

	// Remote HTTP
	DefaultFetchTimeout = "30s"
)
