// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, cache partition names and storage
keys that are shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Offline Cache: Versioned partition names, policies and the app shell.
  - Durable Slots: Redis keys for the collection, filter and usage state.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "cardbinder"
	AppVersion = "0.3.0"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// Card art is proxied through the server, so this is wider than a pure JSON API.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 15 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	// A full grid render requests several hundred images at once.
	DefaultRateLimitRPS = 400.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 1200

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXRealIP        = "X-Real-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderOrigin         = "Origin"
	HeaderSecFetchMode   = "Sec-Fetch-Mode"
	HeaderOfflineCache   = "X-Offline-Cache"
	HeaderOfflineStamped = "X-Offline-Stored-At"
)

// # Offline Cache

const (
	// PartitionAppShell holds the core assets and the last navigated page.
	PartitionAppShell = "app-shell-v3"

	// PartitionImages holds card artwork.
	PartitionImages = "card-images-v1"

	// PartitionData holds per-set dataset JSON.
	PartitionData = "json-data-v1"

	ImageMaxAge     = 7 * 24 * time.Hour
	ImageMaxEntries = 1000

	DataMaxAge     = 24 * time.Hour
	DataMaxEntries = 100

	// DefaultSweepInterval is the period of the expiry/eviction sweep.
	DefaultSweepInterval = 1 * time.Hour

	// RevalidateTimeout bounds one detached background refresh.
	RevalidateTimeout = 20 * time.Second

	// PlaceholderPath is the app shell asset used when no artwork is available.
	PlaceholderPath = "/assets/card/bg-caracter.png"

	// OfflinePagePath is served for navigations when nothing else is available.
	OfflinePagePath = "/offline.html"
)

// CoreAssets is the app shell installed into [PartitionAppShell].
var CoreAssets = []string{
	"/",
	"/index.html",
	"/styles.css",
	"/app.js",
	"/manifest.webmanifest",
	OfflinePagePath,
	"/icons/icon-192.png",
	"/icons/icon-512.png",
	PlaceholderPath,
}

// # Collection & Dataset

const (
	// DefaultBatchSize is the number of set files fetched concurrently per batch.
	DefaultBatchSize = 6

	// DefaultPersistInterval is the throttle window of collection writes.
	DefaultPersistInterval = 100 * time.Millisecond
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldStatus  = "status"
	FieldChecks  = "checks"
)

// # Redis Keys (Durable Slots)

const (
	RedisKeyCollection = "cardbinder:collection"
	RedisKeyFilters    = "cardbinder:filters"
	RedisKeyUsage      = "cardbinder:usage"
)

// # Database Schemas

const (
	SchemaOffline = "offline"
)
