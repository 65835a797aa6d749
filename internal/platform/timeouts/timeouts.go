// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// UpstreamRequest caps the time allowed for a single request to the upstream
// forum API.
const UpstreamRequest = 10 * time.Second

// PreloadTake caps one single-read preload store lookup. A slow store is
// treated as a cache miss rather than stalling list resolution.
const PreloadTake = 500 * time.Millisecond

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// WebsocketWrite caps one tracking notification write to a websocket peer.
const WebsocketWrite = 5 * time.Second

// SessionSweep is the interval between scans for idle viewer sessions.
const SessionSweep = time.Minute
