// Package timeouts defines shared timeout constants for the server process.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Telemetry limits how long span export may block process exit.
const Telemetry = 5 * time.Second
