// Package server provides HTTP server setup for the runtime host.
//
// It assembles the full stack:
//   - Gin routing with recovery
//   - Middleware (CORS, per-IP rate limiting, metrics)
//   - App instance manager and blueprint spawning
//   - Record, flow, event, and permission endpoints
//   - Per-instance WebSocket streams
//   - Prometheus exposition at /metrics
//
// Lifecycle: load config, build logger, NewServer, Run; Shutdown
// drains in-flight requests on signal.
package server
