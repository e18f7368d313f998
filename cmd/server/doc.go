// Package main is the entry point for the AppForge runtime host.
//
// The host serves generated business apps: it spawns a runtime per
// blueprint and exposes records, flows, events, and permission checks
// over REST, with per-instance WebSocket streams for live updates.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
