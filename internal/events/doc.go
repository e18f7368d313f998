// Package events provides the typed pub/sub bus connecting the runtime
// pieces: the store announces record changes on it, the flow engine
// publishes host commands, and the host surface relays both to clients.
//
// Listener dispatch for one emission is concurrent and unordered; a
// failing listener is logged and never blocks its siblings or the
// emitter. Every emission is retained in a bounded ring-buffer history
// queryable by type pattern, time, and limit.
package events
