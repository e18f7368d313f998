// Package ws streams app runtime activity to WebSocket clients.
//
// Each connection attaches to one running app instance and receives
// its store changes and runtime commands (navigate, notification,
// refresh) as JSON messages. Slow clients drop messages instead of
// blocking store listeners.
package ws
