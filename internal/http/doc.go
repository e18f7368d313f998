// Package http exposes the runtime over HTTP: app lifecycle from
// blueprints, record CRUD and queries scoped by the caller's access,
// flow execution, event history, and permission checks. Handlers are
// boundary glue; all semantics live in the runtime packages.
package http
