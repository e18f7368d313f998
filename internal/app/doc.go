// Package app assembles and manages application runtimes.
//
// A Runtime wires the full component set for one schema: event bus,
// data store, condition evaluator, permission service, and flow
// engine. Nothing is global; callers construct a Runtime per app (or
// per test) and the Manager tracks live instances by id.
package app
