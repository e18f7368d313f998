// Package flow executes workflow definitions against the data store.
//
// A flow is an ordered action list; actions run strictly in declared
// order with no intra-flow parallelism. The first failure of a
// blocking action halts the flow and returns the partial trace; a
// non-blocking failure is recorded and skipped past. Record-writing
// handlers enforce reference integrity (required references, resolvable
// targets, refusal to delete referenced records), and UI-facing actions
// (navigate, notification, refresh) are emitted as bus commands for
// the hosting surface rather than rendered here.
package flow
