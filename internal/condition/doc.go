// Package condition evaluates declarative visibility and enablement
// rules for the UI materializer.
//
// A rule arrives as a serializable descriptor (simple field test,
// free-form expression, or and/or composite) and is judged against an
// evaluation context built from the store snapshot, ephemeral state,
// and the current record or form. Failures never propagate: a broken
// expression or missing path yields false, so components fail closed.
package condition
