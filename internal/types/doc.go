// Package types provides shared data structures for the app runtime.
//
// This package defines the core shapes exchanged between components:
// records and their change notifications, bus events, the generated app
// schema (entities, pages, flows, access rules), and the role hierarchy
// used by the permissions service.
//
// Records are deliberately loose: an ordered string-keyed map with a
// required id, validated opportunistically against schema field
// definitions rather than enforced by static per-record types.
package types
