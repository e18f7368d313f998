// Package permissions enforces role, row, field, page, and action
// access from schema-declared rules.
//
// Roles form a total order (viewer < editor < admin < owner): a rule
// written for a lower role is satisfied by any higher one. Row rules
// may carry a condition expression evaluated with the record's fields
// and the caller's id (current_user) bound as identifiers.
package permissions
