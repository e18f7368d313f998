// Package expr is a small sandboxed expression interpreter.
//
// Condition text like "count(data.tasks) > 0 && record.status == 'open'"
// is tokenized and parsed into an AST restricted to literals, dotted
// path lookups, comparison/logical/arithmetic operators, and a fixed
// helper allow-list (count, isEmpty, isNotEmpty, includes, today, now).
// Nothing is compiled or executed as source text, which keeps blueprint
// expressions portable and closes the injection hole a general-purpose
// script engine would open.
package expr
