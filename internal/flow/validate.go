package flow

import (
	"fmt"
	"strings"

	"github.com/appforge/runtime/internal/store"
	"github.com/appforge/runtime/internal/types"
)

// ValidationError reports a reference-integrity violation on one field.
type ValidationError struct {
	Model  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s.%s: %s", e.Model, e.Field, e.Reason)
}

// BlockedDeleteError reports a refused deletion, naming the model(s)
// still holding references to the target.
type BlockedDeleteError struct {
	Model     string
	RecordID  string
	BlockedBy []string
}

func (e *BlockedDeleteError) Error() string {
	return fmt.Sprintf("cannot delete %s record %q: referenced by %s",
		e.Model, e.RecordID, strings.Join(e.BlockedBy, ", "))
}

// validateReferences checks every reference field on the model against
// the record: a required field must be non-empty, and a present value
// must resolve to an existing record in the referenced model.
func validateReferences(schema *types.AppSchema, st *store.Store, model string, rec types.Record) error {
	if schema == nil {
		return nil
	}
	entity := schema.Entity(model)
	if entity == nil {
		return nil
	}

	for _, field := range entity.ReferenceFields() {
		raw := rec[field.ID]
		value, _ := raw.(string)

		if value == "" {
			if field.Required {
				return &ValidationError{Model: model, Field: field.ID, Reason: "required reference is empty"}
			}
			continue
		}

		target := field.Reference.Entity
		if len(st.GetRecords(target)) == 0 {
			return &ValidationError{
				Model: model, Field: field.ID,
				Reason: fmt.Sprintf("referenced model %q has no records", target),
			}
		}
		if st.GetRecord(target, value) == nil {
			return &ValidationError{
				Model: model, Field: field.ID,
				Reason: fmt.Sprintf("no %s record with id %q", target, value),
			}
		}
	}
	return nil
}

// referencingModels returns the names of entities holding a reference
// to the given record, blocking its deletion.
func referencingModels(schema *types.AppSchema, st *store.Store, model, recordID string) []string {
	if schema == nil {
		return nil
	}

	var blockers []string
	for _, entity := range schema.Entities {
		if entity.ID == model {
			continue
		}
		for _, field := range entity.ReferenceFields() {
			if field.Reference.Entity != model {
				continue
			}
			for _, rec := range st.GetRecords(entity.ID) {
				if v, _ := rec[field.ID].(string); v == recordID {
					blockers = append(blockers, entity.ID)
					break
				}
			}
		}
	}
	return dedupe(blockers)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
