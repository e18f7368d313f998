package flow

import (
	"context"
	"fmt"

	"github.com/appforge/runtime/internal/condition"
	"github.com/appforge/runtime/internal/types"
)

func (e *Engine) registerBuiltins() {
	e.Register(types.ActionCreateRecord, createRecord)
	e.Register(types.ActionUpdateRecord, updateRecord)
	e.Register(types.ActionDeleteRecord, deleteRecord)
	e.Register(types.ActionCondition, conditionBranch)
	e.Register(types.ActionLoop, loop)
	e.Register(types.ActionNavigate, command("command:navigate"))
	e.Register(types.ActionShowNotification, command("command:notification"))
	e.Register(types.ActionRefreshData, command("command:refresh"))
}

// createRecord merges static action data under trigger-derived form
// data (trigger wins on key conflicts), validates references, and
// creates the record.
func createRecord(ctx context.Context, exec *Execution, action types.Action) (map[string]interface{}, error) {
	model := configString(action.Config, "model", "entity")
	if model == "" {
		return nil, fmt.Errorf("create_record: missing model")
	}

	merged := types.Record{}
	if static, ok := action.Config["data"].(map[string]interface{}); ok {
		for k, v := range static {
			merged[k] = v
		}
	}
	for k, v := range formData(exec.Trigger) {
		merged[k] = v
	}

	if err := validateReferences(exec.Engine.schema, exec.Engine.store, model, merged); err != nil {
		return nil, err
	}

	rec := exec.Engine.store.CreateRecord(model, merged)
	return map[string]interface{}{"model": model, "recordId": rec.ID(), "record": rec}, nil
}

// updateRecord validates the merged view of existing + proposed
// updates, then commits only the explicit updates.
func updateRecord(ctx context.Context, exec *Execution, action types.Action) (map[string]interface{}, error) {
	model := configString(action.Config, "model", "entity")
	if model == "" {
		return nil, fmt.Errorf("update_record: missing model")
	}
	recordID := resolveRecordID(exec, action)
	if recordID == "" {
		return nil, fmt.Errorf("update_record: missing record id")
	}

	existing := exec.Engine.store.GetRecord(model, recordID)
	if existing == nil {
		return nil, fmt.Errorf("update_record: %s record %q not found", model, recordID)
	}

	updates := map[string]interface{}{}
	if static, ok := action.Config["data"].(map[string]interface{}); ok {
		for k, v := range static {
			updates[k] = v
		}
	}
	for k, v := range formData(exec.Trigger) {
		if k == "recordId" || k == types.KeyID {
			continue
		}
		updates[k] = v
	}

	// merged view only feeds validation; the commit applies just the
	// explicit updates
	merged := existing.Clone()
	for k, v := range updates {
		merged[k] = v
	}
	if err := validateReferences(exec.Engine.schema, exec.Engine.store, model, merged); err != nil {
		return nil, err
	}

	rec := exec.Engine.store.UpdateRecord(model, recordID, updates)
	return map[string]interface{}{"model": model, "recordId": recordID, "record": rec}, nil
}

// deleteRecord refuses deletion while any record elsewhere references
// the target id, naming the blocking model(s).
func deleteRecord(ctx context.Context, exec *Execution, action types.Action) (map[string]interface{}, error) {
	model := configString(action.Config, "model", "entity")
	if model == "" {
		return nil, fmt.Errorf("delete_record: missing model")
	}
	recordID := resolveRecordID(exec, action)
	if recordID == "" {
		return nil, fmt.Errorf("delete_record: missing record id")
	}

	if blockers := referencingModels(exec.Engine.schema, exec.Engine.store, model, recordID); len(blockers) > 0 {
		return nil, &BlockedDeleteError{Model: model, RecordID: recordID, BlockedBy: blockers}
	}

	if !exec.Engine.store.DeleteRecord(model, recordID) {
		return nil, fmt.Errorf("delete_record: %s record %q not found", model, recordID)
	}
	return map[string]interface{}{"model": model, "recordId": recordID, "deleted": true}, nil
}

// conditionBranch evaluates the configured condition and runs the
// then or else branch.
func conditionBranch(ctx context.Context, exec *Execution, action types.Action) (map[string]interface{}, error) {
	matched := false
	if raw, ok := action.Config["condition"]; ok {
		d, err := condition.ParseDescriptor(raw)
		if err != nil {
			return nil, fmt.Errorf("condition: %w", err)
		}
		matched = exec.Engine.eval.Evaluate(d, exec.conditionContext(nil))
	}

	branch := action.Else
	if matched {
		branch = action.Then
	}
	results, err := exec.Engine.runActions(ctx, exec, branch)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"matched": matched, "actions": len(results)}, nil
}

// loop resolves the configured collection and runs the item actions
// once per element, binding item and index into the trigger scope.
func loop(ctx context.Context, exec *Execution, action types.Action) (map[string]interface{}, error) {
	items, err := exec.resolveItems(action.Config["items"])
	if err != nil {
		return nil, err
	}

	total := 0
	for i, item := range items {
		scoped := make(map[string]interface{}, len(exec.Trigger)+2)
		for k, v := range exec.Trigger {
			scoped[k] = v
		}
		scoped["item"] = item
		scoped["index"] = i

		inner := &Execution{Engine: exec.Engine, FlowID: exec.FlowID, Trigger: scoped}
		results, err := exec.Engine.runActions(ctx, inner, action.Each)
		if err != nil {
			return nil, fmt.Errorf("loop iteration %d: %w", i, err)
		}
		total += len(results)
	}
	return map[string]interface{}{"iterations": len(items), "actions": total}, nil
}

// command emits an action's config as a host command on the bus; the
// engine renders nothing itself.
func command(eventType string) Handler {
	return func(ctx context.Context, exec *Execution, action types.Action) (map[string]interface{}, error) {
		data := make(map[string]interface{}, len(action.Config)+1)
		for k, v := range action.Config {
			data[k] = v
		}
		data["flowId"] = exec.FlowID
		if exec.Engine.bus != nil {
			exec.Engine.bus.Emit(eventType, data, "flow-engine")
		}
		return map[string]interface{}{"command": eventType}, nil
	}
}

// conditionContext builds the evaluation context for branch and loop
// decisions: the store snapshot as data, the trigger form as formData.
func (exec *Execution) conditionContext(record types.Record) condition.Context {
	data := make(map[string]interface{})
	for _, model := range exec.Engine.store.Models() {
		data[model] = recordsAsInterface(exec.Engine.store.GetRecords(model))
	}
	return condition.Context{
		Data:     data,
		Record:   record,
		FormData: formData(exec.Trigger),
	}
}

func (exec *Execution) resolveItems(raw interface{}) ([]interface{}, error) {
	switch v := raw.(type) {
	case []interface{}:
		return v, nil
	case string:
		// a path such as "data.tasks" or a model name
		if recs := exec.Engine.store.GetRecords(v); len(recs) > 0 {
			return recordsAsInterface(recs), nil
		}
		d := exec.conditionContext(nil)
		env := condition.Context{Data: d.Data, FormData: d.FormData}
		if resolved, ok := condition.Resolve(v, env); ok {
			if list, ok := resolved.([]interface{}); ok {
				return list, nil
			}
		}
		return nil, fmt.Errorf("loop: %q did not resolve to a collection", v)
	case nil:
		return nil, fmt.Errorf("loop: missing items")
	default:
		return nil, fmt.Errorf("loop: unsupported items type %T", raw)
	}
}

func resolveRecordID(exec *Execution, action types.Action) string {
	if id := configString(action.Config, "recordId", "record_id", "id"); id != "" {
		return id
	}
	if exec.Trigger != nil {
		if id, ok := exec.Trigger["recordId"].(string); ok {
			return id
		}
		if id, ok := formData(exec.Trigger)["recordId"].(string); ok {
			return id
		}
	}
	return ""
}

func recordsAsInterface(recs []types.Record) []interface{} {
	out := make([]interface{}, len(recs))
	for i, r := range recs {
		out[i] = map[string]interface{}(r)
	}
	return out
}
