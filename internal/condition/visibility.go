package condition

import "sort"

// Component-level visibility and enablement rules. Config values may be
// plain booleans, expression strings, or descriptor maps; anything that
// fails to parse counts as false.

// ShouldShow decides component visibility. A truthy "hide" always wins
// over "show"/"visible"; with nothing specified the component is
// visible.
func (e *Evaluator) ShouldShow(cfg map[string]interface{}, ctx Context) bool {
	if cfg == nil {
		return true
	}

	if hide, ok := cfg["hide"]; ok && e.evalValue(hide, ctx) {
		return false
	}
	if show, ok := cfg["show"]; ok {
		return e.evalValue(show, ctx)
	}
	if visible, ok := cfg["visible"]; ok {
		return e.evalValue(visible, ctx)
	}
	return true
}

// ShouldDisable decides enablement; unspecified means enabled.
func (e *Evaluator) ShouldDisable(cfg map[string]interface{}, ctx Context) bool {
	if cfg == nil {
		return false
	}
	if disabled, ok := cfg["disabled"]; ok {
		return e.evalValue(disabled, ctx)
	}
	return false
}

// IsReadOnly decides editability; unspecified means editable.
func (e *Evaluator) IsReadOnly(cfg map[string]interface{}, ctx Context) bool {
	if cfg == nil {
		return false
	}
	if ro, ok := cfg["readOnly"]; ok {
		return e.evalValue(ro, ctx)
	}
	return false
}

// EvaluateClasses maps class name -> condition into the active list.
// Order follows the map iteration of the caller-supplied names, so the
// result is sorted for determinism.
func (e *Evaluator) EvaluateClasses(classes map[string]interface{}, ctx Context) []string {
	if len(classes) == 0 {
		return nil
	}
	active := make([]string, 0, len(classes))
	for name, cond := range classes {
		if e.evalValue(cond, ctx) {
			active = append(active, name)
		}
	}
	sort.Strings(active)
	return active
}

// StyleRule pairs a condition with the values applied on each branch.
type StyleRule struct {
	Condition interface{} `json:"condition"`
	True      interface{} `json:"true,omitempty"`
	False     interface{} `json:"false,omitempty"`
}

// EvaluateStyles resolves each rule to its branch value, omitting
// entries whose chosen branch is unset.
func (e *Evaluator) EvaluateStyles(styles map[string]StyleRule, ctx Context) map[string]interface{} {
	if len(styles) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(styles))
	for name, rule := range styles {
		var chosen interface{}
		if e.evalValue(rule.Condition, ctx) {
			chosen = rule.True
		} else {
			chosen = rule.False
		}
		if chosen != nil {
			out[name] = chosen
		}
	}
	return out
}

func (e *Evaluator) evalValue(v interface{}, ctx Context) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	d, err := ParseDescriptor(v)
	if err != nil {
		return false
	}
	return e.Evaluate(d, ctx)
}
