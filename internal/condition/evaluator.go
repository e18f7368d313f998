package condition

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/appforge/runtime/internal/condition/expr"
	"github.com/appforge/runtime/internal/logging"
	"github.com/appforge/runtime/internal/types"
)

// Descriptor is a declarative, serializable boolean test. Type selects
// the variant: "simple" (field/operator/value), "expression" (free-form
// text run through the restricted interpreter), or "composite"
// (children joined with and/or).
type Descriptor struct {
	Type       string       `json:"type"`
	Field      string       `json:"field,omitempty"`
	Operator   string       `json:"operator,omitempty"`
	Value      interface{}  `json:"value,omitempty"`
	Expression string       `json:"expression,omitempty"`
	Logic      string       `json:"logic,omitempty"` // "and" (default) or "or"
	Conditions []Descriptor `json:"conditions,omitempty"`
}

// Context is the evaluation input: a data snapshot, ephemeral UI state,
// and the optional current record/index/form data.
type Context struct {
	Data     map[string]interface{} `json:"data,omitempty"`
	State    map[string]interface{} `json:"state,omitempty"`
	Record   types.Record           `json:"record,omitempty"`
	Index    int                    `json:"index,omitempty"`
	FormData map[string]interface{} `json:"formData,omitempty"`
}

// Simple-condition operators.
const (
	OpEquals         = "equals"
	OpNotEquals      = "notEquals"
	OpContains       = "contains"
	OpNotContains    = "notContains"
	OpStartsWith     = "startsWith"
	OpEndsWith       = "endsWith"
	OpGreaterThan    = "greaterThan"
	OpGreaterOrEqual = "greaterOrEqual"
	OpLessThan       = "lessThan"
	OpLessOrEqual    = "lessOrEqual"
	OpIsEmpty        = "isEmpty"
	OpIsNotEmpty     = "isNotEmpty"
	OpIsTrue         = "isTrue"
	OpIsFalse        = "isFalse"
	OpIn             = "in"
	OpNotIn          = "notIn"
	OpMatches        = "matches"
	OpExists         = "exists"
)

// Evaluator evaluates descriptors against contexts. Every failure --
// unparseable expression, bad regex, unknown operator -- downgrades to
// false, so visibility decisions fail closed.
type Evaluator struct {
	cache *exprCache
	log   *logging.Logger
}

// New creates an evaluator whose expression results are cached for ttl.
func New(log *logging.Logger, ttl time.Duration) *Evaluator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Evaluator{
		cache: newExprCache(ttl),
		log:   log.Component("condition"),
	}
}

// Evaluate resolves a descriptor to a boolean.
func (e *Evaluator) Evaluate(d Descriptor, ctx Context) bool {
	switch d.Type {
	case "", "simple":
		return e.evaluateSimple(d, ctx)
	case "expression":
		return e.EvaluateExpression(d.Expression, ctx)
	case "composite":
		return e.evaluateComposite(d, ctx)
	default:
		e.log.Debug("unknown descriptor type", zap.String("type", d.Type))
		return false
	}
}

func (e *Evaluator) evaluateComposite(d Descriptor, ctx Context) bool {
	if len(d.Conditions) == 0 {
		return false
	}
	if strings.EqualFold(d.Logic, "or") {
		for _, child := range d.Conditions {
			if e.Evaluate(child, ctx) {
				return true
			}
		}
		return false
	}
	for _, child := range d.Conditions {
		if !e.Evaluate(child, ctx) {
			return false
		}
	}
	return true
}

func (e *Evaluator) evaluateSimple(d Descriptor, ctx Context) bool {
	value, found := resolvePath(d.Field, ctx)

	switch d.Operator {
	case OpEquals, "":
		return expr.LooseEqual(value, d.Value)
	case OpNotEquals:
		return !expr.LooseEqual(value, d.Value)
	case OpContains:
		return strings.Contains(expr.Stringify(value), expr.Stringify(d.Value))
	case OpNotContains:
		return !strings.Contains(expr.Stringify(value), expr.Stringify(d.Value))
	case OpStartsWith:
		return strings.HasPrefix(expr.Stringify(value), expr.Stringify(d.Value))
	case OpEndsWith:
		return strings.HasSuffix(expr.Stringify(value), expr.Stringify(d.Value))
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		cmp, ok := expr.Compare(value, d.Value)
		if !ok {
			return false
		}
		switch d.Operator {
		case OpGreaterThan:
			return cmp > 0
		case OpGreaterOrEqual:
			return cmp >= 0
		case OpLessThan:
			return cmp < 0
		default:
			return cmp <= 0
		}
	case OpIsEmpty:
		return expr.IsEmptyValue(value)
	case OpIsNotEmpty:
		return !expr.IsEmptyValue(value)
	case OpIsTrue:
		return expr.Truthy(value)
	case OpIsFalse:
		return !expr.Truthy(value)
	case OpIn:
		return expr.Includes(d.Value, value)
	case OpNotIn:
		return !expr.Includes(d.Value, value)
	case OpMatches:
		re, err := regexp.Compile(expr.Stringify(d.Value))
		if err != nil {
			e.log.Debug("bad regex", zap.String("pattern", expr.Stringify(d.Value)), zap.Error(err))
			return false
		}
		return re.MatchString(expr.Stringify(value))
	case OpExists:
		return found && value != nil
	default:
		e.log.Debug("unknown operator", zap.String("operator", d.Operator))
		return false
	}
}

// EvaluateExpression runs free-form condition text through the
// restricted interpreter, caching by (expression, serialized context).
func (e *Evaluator) EvaluateExpression(src string, ctx Context) bool {
	if src == "" {
		return false
	}

	key, cacheable := e.cache.key(src, ctx)
	if cacheable {
		if result, ok := e.cache.get(key); ok {
			return result
		}
	}

	result, err := expr.EvaluateBool(src, buildEnv(ctx))
	if err != nil {
		e.log.Debug("expression failed", zap.String("expression", src), zap.Error(err))
		result = false
	}

	if cacheable {
		e.cache.put(key, result)
	}
	return result
}

// buildEnv exposes the named roots, then every context key as a bare
// identifier with the same precedence resolveBare uses: record wins
// over formData over state over data, and the root names themselves
// always win.
func buildEnv(ctx Context) *expr.Env {
	vars := make(map[string]interface{})
	for _, root := range []map[string]interface{}{ctx.Data, ctx.State, ctx.FormData} {
		for k, v := range root {
			vars[k] = v
		}
	}
	for k, v := range ctx.Record {
		vars[k] = v
	}
	vars["data"] = ctx.Data
	vars["state"] = ctx.State
	vars["record"] = ctx.Record
	vars["formData"] = ctx.FormData
	vars["index"] = ctx.Index
	return expr.NewEnv(vars)
}

// Resolve resolves a dotted field path against a context, for callers
// that need the raw value rather than a boolean.
func Resolve(path string, ctx Context) (interface{}, bool) {
	return resolvePath(path, ctx)
}

// resolvePath resolves a dotted field path. The first segment may name
// a root (data, state, record, formData); bare paths resolve against
// the current record, then form data, then state, then data.
func resolvePath(path string, ctx Context) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")

	var current interface{}
	switch segments[0] {
	case "data":
		current = ctx.Data
	case "state":
		current = ctx.State
	case "record":
		current = ctx.Record
	case "formData":
		current = ctx.FormData
	default:
		return resolveBare(segments, ctx)
	}

	for _, seg := range segments[1:] {
		current = expr.Dig(current, seg)
	}
	return current, true
}

func resolveBare(segments []string, ctx Context) (interface{}, bool) {
	for _, root := range []interface{}{ctx.Record, ctx.FormData, ctx.State, ctx.Data} {
		if root == nil {
			continue
		}
		if first := expr.Dig(root, segments[0]); first != nil {
			current := first
			for _, seg := range segments[1:] {
				current = expr.Dig(current, seg)
			}
			return current, true
		}
	}
	return nil, false
}

// ParseDescriptor converts a loosely-typed value (bool, expression
// string, or descriptor map) into a Descriptor.
func ParseDescriptor(v interface{}) (Descriptor, error) {
	switch t := v.(type) {
	case Descriptor:
		return t, nil
	case *Descriptor:
		return *t, nil
	case bool:
		// constant conditions become trivially true/false expressions
		if t {
			return Descriptor{Type: "expression", Expression: "true"}, nil
		}
		return Descriptor{Type: "expression", Expression: "false"}, nil
	case string:
		return Descriptor{Type: "expression", Expression: t}, nil
	case map[string]interface{}:
		return descriptorFromMap(t), nil
	default:
		return Descriptor{}, fmt.Errorf("cannot interpret %T as a condition", v)
	}
}

func descriptorFromMap(m map[string]interface{}) Descriptor {
	d := Descriptor{}
	d.Type, _ = m["type"].(string)
	d.Field, _ = m["field"].(string)
	d.Operator, _ = m["operator"].(string)
	d.Value = m["value"]
	d.Expression, _ = m["expression"].(string)
	d.Logic, _ = m["logic"].(string)

	if children, ok := m["conditions"].([]interface{}); ok {
		for _, child := range children {
			if cm, ok := child.(map[string]interface{}); ok {
				d.Conditions = append(d.Conditions, descriptorFromMap(cm))
			}
		}
	}

	if d.Type == "" {
		switch {
		case len(d.Conditions) > 0:
			d.Type = "composite"
		case d.Expression != "":
			d.Type = "expression"
		default:
			d.Type = "simple"
		}
	}
	return d
}
