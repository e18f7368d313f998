package expr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appforge/runtime/internal/types"
)

// Loose value semantics shared by the evaluator and its consumers; the
// condition and permission layers compare schema-fed values that may
// arrive as strings, JSON numbers, or native Go types.

// ToFloat coerces numeric-looking values to float64.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Stringify renders a value for string operators; nil becomes "".
func Stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Truthy applies loose truthiness: false, nil, 0, "", "false", and "0"
// are false; everything else is true.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		lower := strings.ToLower(strings.TrimSpace(t))
		return lower != "" && lower != "false" && lower != "0"
	default:
		if f, ok := ToFloat(v); ok {
			return f != 0
		}
		return true
	}
}

// IsEmptyValue reports whether a value counts as empty: nil, "",
// empty slices, and empty maps.
func IsEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case []types.Record:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	case types.Record:
		return len(t) == 0
	default:
		return false
	}
}

// LooseEqual compares two values numerically when both coerce to
// numbers, by string rendering otherwise.
func LooseEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if af, aok := ToFloat(a); aok {
		if bf, bok := ToFloat(b); bok {
			return af == bf
		}
	}
	return Stringify(a) == Stringify(b)
}

// Compare orders two values: times by instant, numbers numerically,
// anything else lexically. Reports false when a is nil or b is nil.
func Compare(a, b interface{}) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if af, aok := ToFloat(a); aok {
		if bf, bok := ToFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return strings.Compare(Stringify(a), Stringify(b)), true
}

// Count returns the element count of collections, the length of
// strings, and 0/1 for nil/scalars.
func Count(v interface{}) int {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return len(t)
	case []interface{}:
		return len(t)
	case []string:
		return len(t)
	case []types.Record:
		return len(t)
	case map[string]interface{}:
		return len(t)
	case types.Record:
		return len(t)
	default:
		return 1
	}
}

// Includes reports whether a collection contains the value, or a
// string contains the substring.
func Includes(coll, value interface{}) bool {
	switch t := coll.(type) {
	case string:
		return strings.Contains(t, Stringify(value))
	case []interface{}:
		for _, item := range t {
			if LooseEqual(item, value) {
				return true
			}
		}
	case []string:
		for _, item := range t {
			if LooseEqual(item, value) {
				return true
			}
		}
	}
	return false
}

// Dig descends one map segment; nil when the path cannot resolve.
func Dig(v interface{}, key string) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return t[key]
	case types.Record:
		return t[key]
	default:
		return nil
	}
}
