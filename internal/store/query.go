package store

import (
	"sort"
	"strings"
	"time"

	"github.com/appforge/runtime/internal/types"
)

// Query describes a filtered, sorted, paginated read. Filter maps field
// names to either a bare value (equality) or an operator document such
// as {"$in": [...]}. Limit 0 means "no limit".
type Query struct {
	Filter map[string]interface{} `json:"filter,omitempty"`
	Sort   string                 `json:"sort,omitempty"`
	Order  string                 `json:"order,omitempty"` // "asc" (default) or "desc"
	Offset int                    `json:"offset,omitempty"`
	Limit  int                    `json:"limit,omitempty"`
}

// Filter operators.
const (
	OpEq         = "$eq"
	OpNe         = "$ne"
	OpGt         = "$gt"
	OpGte        = "$gte"
	OpLt         = "$lt"
	OpLte        = "$lte"
	OpIn         = "$in"
	OpNin        = "$nin"
	OpContains   = "$contains"
	OpStartsWith = "$startsWith"
	OpEndsWith   = "$endsWith"
)

// Query returns the model's records matching q.
func (s *Store) Query(model string, q Query) []types.Record {
	records := s.GetRecords(model)

	if len(q.Filter) > 0 {
		filtered := records[:0:0]
		for _, rec := range records {
			if matchesFilter(rec, q.Filter) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	if q.Sort != "" {
		sortRecords(records, q.Sort, strings.EqualFold(q.Order, "desc"))
	}

	if q.Offset > 0 {
		if q.Offset >= len(records) {
			return []types.Record{}
		}
		records = records[q.Offset:]
	}
	if q.Limit > 0 && len(records) > q.Limit {
		records = records[:q.Limit]
	}

	return records
}

func matchesFilter(rec types.Record, filter map[string]interface{}) bool {
	for field, cond := range filter {
		value := rec[field]

		ops, isDoc := cond.(map[string]interface{})
		if !isDoc {
			if !matchOp(OpEq, value, cond) {
				return false
			}
			continue
		}
		for op, operand := range ops {
			if !matchOp(op, value, operand) {
				return false
			}
		}
	}
	return true
}

func matchOp(op string, value, operand interface{}) bool {
	switch op {
	case OpEq:
		return looseEqual(value, operand)
	case OpNe:
		return !looseEqual(value, operand)
	case OpGt, OpGte, OpLt, OpLte:
		// null never satisfies a range, mirroring nulls-last sorting
		if value == nil || operand == nil {
			return false
		}
		cmp, ok := compareValues(value, operand)
		if !ok {
			return false
		}
		switch op {
		case OpGt:
			return cmp > 0
		case OpGte:
			return cmp >= 0
		case OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	case OpIn:
		return containsValue(operand, value)
	case OpNin:
		return !containsValue(operand, value)
	case OpContains:
		return strings.Contains(stringify(value), stringify(operand))
	case OpStartsWith:
		return strings.HasPrefix(stringify(value), stringify(operand))
	case OpEndsWith:
		return strings.HasSuffix(stringify(value), stringify(operand))
	default:
		return false
	}
}

// sortRecords orders records by one field; null/undefined values sort
// last regardless of direction.
func sortRecords(records []types.Record, field string, desc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a, aok := records[i][field]
		b, bok := records[j][field]
		aNull := !aok || a == nil
		bNull := !bok || b == nil

		if aNull || bNull {
			return !aNull && bNull
		}

		cmp, ok := compareValues(a, b)
		if !ok {
			return false
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// compareValues orders two loosely-typed values: numerically when both
// coerce to numbers, by time for time.Time pairs, lexically otherwise.
func compareValues(a, b interface{}) (int, bool) {
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

	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
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

	as, bs := stringify(a), stringify(b)
	return strings.Compare(as, bs), true
}

func looseEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return stringify(a) == stringify(b)
}

func containsValue(coll, value interface{}) bool {
	switch items := coll.(type) {
	case []interface{}:
		for _, item := range items {
			if looseEqual(item, value) {
				return true
			}
		}
	case []string:
		for _, item := range items {
			if looseEqual(item, value) {
				return true
			}
		}
	}
	return false
}
