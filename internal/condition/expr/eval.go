package expr

import (
	"fmt"
	"strconv"
	"time"
)

// Func is an allow-listed helper callable from expressions.
type Func func(args []interface{}) (interface{}, error)

// Env supplies variables and helpers to an evaluation. Vars holds the
// named roots (data, state, record, formData) plus any directly bound
// identifiers such as current_user or record fields.
type Env struct {
	Vars  map[string]interface{}
	Funcs map[string]Func
}

// NewEnv creates an environment with the standard helper set.
func NewEnv(vars map[string]interface{}) *Env {
	return &Env{Vars: vars, Funcs: BaseFuncs()}
}

// Evaluate parses and evaluates src against env in one step.
func Evaluate(src string, env *Env) (interface{}, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return node.eval(env)
}

// EvaluateBool evaluates src and coerces the result to a boolean.
func EvaluateBool(src string, env *Env) (bool, error) {
	v, err := Evaluate(src, env)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Eval runs a parsed node against env.
func Eval(node Node, env *Env) (interface{}, error) {
	return node.eval(env)
}

func (n *literalNode) eval(*Env) (interface{}, error) {
	return n.value, nil
}

func (n *pathNode) eval(env *Env) (interface{}, error) {
	current, ok := env.Vars[n.segments[0]]
	if !ok {
		return nil, fmt.Errorf("unknown identifier %q", n.segments[0])
	}
	for _, seg := range n.segments[1:] {
		current = Dig(current, seg)
	}
	return current, nil
}

func (n *unaryNode) eval(env *Env) (interface{}, error) {
	v, err := n.operand.eval(env)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		return !Truthy(v), nil
	case "-":
		f, ok := ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("cannot negate %T", v)
		}
		return -f, nil
	}
	return nil, fmt.Errorf("unknown unary operator %q", n.op)
}

func (n *binaryNode) eval(env *Env) (interface{}, error) {
	// short-circuit logical operators
	switch n.op {
	case "&&":
		left, err := n.left.eval(env)
		if err != nil {
			return nil, err
		}
		if !Truthy(left) {
			return false, nil
		}
		right, err := n.right.eval(env)
		if err != nil {
			return nil, err
		}
		return Truthy(right), nil
	case "||":
		left, err := n.left.eval(env)
		if err != nil {
			return nil, err
		}
		if Truthy(left) {
			return true, nil
		}
		right, err := n.right.eval(env)
		if err != nil {
			return nil, err
		}
		return Truthy(right), nil
	}

	left, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(env)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return LooseEqual(left, right), nil
	case "!=":
		return !LooseEqual(left, right), nil
	case "<", "<=", ">", ">=":
		cmp, ok := Compare(left, right)
		if !ok {
			return false, nil
		}
		switch n.op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case "+":
		if lf, ok := ToFloat(left); ok {
			if rf, ok := ToFloat(right); ok {
				return lf + rf, nil
			}
		}
		return Stringify(left) + Stringify(right), nil
	case "-", "*", "/", "%":
		lf, lok := ToFloat(left)
		rf, rok := ToFloat(right)
		if !lok || !rok {
			return nil, fmt.Errorf("non-numeric operand for %q", n.op)
		}
		switch n.op {
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return lf / rf, nil
		default:
			if rf == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return float64(int64(lf) % int64(rf)), nil
		}
	}
	return nil, fmt.Errorf("unknown operator %q", n.op)
}

func (n *callNode) eval(env *Env) (interface{}, error) {
	fn, ok := env.Funcs[n.name]
	if !ok {
		return nil, fmt.Errorf("unknown helper %q", n.name)
	}
	args := make([]interface{}, len(n.args))
	for i, argNode := range n.args {
		v, err := argNode.eval(env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(args)
}

// BaseFuncs returns the fixed helper allow-list: count, isEmpty,
// isNotEmpty, includes, today, now.
func BaseFuncs() map[string]Func {
	return map[string]Func{
		"count": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("count takes 1 argument")
			}
			return float64(Count(args[0])), nil
		},
		"isEmpty": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("isEmpty takes 1 argument")
			}
			return IsEmptyValue(args[0]), nil
		},
		"isNotEmpty": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("isNotEmpty takes 1 argument")
			}
			return !IsEmptyValue(args[0]), nil
		},
		"includes": func(args []interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("includes takes 2 arguments")
			}
			return Includes(args[0], args[1]), nil
		},
		"today": func(args []interface{}) (interface{}, error) {
			y, m, d := time.Now().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
		},
		"now": func(args []interface{}) (interface{}, error) {
			return time.Now(), nil
		},
	}
}

func parseNumber(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}
