package expr

import "fmt"

// Node is one AST node of a parsed expression. The grammar is
// deliberately restricted: literals, dotted path lookups, comparison /
// logical / arithmetic operators, and calls to an allow-listed helper
// set. There is no assignment, indexing, or arbitrary code execution.
type Node interface {
	eval(env *Env) (interface{}, error)
}

type literalNode struct {
	value interface{}
}

type pathNode struct {
	segments []string
}

type unaryNode struct {
	op      string
	operand Node
}

type binaryNode struct {
	op          string
	left, right Node
}

type callNode struct {
	name string
	args []Node
}

type parser struct {
	tokens []token
	pos    int
}

// Parse compiles the expression text into an AST.
func Parse(src string) (Node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at %d", p.peek().text, p.peek().pos)
	}
	return node, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.next()
			return op, true
		}
	}
	return "", false
}

func (p *parser) acceptKeyword(words ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokIdent {
		return "", false
	}
	for _, w := range words {
		if t.text == w {
			p.next()
			return w, true
		}
	}
	return "", false
}

func (p *parser) expectPunct(text string) error {
	t := p.peek()
	if t.kind != tokPunct || t.text != text {
		return fmt.Errorf("expected %q at %d, got %q", text, t.pos, t.text)
	}
	p.next()
	return nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("||"); !ok {
			if _, ok := p.acceptKeyword("or"); !ok {
				return left, nil
			}
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "||", left: left, right: right}
	}
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("&&"); !ok {
			if _, ok := p.acceptKeyword("and"); !ok {
				return left, nil
			}
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "&&", left: left, right: right}
	}
}

func (p *parser) parseNot() (Node, error) {
	if _, ok := p.acceptOp("!"); ok {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "!", operand: operand}, nil
	}
	if _, ok := p.acceptKeyword("not"); ok {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "!", operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := p.acceptOp("==", "!=", "<=", ">=", "<", ">"); ok {
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: op, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if op, ok := p.acceptOp("-"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		f, err := parseNumber(t.text)
		if err != nil {
			return nil, err
		}
		return &literalNode{value: f}, nil

	case tokString:
		p.next()
		return &literalNode{value: t.text}, nil

	case tokIdent:
		switch t.text {
		case "true":
			p.next()
			return &literalNode{value: true}, nil
		case "false":
			p.next()
			return &literalNode{value: false}, nil
		case "null", "undefined":
			p.next()
			return &literalNode{value: nil}, nil
		}
		return p.parsePathOrCall()

	case tokPunct:
		if t.text == "(" {
			p.next()
			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	}
	return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
}

func (p *parser) parsePathOrCall() (Node, error) {
	name := p.next().text

	// call: ident(...)
	if p.peek().kind == tokPunct && p.peek().text == "(" {
		p.next()
		var args []Node
		if !(p.peek().kind == tokPunct && p.peek().text == ")") {
			for {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().kind == tokPunct && p.peek().text == "," {
					p.next()
					continue
				}
				break
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &callNode{name: name, args: args}, nil
	}

	// dotted path: ident(.ident)*
	segments := []string{name}
	for p.peek().kind == tokPunct && p.peek().text == "." {
		p.next()
		seg := p.peek()
		if seg.kind != tokIdent {
			return nil, fmt.Errorf("expected field name at %d", seg.pos)
		}
		p.next()
		segments = append(segments, seg.text)
	}
	return &pathNode{segments: segments}, nil
}
