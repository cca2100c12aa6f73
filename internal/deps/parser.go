package deps

import (
	"fmt"
)

// number is a numeric literal, kept as written
type number string

// call is an unevaluated function call such as From(...) or File(...)
type call struct {
	name string
	args []any
}

// parser evaluates the declarative subset of the pin file: top-level assignments of
// literals (strings, numbers, booleans, None, dicts, lists), string concatenation and Var()
// lookups into the vars dict. Anything else is a syntax error.
type parser struct {
	lex  *lexer
	tok  token
	vars map[string]any
}

func parse(src string) (map[string]any, error) {
	p := &parser{lex: newLexer(src), vars: map[string]any{}}
	if err := p.advance(); err != nil {
		return nil, err
	}

	scope := map[string]any{}
	for p.tok.kind != tokEOF {
		if p.tok.kind != tokIdent {
			return nil, p.errorf("expected an assignment, found %s", p.tok)
		}
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect("="); err != nil {
			return nil, err
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		scope[name] = value

		if name == "vars" {
			dict, ok := value.(map[string]any)
			if !ok {
				return nil, p.errorf("vars must be a dict")
			}
			p.vars = dict
		}
	}
	return scope, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.tok.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) expect(s string) error {
	if !p.isPunct(s) {
		return p.errorf("expected %q, found %s", s, p.tok)
	}
	return p.advance()
}

// expr parses term ('+' term)*
func (p *parser) expr() (any, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		ls, lok := left.(string)
		rs, rok := right.(string)
		if !lok || !rok {
			return nil, p.errorf("'+' is only supported between strings")
		}
		left = ls + rs
	}
	return left, nil
}

func (p *parser) term() (any, error) {
	tok := p.tok
	switch tok.kind {
	case tokString:
		s := tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		// Adjacent literals concatenate.
		for p.tok.kind == tokString {
			s += p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		return s, nil
	case tokNumber:
		return number(tok.text), p.advance()
	case tokIdent:
		return p.name()
	case tokPunct:
		switch tok.text {
		case "{":
			return p.dict()
		case "[":
			return p.list("]")
		case "(":
			if err := p.advance(); err != nil {
				return nil, err
			}
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			if p.isPunct(",") {
				// Tuples are treated as lists.
				items := []any{v}
				if err := p.advance(); err != nil {
					return nil, err
				}
				rest, err := p.items(")")
				if err != nil {
					return nil, err
				}
				return append(items, rest...), nil
			}
			return v, p.expect(")")
		}
	}
	return nil, p.errorf("unexpected %s", tok)
}

func (p *parser) name() (any, error) {
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch name {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	}

	if !p.isPunct("(") {
		return nil, p.errorf("unsupported name %s", name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	args, err := p.items(")")
	if err != nil {
		return nil, err
	}

	switch name {
	case "Var":
		if len(args) != 1 {
			return nil, p.errorf("Var() takes exactly one argument")
		}
		key, ok := args[0].(string)
		if !ok {
			return nil, p.errorf("Var() argument must be a string")
		}
		v, ok := p.vars[key]
		if !ok {
			return nil, p.errorf("undefined variable %q", key)
		}
		return v, nil
	case "Str":
		if len(args) != 1 {
			return nil, p.errorf("Str() takes exactly one argument")
		}
		return args[0], nil
	}
	return call{name: name, args: args}, nil
}

func (p *parser) dict() (map[string]any, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	dict := map[string]any{}
	for !p.isPunct("}") {
		k, err := p.expr()
		if err != nil {
			return nil, err
		}
		key, ok := k.(string)
		if !ok {
			return nil, p.errorf("dict keys must be strings")
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		dict[key] = v

		if !p.isPunct(",") {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return dict, p.expect("}")
}

func (p *parser) list(closing string) ([]any, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.items(closing)
}

// items parses a comma separated, optionally trailing-comma terminated sequence up to closing
func (p *parser) items(closing string) ([]any, error) {
	var items []any
	for !p.isPunct(closing) {
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if !p.isPunct(",") {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return items, p.expect(closing)
}
