// Package reader implements TinyLisp's recursive-descent reader: tokens to
// the homoiconic AST (int | string | symbol | list), per spec section 4.1.
// Grounded on original_source/vm.py's parse_sexprs (authoritative shape).
package reader

import (
	"fmt"

	"github.com/jcorbin/tinylisp/internal/langerr"
	"github.com/jcorbin/tinylisp/internal/lexer"
	"github.com/jcorbin/tinylisp/internal/value"
)

// Read tokenizes and parses src into a list of top-level forms.
func Read(src string) ([]value.Value, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return ReadTokens(toks)
}

// ReadTokens parses a pre-tokenized stream (as produced by lexer.Tokenize,
// including its trailing EOF token) into a list of top-level forms.
func ReadTokens(toks []lexer.Token) ([]value.Value, error) {
	p := &parser{toks: toks}
	var forms []value.Value
	for p.peek().Kind != lexer.EOF {
		form, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

type parser struct {
	toks []lexer.Token
	pos  int
}

func (p *parser) peek() lexer.Token { return p.toks[p.pos] }

func (p *parser) eat() lexer.Token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) parseOne() (value.Value, error) {
	t := p.peek()
	switch t.Kind {
	case lexer.INT:
		p.eat()
		return value.Int(t.Int), nil
	case lexer.STR:
		p.eat()
		return value.Str(t.Str), nil
	case lexer.SYM:
		p.eat()
		return value.Sym(t.Str), nil
	case lexer.LPAREN:
		p.eat()
		var elems []value.Value
		for p.peek().Kind != lexer.RPAREN {
			if p.peek().Kind == lexer.EOF {
				return value.Value{}, langerr.SyntaxError{Msg: "Unclosed '('"}
			}
			elem, err := p.parseOne()
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, elem)
		}
		p.eat() // RPAREN
		return value.List(elems...), nil
	default:
		return value.Value{}, langerr.SyntaxError{Msg: fmt.Sprintf("Bad token: %v", t)}
	}
}
