package querylang

import (
	"github.com/loglens/loglens/internal/pkg/syntax"
)

// Parser parses query expressions into an AST.
type Parser struct {
	lexer   *Lexer
	current Token
}

// Parse parses the input string and returns the AST root node. The
// whole input must form a single expression; leading and trailing
// whitespace is ignored. Whitespace-only input is rejected with
// syntax.ErrEmptyInput.
func Parse(input string) (Expr, error) {
	p := &Parser{lexer: NewLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.current.Type == TokenEOF {
		return nil, syntax.ErrEmptyInput
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, &syntax.ParseError{Pos: p.current.Pos, Expected: "'&', '|' or end of input"}
	}
	return expr, nil
}

func (p *Parser) advance() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

// parseExpr handles the operator chain. AND and OR share a single
// precedence level and fold left to right, so "a | b & c" groups as
// "(a | b) & c". This mirrors the grammar, which has one expression
// rule rather than the usual AND-over-OR ladder.
func (p *Parser) parseExpr() (Expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenAnd || p.current.Type == TokenOr {
		op := "AND"
		if p.current.Type == TokenOr {
			op = "OR"
		}
		if err := p.advance(); err != nil {
			return nil, err
		}

		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parseAtom handles NOT? EXACT? (STRING | "(" expr ")"). The prefixes
// bind to the immediately following term or group only.
func (p *Parser) parseAtom() (Expr, error) {
	var negated, exact bool

	if p.current.Type == TokenNot {
		negated = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.current.Type == TokenExact {
		exact = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	switch p.current.Type {
	case TokenString:
		t := Term{Value: p.current.Value, Negated: negated, Exact: exact}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return t, nil

	case TokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenRParen {
			return nil, &syntax.ParseError{Pos: p.current.Pos, Expected: "')'"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if exact {
			expr = ExactExpr{Expr: expr}
		}
		if negated {
			expr = NotExpr{Expr: expr}
		}
		return expr, nil

	default:
		return nil, &syntax.ParseError{Pos: p.current.Pos, Expected: "STRING or '('"}
	}
}
