package logalang

import (
	"fmt"
	"strings"

	"github.com/loglens/loglens/internal/pkg/syntax"
)

// Parser parses filter lines into an AST.
type Parser struct {
	lexer   *Lexer
	current Token
}

// Parse parses a single filter line of the form
//
//	column_name = expr
//
// where expr combines quoted string literals with !, && and || and
// parenthesized groups. Whitespace-only input is rejected with
// syntax.ErrEmptyInput.
func Parse(input string) (Filter, error) {
	p := &Parser{lexer: NewLexer(input)}
	if err := p.advance(); err != nil {
		return Filter{}, err
	}
	if p.current.Type == TokenEOF {
		return Filter{}, syntax.ErrEmptyInput
	}

	if p.current.Type != TokenIdent {
		return Filter{}, &syntax.ParseError{Pos: p.current.Pos, Expected: "column name"}
	}
	column := p.current.Value
	if err := p.advance(); err != nil {
		return Filter{}, err
	}

	if p.current.Type != TokenEquals {
		return Filter{}, &syntax.ParseError{Pos: p.current.Pos, Expected: "'=' after column name"}
	}
	if err := p.advance(); err != nil {
		return Filter{}, err
	}

	expr, err := p.parseExpr()
	if err != nil {
		return Filter{}, err
	}
	if p.current.Type != TokenEOF {
		return Filter{}, &syntax.ParseError{Pos: p.current.Pos, Expected: "'&&', '||' or end of input"}
	}

	return Filter{Column: column, Expr: expr}, nil
}

// ParseRules parses a multi-line filter block, one filter per line.
// Blank lines are skipped. Matching rows must satisfy every returned
// filter.
func ParseRules(input string) ([]Filter, error) {
	var filters []Filter
	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		f, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("filter line %d: %w", i+1, err)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func (p *Parser) advance() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

// parseExpr handles term ((&&|'||') term)*. As in the query language
// there is a single precedence level: the chain folds left to right,
// so a || b && c groups as (a || b) && c.
func (p *Parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
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

		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parseTerm handles !? (string | "(" expr ")").
func (p *Parser) parseTerm() (Expr, error) {
	if p.current.Type == TokenNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return NotExpr{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.current.Type {
	case TokenString:
		s := Str{Value: p.current.Value}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return s, nil

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
		return expr, nil

	default:
		return nil, &syntax.ParseError{Pos: p.current.Pos, Expected: "string or '('"}
	}
}
