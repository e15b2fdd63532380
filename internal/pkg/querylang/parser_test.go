package querylang

import (
	"errors"
	"reflect"
	"testing"

	"github.com/loglens/loglens/internal/pkg/syntax"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{"foo", []TokenType{TokenString, TokenEOF}},
		{"foo & bar", []TokenType{TokenString, TokenAnd, TokenString, TokenEOF}},
		{"foo | bar", []TokenType{TokenString, TokenOr, TokenString, TokenEOF}},
		{"!@foo", []TokenType{TokenNot, TokenExact, TokenString, TokenEOF}},
		{"(a)", []TokenType{TokenLParen, TokenString, TokenRParen, TokenEOF}},
		{`foo\|bar`, []TokenType{TokenString, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			for i, expected := range tt.expected {
				tok, err := lexer.NextToken()
				if err != nil {
					t.Fatalf("token %d: unexpected error: %v", i, err)
				}
				if tok.Type != expected {
					t.Errorf("token %d: expected %v, got %v (%q)", i, expected, tok.Type, tok.Value)
				}
			}
		})
	}
}

func TestLexerMultiWordPhrase(t *testing.T) {
	lexer := NewLexer("connection  timed out & retry")

	tok, err := lexer.NextToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Type != TokenString || tok.Value != "connection timed out" {
		t.Errorf("expected single phrase token, got %v %q", tok.Type, tok.Value)
	}

	tok, err = lexer.NextToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Type != TokenAnd {
		t.Errorf("expected '&' after phrase, got %v %q", tok.Type, tok.Value)
	}
}

func TestParseTerm(t *testing.T) {
	tests := []struct {
		input    string
		expected Term
	}{
		{"foo", Term{Value: "foo"}},
		{"!foo", Term{Value: "foo", Negated: true}},
		{"@foo", Term{Value: "foo", Exact: true}},
		{"!@foo", Term{Value: "foo", Negated: true, Exact: true}},
		{`foo\|bar`, Term{Value: "foo|bar"}},
		{`foo\\bar`, Term{Value: `foo\bar`}},
		{`\(foo\)`, Term{Value: "(foo)"}},
		{"some longer phrase", Term{Value: "some longer phrase"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			term, ok := node.(Term)
			if !ok {
				t.Fatalf("expected Term, got %T", node)
			}
			if term != tt.expected {
				t.Errorf("got %+v, want %+v", term, tt.expected)
			}
		})
	}
}

// The language has a single precedence level: AND does not bind tighter
// than OR, the chain simply folds left to right.
func TestParseLeftAssociativeFold(t *testing.T) {
	node, err := Parse("a | b & c")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	and, ok := node.(BinaryExpr)
	if !ok || and.Op != "AND" {
		t.Fatalf("expected AND at root, got %+v", node)
	}

	or, ok := and.Left.(BinaryExpr)
	if !ok || or.Op != "OR" {
		t.Fatalf("expected OR on the left, got %+v", and.Left)
	}

	if l, ok := or.Left.(Term); !ok || l.Value != "a" {
		t.Errorf("expected term a, got %+v", or.Left)
	}
	if r, ok := or.Right.(Term); !ok || r.Value != "b" {
		t.Errorf("expected term b, got %+v", or.Right)
	}
	if r, ok := and.Right.(Term); !ok || r.Value != "c" {
		t.Errorf("expected term c, got %+v", and.Right)
	}
}

func TestParseParentheses(t *testing.T) {
	node, err := Parse("a & (b | c)")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	and, ok := node.(BinaryExpr)
	if !ok || and.Op != "AND" {
		t.Fatalf("expected AND at root, got %+v", node)
	}
	or, ok := and.Right.(BinaryExpr)
	if !ok || or.Op != "OR" {
		t.Errorf("expected OR on the right, got %+v", and.Right)
	}
}

func TestParseNegatedGroup(t *testing.T) {
	node, err := Parse("!(a | b)")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	not, ok := node.(NotExpr)
	if !ok {
		t.Fatalf("expected NotExpr, got %+v", node)
	}
	if _, ok := not.Expr.(BinaryExpr); !ok {
		t.Errorf("expected BinaryExpr inside NotExpr, got %+v", not.Expr)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input    string
		pos      int
		expected string
	}{
		{"(a&b", 4, "')'"},
		{"&foo", 0, "STRING or '('"},
		{"a & ", 4, "STRING or '('"},
		{"a b )", 4, "'&', '|' or end of input"},
		{"a ! b", 2, "'&', '|' or end of input"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			var perr *syntax.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.Pos != tt.pos {
				t.Errorf("position = %d, want %d", perr.Pos, tt.pos)
			}
			if perr.Expected != tt.expected {
				t.Errorf("expected = %q, want %q", perr.Expected, tt.expected)
			}
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\r\n"} {
		if _, err := Parse(input); !errors.Is(err, syntax.ErrEmptyInput) {
			t.Errorf("Parse(%q) = %v, want ErrEmptyInput", input, err)
		}
	}
}

func TestParseDanglingEscape(t *testing.T) {
	_, err := Parse(`foo\`)
	var perr *syntax.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Pos != 3 {
		t.Errorf("position = %d, want 3", perr.Pos)
	}
}

// Serializing an AST and reparsing it must yield the same structure.
func TestCanonicalRoundTrip(t *testing.T) {
	inputs := []string{
		"foo",
		"!@foo",
		"a | b & c",
		"a & (b | c)",
		"!(a | b) & @c",
		`foo\|bar & baz`,
		"multi word phrase | other",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			second, err := Parse(first.String())
			if err != nil {
				t.Fatalf("reparse error on %q: %v", first.String(), err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("round trip mismatch:\n first: %+v\nsecond: %+v", first, second)
			}
		})
	}
}
