package querylang

import (
	"strings"

	"github.com/loglens/loglens/internal/pkg/syntax"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenString
	TokenAnd    // '&'
	TokenOr     // '|'
	TokenNot    // '!'
	TokenExact  // '@'
	TokenLParen // '('
	TokenRParen // ')'
)

// Token represents a lexical token. Pos is the byte offset of the token
// in the original input, used for error reporting.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// Lexer tokenizes query input.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// isReserved reports whether ch has syntactic meaning and therefore may
// not appear unescaped inside a term.
func isReserved(ch byte) bool {
	switch ch {
	case '|', '&', '!', '@', '(', ')', '\\':
		return true
	}
	return false
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	pos := l.pos
	switch ch := l.input[l.pos]; ch {
	case '|':
		l.pos++
		return Token{Type: TokenOr, Value: "|", Pos: pos}, nil
	case '&':
		l.pos++
		return Token{Type: TokenAnd, Value: "&", Pos: pos}, nil
	case '!':
		l.pos++
		return Token{Type: TokenNot, Value: "!", Pos: pos}, nil
	case '@':
		l.pos++
		return Token{Type: TokenExact, Value: "@", Pos: pos}, nil
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "(", Pos: pos}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")", Pos: pos}, nil
	}

	return l.readString()
}

// readString reads a term. A term is one or more runs of non-reserved,
// non-whitespace characters; escaped reserved characters are kept
// literally. Runs separated only by whitespace belong to the same term,
// so an unquoted multi-word phrase lexes as a single token.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	var sb strings.Builder

	for {
		for l.pos < len(l.input) {
			ch := l.input[l.pos]
			if ch == '\\' {
				if l.pos+1 >= len(l.input) {
					return Token{}, &syntax.ParseError{Pos: l.pos, Expected: "character after '\\'"}
				}
				sb.WriteByte(l.input[l.pos+1])
				l.pos += 2
				continue
			}
			if isReserved(ch) || isSpace(ch) {
				break
			}
			sb.WriteByte(ch)
			l.pos++
		}

		// Peek across whitespace: another word run continues this term.
		mark := l.pos
		for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
			l.pos++
		}
		if l.pos < len(l.input) {
			ch := l.input[l.pos]
			if ch == '\\' || !isReserved(ch) {
				sb.WriteByte(' ')
				continue
			}
		}
		l.pos = mark
		break
	}

	return Token{Type: TokenString, Value: sb.String(), Pos: start}, nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}
