package logalang

import (
	"strings"
	"unicode/utf8"

	"github.com/loglens/loglens/internal/pkg/syntax"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenString
	TokenEquals // '='
	TokenAnd    // '&&'
	TokenOr     // '||'
	TokenNot    // '!'
	TokenLParen // '('
	TokenRParen // ')'
)

// Token represents a lexical token. Pos is the byte offset of the token
// in the input line.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// Lexer tokenizes a single filter line. Filters are one-per-line, so
// only space and tab count as whitespace here.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	pos := l.pos
	switch ch := l.input[l.pos]; ch {
	case '=':
		l.pos++
		return Token{Type: TokenEquals, Value: "=", Pos: pos}, nil
	case '!':
		l.pos++
		return Token{Type: TokenNot, Value: "!", Pos: pos}, nil
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "(", Pos: pos}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")", Pos: pos}, nil
	case '&':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '&' {
			l.pos += 2
			return Token{Type: TokenAnd, Value: "&&", Pos: pos}, nil
		}
		return Token{}, &syntax.ParseError{Pos: pos, Expected: "'&&'"}
	case '|':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '|' {
			l.pos += 2
			return Token{Type: TokenOr, Value: "||", Pos: pos}, nil
		}
		return Token{}, &syntax.ParseError{Pos: pos, Expected: "'||'"}
	case '"':
		return l.readString()
	}

	if isAlphanumeric(l.input[l.pos]) {
		return l.readIdent(), nil
	}

	return Token{}, &syntax.ParseError{Pos: pos, Expected: "column name, '!', '(' or string"}
}

// readString reads a double-quoted string literal, resolving the
// JSON-style escapes \" \\ \/ \b \f \n \r \t and \uXXXX. Raw control
// characters inside the quotes are rejected. The token value carries
// the decoded text.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // opening quote

	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return Token{}, &syntax.ParseError{Pos: l.pos, Expected: `closing '"'`}
		}

		ch := l.input[l.pos]
		if ch == '"' {
			l.pos++
			return Token{Type: TokenString, Value: sb.String(), Pos: start}, nil
		}
		if ch < 0x20 {
			// Control characters must be written as escapes.
			return Token{}, &syntax.ParseError{Pos: l.pos, Expected: "escaped control character"}
		}
		if ch != '\\' {
			sb.WriteByte(ch)
			l.pos++
			continue
		}

		// Escape sequence.
		escPos := l.pos
		if l.pos+1 >= len(l.input) {
			return Token{}, &syntax.ParseError{Pos: escPos, Expected: "escape character"}
		}
		l.pos++
		switch l.input[l.pos] {
		case '"':
			sb.WriteByte('"')
		case '\\':
			sb.WriteByte('\\')
		case '/':
			sb.WriteByte('/')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'u':
			r, err := l.readHex4(escPos)
			if err != nil {
				return Token{}, err
			}
			sb.WriteRune(r)
			continue // readHex4 advanced past the digits
		default:
			return Token{}, &syntax.InvalidEscapeError{Pos: escPos}
		}
		l.pos++
	}
}

// readHex4 decodes the four hex digits of a \uXXXX escape. l.pos sits
// on the 'u' when called and past the last digit on return.
func (l *Lexer) readHex4(escPos int) (rune, error) {
	l.pos++ // 'u'
	if l.pos+4 > len(l.input) {
		return 0, &syntax.InvalidEscapeError{Pos: escPos}
	}

	var r rune
	for i := 0; i < 4; i++ {
		d := hexDigit(l.input[l.pos+i])
		if d < 0 {
			return 0, &syntax.InvalidEscapeError{Pos: escPos}
		}
		r = r<<4 | rune(d)
	}
	l.pos += 4

	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	return r, nil
}

func hexDigit(ch byte) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return int(ch-'a') + 10
	case ch >= 'A' && ch <= 'F':
		return int(ch-'A') + 10
	}
	return -1
}

func (l *Lexer) readIdent() Token {
	start := l.pos
	for l.pos < len(l.input) && isAlphanumeric(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: start}
}

func isAlphanumeric(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t') {
		l.pos++
	}
}
