// Package syntax holds the error types shared by the query and filter
// language parsers. Both parsers are single-pass: the first error aborts
// the parse and is returned as-is, with no partial AST.
package syntax

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when the input contains no tokens.
var ErrEmptyInput = errors.New("empty input")

// ParseError reports that the input does not match the grammar at Pos.
// Pos is a byte offset into the original input. Expected names the token
// or construct class the parser was looking for.
type ParseError struct {
	Pos      int
	Expected string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at position %d: expected %s", e.Pos, e.Expected)
}

// InvalidEscapeError reports a malformed escape sequence at Pos, such as
// a \u escape with fewer than 4 hex digits.
type InvalidEscapeError struct {
	Pos int
}

func (e *InvalidEscapeError) Error() string {
	return fmt.Sprintf("invalid escape sequence at position %d", e.Pos)
}
