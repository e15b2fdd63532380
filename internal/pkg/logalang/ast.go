package logalang

import "strings"

// Filter restricts one column: column_name = expr. The expression
// combines string literals for that single column; combining filters
// across columns is the caller's concern (one filter per input line,
// all of them ANDed by the engine).
type Filter struct {
	Column string
	Expr   Expr
}

// Expr is the interface implemented by all filter expression nodes.
type Expr interface {
	expr() // marker method
	String() string
}

// Str is a leaf node: a string literal with all escape sequences
// already decoded.
type Str struct {
	Value string
}

func (Str) expr() {}

// NotExpr negates its inner expression.
type NotExpr struct {
	Expr Expr
}

func (NotExpr) expr() {}

// BinaryExpr represents a binary logical expression (AND, OR).
type BinaryExpr struct {
	Op    string // "AND" or "OR"
	Left  Expr
	Right Expr
}

func (BinaryExpr) expr() {}

func (f Filter) String() string {
	return f.Column + "=" + f.Expr.String()
}

// String renders the literal back in quoted, escaped form.
func (s Str) String() string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s.Value {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func (n NotExpr) String() string {
	if _, ok := n.Expr.(Str); ok {
		return "!" + n.Expr.String()
	}
	return "!(" + n.Expr.String() + ")"
}

// String parenthesizes only a binary right operand: the chain folds
// left to right, so the left side reparses into the same shape bare.
func (b BinaryExpr) String() string {
	op := "&&"
	if b.Op == "OR" {
		op = "||"
	}
	right := b.Right.String()
	if _, ok := b.Right.(BinaryExpr); ok {
		right = "(" + right + ")"
	}
	return b.Left.String() + " " + op + " " + right
}
