package querylang

import "strings"

// Expr is the interface implemented by all AST nodes.
type Expr interface {
	expr() // marker method
	String() string
}

// Term is a leaf node: one literal search phrase. A term written as
// !@foo is negated and exact at the same time.
type Term struct {
	Value   string
	Negated bool
	Exact   bool
}

func (Term) expr() {}

// BinaryExpr represents a binary logical expression (AND, OR).
type BinaryExpr struct {
	Op    string // "AND" or "OR"
	Left  Expr
	Right Expr
}

func (BinaryExpr) expr() {}

// NotExpr negates a parenthesized group, e.g. !(a | b).
type NotExpr struct {
	Expr Expr
}

func (NotExpr) expr() {}

// ExactExpr marks every term of a parenthesized group as exact, e.g. @(a | b).
type ExactExpr struct {
	Expr Expr
}

func (ExactExpr) expr() {}

// String renders the term in canonical query form, re-escaping any
// reserved characters so the output parses back to the same term.
func (t Term) String() string {
	var sb strings.Builder
	if t.Negated {
		sb.WriteByte('!')
	}
	if t.Exact {
		sb.WriteByte('@')
	}
	for i := 0; i < len(t.Value); i++ {
		if isReserved(t.Value[i]) {
			sb.WriteByte('\\')
		}
		sb.WriteByte(t.Value[i])
	}
	return sb.String()
}

// String renders the expression with the minimal parentheses needed to
// reparse into the same shape. The language folds operators left to
// right, so only a right operand that is itself binary needs grouping.
func (b BinaryExpr) String() string {
	op := "&"
	if b.Op == "OR" {
		op = "|"
	}
	right := b.Right.String()
	if _, ok := b.Right.(BinaryExpr); ok {
		right = "(" + right + ")"
	}
	return b.Left.String() + " " + op + " " + right
}

func (n NotExpr) String() string {
	return "!(" + n.Expr.String() + ")"
}

func (e ExactExpr) String() string {
	return "@(" + e.Expr.String() + ")"
}
