package logalang

import "strings"

// Record exposes column values to filter evaluation. This decouples
// logalang from the engine package.
type Record interface {
	ColumnValue(name string) string
}

// Match evaluates the filter against a record. A string literal
// matches when the filter's column value contains it.
func Match(f Filter, r Record) bool {
	return matchExpr(f.Expr, r.ColumnValue(f.Column))
}

// MatchAll reports whether the record satisfies every filter.
func MatchAll(filters []Filter, r Record) bool {
	for _, f := range filters {
		if !Match(f, r) {
			return false
		}
	}
	return true
}

func matchExpr(e Expr, value string) bool {
	switch n := e.(type) {
	case Str:
		return strings.Contains(value, n.Value)
	case NotExpr:
		return !matchExpr(n.Expr, value)
	case BinaryExpr:
		left := matchExpr(n.Left, value)
		right := matchExpr(n.Right, value)
		if n.Op == "OR" {
			return left || right
		}
		return left && right
	default:
		return false
	}
}
