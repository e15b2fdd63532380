package querylang

import "strings"

// Match evaluates the AST node against a line of text. Plain terms use
// case-insensitive substring matching; terms flagged exact (the @
// marker) match case-sensitively. A nil node matches everything.
func Match(e Expr, line string) bool {
	if e == nil {
		return true
	}
	return match(e, line, false)
}

func match(e Expr, line string, exact bool) bool {
	switch n := e.(type) {
	case Term:
		var ok bool
		if exact || n.Exact {
			ok = strings.Contains(line, n.Value)
		} else {
			ok = strings.Contains(strings.ToLower(line), strings.ToLower(n.Value))
		}
		if n.Negated {
			return !ok
		}
		return ok

	case BinaryExpr:
		left := match(n.Left, line, exact)
		right := match(n.Right, line, exact)
		if n.Op == "OR" {
			return left || right
		}
		return left && right

	case NotExpr:
		return !match(n.Expr, line, exact)

	case ExactExpr:
		return match(n.Expr, line, true)

	default:
		return false
	}
}
