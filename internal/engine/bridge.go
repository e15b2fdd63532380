package engine

import (
	"strings"

	"github.com/loglens/loglens/internal/format"
	"github.com/loglens/loglens/internal/pkg/logalang"
	"github.com/loglens/loglens/internal/pkg/querylang"
)

// rowRecord adapts a format.Row to the logalang.Record interface so
// filters can look up column values by name.
type rowRecord struct {
	row     *format.Row
	columns []format.Definition
}

func (r rowRecord) ColumnValue(name string) string {
	for i, c := range r.columns {
		if i >= len(r.row.Values) {
			break
		}
		if strings.EqualFold(c.Name, name) {
			return r.row.Values[i]
		}
	}
	return ""
}

// Matches reports whether a row satisfies every column filter and the
// optional query expression. Filters see individual column values;
// the query matches against the whole raw line, continuation text
// included.
func Matches(row *format.Row, columns []format.Definition, filters []logalang.Filter, query querylang.Expr) bool {
	if len(filters) > 0 && !logalang.MatchAll(filters, rowRecord{row: row, columns: columns}) {
		return false
	}
	return querylang.Match(query, row.Line)
}
