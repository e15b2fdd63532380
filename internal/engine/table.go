// Package engine holds the in-memory row table the viewer serves
// pages from, and the bridge that evaluates filter and query ASTs
// against rows.
package engine

import (
	"sync"

	"github.com/loglens/loglens/internal/format"
	"github.com/loglens/loglens/internal/pkg/logalang"
	"github.com/loglens/loglens/internal/pkg/querylang"
)

// Table stores parsed log rows in load order (oldest first) together
// with the column definitions of the format that produced them.
type Table struct {
	mu      sync.RWMutex
	columns []format.Definition
	rows    []format.Row

	sizeBytes int64
}

// Stats summarizes the table contents.
type Stats struct {
	TotalRows   int              `json:"total_rows"`
	SizeBytes   int64            `json:"size_bytes"`
	MinTime     int64            `json:"min_time"`
	MaxTime     int64            `json:"max_time"`
	LevelCounts map[string]int64 `json:"level_counts"`
}

// NewTable initializes a Table for the given columns.
func NewTable(columns []format.Definition) *Table {
	return &Table{
		columns: columns,
		rows:    make([]format.Row, 0, 4096),
	}
}

// Append adds parsed rows to the table.
func (t *Table) Append(rows ...format.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rows = append(t.rows, rows...)
	for i := range rows {
		size := int64(len(rows[i].Line) + 9)
		for _, v := range rows[i].Values {
			size += int64(len(v))
		}
		t.sizeBytes += size
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Columns returns the column definitions.
func (t *Table) Columns() []format.Definition {
	return t.columns
}

// Rows returns up to limit rows starting at offset, counted over the
// rows that satisfy every filter and the optional query. Rows come
// back in load order. A negative limit means no limit.
func (t *Table) Rows(offset, limit int, filters []logalang.Filter, query querylang.Expr) []format.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []format.Row
	skipped := 0

	for i := range t.rows {
		if limit >= 0 && len(result) >= limit {
			break
		}
		if !Matches(&t.rows[i], t.columns, filters, query) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, t.rows[i])
	}

	return result
}

// MatchCount returns the number of rows satisfying the filters and query.
func (t *Table) MatchCount(filters []logalang.Filter, query querylang.Expr) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for i := range t.rows {
		if Matches(&t.rows[i], t.columns, filters, query) {
			count++
		}
	}
	return count
}

// MinTime returns the timestamp of the first row.
func (t *Table) MinTime() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.rows) == 0 {
		return 0
	}
	return t.rows[0].Time
}

// MaxTime returns the timestamp of the last row.
func (t *Table) MaxTime() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.rows) == 0 {
		return 0
	}
	return t.rows[len(t.rows)-1].Time
}

// Stats computes summary statistics, including per-level row counts
// keyed by the first enum column's dictionary.
func (t *Table) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{
		TotalRows:   len(t.rows),
		SizeBytes:   t.sizeBytes,
		LevelCounts: make(map[string]int64),
	}
	if len(t.rows) > 0 {
		s.MinTime = t.rows[0].Time
		s.MaxTime = t.rows[len(t.rows)-1].Time
	}

	var levels []string
	for _, c := range t.columns {
		if c.Kind == format.KindEnum {
			levels = c.Values
			break
		}
	}
	if levels == nil {
		return s
	}

	for i := range t.rows {
		lvl := t.rows[i].Level
		if lvl >= 0 && int(lvl) < len(levels) {
			s.LevelCounts[levels[lvl]]++
		}
	}
	return s
}
