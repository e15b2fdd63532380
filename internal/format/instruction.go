// Package format turns raw log lines into rows using a small
// instruction program: a cursor walks the line, Begin marks the start
// of a field and Emit* instructions cut the marked region out as a
// column value. Log formats are described entirely by data, so new
// formats need a profile, not code.
package format

// Op identifies an instruction.
type Op int

const (
	OpBegin Op = iota
	OpSkip
	OpSkipUntilChar
	OpSkipUntilString
	OpEmitDate
	OpEmitString
	OpEmitEnum
	OpEmitRemainder
)

// Instruction is one step of a format program. Which fields are
// meaningful depends on Op: N for Skip, Text for SkipUntilChar and
// SkipUntilString, Name/Width for the Emit* ops and Values for
// EmitEnum.
type Instruction struct {
	Op     Op
	N      int
	Text   string
	Name   string
	Width  int
	Values []string
}

// Kind describes the data type of an emitted column.
type Kind int

const (
	KindString Kind = iota
	KindDate
	KindEnum
)

// Definition describes one emitted column: its display name, type,
// preferred display width and, for enum columns, the value dictionary.
type Definition struct {
	Name   string   `json:"name"`
	Kind   Kind     `json:"kind"`
	Width  int      `json:"width"`
	Values []string `json:"values,omitempty"`
}

// Row is the product of parsing one log line. Values holds the raw
// substring for every emitted column, in emit order. Time carries the
// unix-millisecond timestamp of the first date column and Level the
// dictionary index of the first enum column (-1 when absent).
// Continuation lines that fail to parse get appended to Line by the
// ingest layer.
type Row struct {
	Line   string
	Time   int64
	Level  int8
	Values []string
}
