package format

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the timestamp layout emitted by EmitDate columns,
// e.g. "2024-03-01 12:00:00,123". The comma separator follows the
// Log4Net convention.
const TimeLayout = "2006-01-02 15:04:05,000"

// Parser executes a format program against individual log lines.
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	instructions []Instruction
	columns      []Definition
}

// New builds a Parser from an instruction list, deriving the column
// definitions from the Emit* instructions in order.
func New(instructions []Instruction) *Parser {
	var columns []Definition
	for _, in := range instructions {
		switch in.Op {
		case OpEmitDate:
			columns = append(columns, Definition{Name: in.Name, Kind: KindDate, Width: in.Width})
		case OpEmitString, OpEmitRemainder:
			columns = append(columns, Definition{Name: in.Name, Kind: KindString, Width: in.Width})
		case OpEmitEnum:
			columns = append(columns, Definition{Name: in.Name, Kind: KindEnum, Width: in.Width, Values: in.Values})
		}
	}
	return &Parser{instructions: instructions, columns: columns}
}

// Columns returns the column definitions derived from the program.
func (p *Parser) Columns() []Definition {
	return p.columns
}

// ParseLine runs the format program over one line. The cursor starts
// at 0; Begin marks the field start and the Emit* instructions cut
// line[mark:cursor] out as the next column value. A line that does not
// fit the program (short line, unknown enum value, bad timestamp)
// returns an error; the ingest layer treats such lines as
// continuations of the previous row.
func (p *Parser) ParseLine(line string) (Row, error) {
	row := Row{
		Line:   line,
		Level:  -1,
		Values: make([]string, 0, len(p.columns)),
	}

	cursor := 0
	mark := 0
	haveTime := false

	for _, in := range p.instructions {
		switch in.Op {
		case OpBegin:
			mark = cursor

		case OpSkip:
			cursor += in.N
			if cursor > len(line) {
				return Row{}, fmt.Errorf("line too short: skip %d past end", in.N)
			}

		case OpSkipUntilChar, OpSkipUntilString:
			idx := strings.Index(line[cursor:], in.Text)
			if idx < 0 {
				return Row{}, fmt.Errorf("missing %q after column %d", in.Text, len(row.Values))
			}
			cursor += idx

		case OpEmitDate:
			value := line[mark:cursor]
			t, err := time.Parse(TimeLayout, value)
			if err != nil {
				return Row{}, fmt.Errorf("invalid datetime %q", value)
			}
			if !haveTime {
				row.Time = t.UnixMilli()
				haveTime = true
			}
			row.Values = append(row.Values, value)

		case OpEmitString:
			row.Values = append(row.Values, line[mark:cursor])

		case OpEmitEnum:
			value := line[mark:cursor]
			idx := -1
			for i, v := range in.Values {
				if v == value {
					idx = i
					break
				}
			}
			if idx < 0 {
				return Row{}, fmt.Errorf("unknown enum value %q", value)
			}
			if row.Level < 0 {
				row.Level = int8(idx)
			}
			row.Values = append(row.Values, value)

		case OpEmitRemainder:
			if mark > len(line) {
				return Row{}, fmt.Errorf("line too short: remainder starts past end")
			}
			row.Values = append(row.Values, line[mark:])
		}
	}

	return row, nil
}
