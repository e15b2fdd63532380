// Package storage persists a parsed log table as a columnar snapshot
// so large files can be reopened without re-parsing. Layout: magic
// header, a compressed metadata block (column definitions as JSON),
// one compressed block per column (time, level, raw line, then each
// extracted string column) and a fixed-size footer.
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/loglens/loglens/internal/format"
)

// MagicHeader identifies snapshot files.
var MagicHeader = []byte("LOGLENS1")

// SnapshotExt is the conventional snapshot file extension.
const SnapshotExt = ".lens"

type SnapshotWriter struct {
	encoder *zstd.Encoder
}

func NewSnapshotWriter() (*SnapshotWriter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &SnapshotWriter{encoder: enc}, nil
}

// WriteSnapshot writes the columns and rows to a snapshot file. Rows
// are expected in load order, so the first and last timestamps bound
// the whole file.
func (sw *SnapshotWriter) WriteSnapshot(filename string, columns []format.Definition, rows []format.Row) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(MagicHeader); err != nil {
		return err
	}

	meta, err := json.Marshal(columns)
	if err != nil {
		return err
	}
	if err := sw.compressAndWrite(f, meta); err != nil {
		return err
	}

	rowCount := uint32(len(rows))
	var minTs, maxTs int64
	if rowCount > 0 {
		minTs = rows[0].Time
		maxTs = rows[rowCount-1].Time
	}

	if err := sw.writeTimeCol(f, rows); err != nil {
		return err
	}
	if err := sw.writeLevelCol(f, rows); err != nil {
		return err
	}
	if err := sw.writeStringCol(f, rows, func(r *format.Row) string { return r.Line }); err != nil {
		return err
	}
	for col := range columns {
		idx := col
		err := sw.writeStringCol(f, rows, func(r *format.Row) string {
			if idx < len(r.Values) {
				return r.Values[idx]
			}
			return ""
		})
		if err != nil {
			return err
		}
	}

	return writeFooter(f, rowCount, minTs, maxTs)
}

func (sw *SnapshotWriter) writeTimeCol(f *os.File, rows []format.Row) error {
	buf := new(bytes.Buffer)
	for i := range rows {
		binary.Write(buf, binary.LittleEndian, rows[i].Time)
	}
	return sw.compressAndWrite(f, buf.Bytes())
}

func (sw *SnapshotWriter) writeLevelCol(f *os.File, rows []format.Row) error {
	raw := make([]byte, len(rows))
	for i := range rows {
		raw[i] = byte(rows[i].Level)
	}
	return sw.compressAndWrite(f, raw)
}

// writeStringCol serializes one string per row as [Len uint32][Bytes].
func (sw *SnapshotWriter) writeStringCol(f *os.File, rows []format.Row, value func(*format.Row) string) error {
	buf := new(bytes.Buffer)
	for i := range rows {
		s := value(&rows[i])
		binary.Write(buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	}
	return sw.compressAndWrite(f, buf.Bytes())
}

func (sw *SnapshotWriter) compressAndWrite(f *os.File, raw []byte) error {
	compressed := sw.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))

	size := uint32(len(compressed))
	if err := binary.Write(f, binary.LittleEndian, size); err != nil {
		return err
	}
	_, err := f.Write(compressed)
	return err
}

// writeFooter appends RowCount(4) + MinTs(8) + MaxTs(8).
func writeFooter(f *os.File, rowCount uint32, minTs, maxTs int64) error {
	if err := binary.Write(f, binary.LittleEndian, rowCount); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, minTs); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, maxTs)
}
