package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/loglens/loglens/internal/format"
)

var ErrInvalidHeader = errors.New("invalid snapshot file header")

type SnapshotReader struct {
	decoder *zstd.Decoder
}

func NewSnapshotReader() (*SnapshotReader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &SnapshotReader{decoder: dec}, nil
}

// ReadSnapshot loads a snapshot file and rebuilds the column
// definitions and rows it was written from.
func (sr *SnapshotReader) ReadSnapshot(filename string) ([]format.Definition, []format.Row, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	header := make([]byte, len(MagicHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(header, MagicHeader) {
		return nil, nil, ErrInvalidHeader
	}

	// Footer: RowCount(4) + MinTs(8) + MaxTs(8) = 20 bytes.
	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.Size() < int64(len(MagicHeader))+20 {
		return nil, nil, errors.New("snapshot file too small")
	}
	footer := make([]byte, 20)
	if _, err := f.ReadAt(footer, info.Size()-20); err != nil {
		return nil, nil, err
	}
	rowCount := int(binary.LittleEndian.Uint32(footer[0:4]))

	meta, err := sr.readAndDecompress(f)
	if err != nil {
		return nil, nil, fmt.Errorf("reading metadata block: %w", err)
	}
	var columns []format.Definition
	if err := json.Unmarshal(meta, &columns); err != nil {
		return nil, nil, fmt.Errorf("decoding column definitions: %w", err)
	}

	tsData, err := sr.readAndDecompress(f)
	if err != nil {
		return nil, nil, err
	}
	times := bytesToInt64Slice(tsData)

	lvlData, err := sr.readAndDecompress(f)
	if err != nil {
		return nil, nil, err
	}

	lineData, err := sr.readAndDecompress(f)
	if err != nil {
		return nil, nil, err
	}
	lines := bytesToStringSlice(lineData)

	values := make([][]string, len(columns))
	for i := range columns {
		raw, err := sr.readAndDecompress(f)
		if err != nil {
			return nil, nil, fmt.Errorf("reading column %q: %w", columns[i].Name, err)
		}
		values[i] = bytesToStringSlice(raw)
	}

	if rowCount != len(times) || rowCount != len(lvlData) || rowCount != len(lines) {
		return nil, nil, errors.New("column length mismatch")
	}
	for i := range values {
		if len(values[i]) != rowCount {
			return nil, nil, errors.New("column length mismatch")
		}
	}

	rows := make([]format.Row, rowCount)
	for i := 0; i < rowCount; i++ {
		vals := make([]string, len(columns))
		for c := range columns {
			vals[c] = values[c][i]
		}
		rows[i] = format.Row{
			Line:   lines[i],
			Time:   times[i],
			Level:  int8(lvlData[i]),
			Values: vals,
		}
	}
	return columns, rows, nil
}

// readAndDecompress reads one size-prefixed compressed block.
func (sr *SnapshotReader) readAndDecompress(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	compressed := make([]byte, size)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, err
	}

	return sr.decoder.DecodeAll(compressed, nil)
}

func bytesToInt64Slice(data []byte) []int64 {
	count := len(data) / 8
	result := make([]int64, count)
	for i := 0; i < count; i++ {
		result[i] = int64(binary.LittleEndian.Uint64(data[i*8 : i*8+8]))
	}
	return result
}

// bytesToStringSlice decodes [Len uint32][Bytes]... records.
func bytesToStringSlice(data []byte) []string {
	var result []string
	buf := bytes.NewReader(data)

	for buf.Len() > 0 {
		var length uint32
		if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
			break
		}
		strBytes := make([]byte, length)
		if _, err := io.ReadFull(buf, strBytes); err != nil {
			break
		}
		result = append(result, string(strBytes))
	}

	return result
}
