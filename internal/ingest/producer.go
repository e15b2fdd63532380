// Package ingest streams log files into parsed row batches.
package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/loglens/loglens/internal/format"
)

// DefaultBatchSize is the number of rows delivered per batch.
const DefaultBatchSize = 64

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// maxLineSize bounds a single log line (continuations are folded
// separately, so this only needs to fit one physical line).
const maxLineSize = 1024 * 1024

// Produce reads the log file at path line by line, parses each line
// with p and delivers rows in batches of batchSize on out. Files
// ending in .gz are decompressed transparently and a leading UTF-8 BOM
// is skipped. Lines that do not match the format are treated as
// continuations (stack traces, wrapped messages) and appended to the
// previous row's raw line. out is closed when Produce returns.
func Produce(path string, p *format.Parser, batchSize int, out chan<- []format.Row) error {
	defer close(out)

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	buf := bufio.NewReader(reader)
	if head, err := buf.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		buf.Discard(len(utf8BOM))
	}

	scanner := bufio.NewScanner(buf)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	start := time.Now()
	lines := 0
	batch := make([]format.Row, 0, batchSize)
	var pending *format.Row

	flush := func(row format.Row) {
		batch = append(batch, row)
		if len(batch) >= batchSize {
			out <- batch
			batch = make([]format.Row, 0, batchSize)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		lines++

		row, err := p.ParseLine(line)
		if err != nil {
			// Continuation line: keep it with the previous row.
			if pending != nil {
				pending.Line += "\n" + line
			}
			continue
		}

		if pending != nil {
			flush(*pending)
		}
		pending = &row
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if pending != nil {
		batch = append(batch, *pending)
	}
	if len(batch) > 0 {
		out <- batch
	}

	log.Printf("Read %d lines from %s in %v", lines, path, time.Since(start).Round(time.Millisecond))
	return nil
}
