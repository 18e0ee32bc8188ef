// Package csvlog writes sample records as CSV rows.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"hwpulse/internal/collector"
	"hwpulse/internal/logger"
)

// Rows buffer between flushes so 1 Hz logging is not one syscall per tick.
const flushEvery = 10

// Writer appends one CSV row per record. The header is committed exactly
// once from the schema seen at Begin; when the schema widens mid-run the
// row layout widens append-only and the new columns are logged, never
// retrofitted into the header.
type Writer struct {
	log   logger.Logger
	w     *csv.Writer
	f     *os.File
	width int
	dirty int
}

// Open creates or truncates the CSV file at path.
func Open(log logger.Logger, path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvlog: create %s: %w", path, err)
	}
	return &Writer{log: log, w: csv.NewWriter(f), f: f}, nil
}

// NewWriter wraps an arbitrary destination. Used by tests.
func NewWriter(log logger.Logger, out io.Writer) *Writer {
	return &Writer{log: log, w: csv.NewWriter(out)}
}

func (w *Writer) Begin(columns []string) error {
	header := append([]string{"sample"}, columns...)
	if err := w.w.Write(header); err != nil {
		return fmt.Errorf("csvlog: header: %w", err)
	}
	w.w.Flush()
	w.width = len(columns)
	return w.w.Error()
}

func (w *Writer) Write(rec collector.Record) error {
	if len(rec.Columns) > w.width {
		w.log.Warn("schema widened after header commit, rows gain columns",
			"added", rec.Columns[w.width:])
		w.width = len(rec.Columns)
	}

	row := make([]string, 0, len(rec.Values)+1)
	row = append(row, strconv.FormatUint(rec.Seq, 10))
	for _, v := range rec.Values {
		row = append(row, v.String())
	}
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("csvlog: row %d: %w", rec.Seq, err)
	}

	w.dirty++
	if w.dirty >= flushEvery {
		w.w.Flush()
		w.dirty = 0
	}
	return w.w.Error()
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	w.w.Flush()
	err := w.w.Error()
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
