package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Writer appends records in the on-disk trace format.
type Writer struct {
	w       *bufio.Writer
	scratch [RecordSize]byte
	n       int
}

// NewWriter returns a buffered record writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, ChunkSize)}
}

// Write encodes and buffers one record.
func (w *Writer) Write(r Record) error {
	Encode(w.scratch[:], r)
	if _, err := w.w.Write(w.scratch[:]); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count is the number of records written so far.
func (w *Writer) Count() int { return w.n }

// Flush writes any buffered records to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

// WriteFile creates path and writes all records to it.
func WriteFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	w := NewWriter(f)
	for _, r := range records {
		if err := w.Write(r); err != nil {
			f.Close()
			return &IOError{Op: "write", Path: path, Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("trace: close %s: %w", path, err)
	}
	return nil
}
