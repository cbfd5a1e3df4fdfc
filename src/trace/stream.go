// Package trace reads the binary latency timestamp files written by the TRex
// fork used for the router latency tests.
//
// A file is a flat sequence of 16 byte records: the transmit time followed by
// the arrival time, both little-endian IEEE-754 doubles in seconds. Trailing
// bytes that do not complete a record are ignored.
package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// RecordSize is the on-disk size of one record.
const RecordSize = 16

// ChunkSize is the read buffer size (16384 records per read).
const ChunkSize = 512 * 512

// ErrNoLastRecord is returned when the final record of a non-empty file could
// not be read, which leaves the test duration unknown.
var ErrNoLastRecord = errors.New("trace: last record unavailable")

// Record is one transmit/arrival timestamp pair in seconds.
type Record struct {
	Transmit float64
	Arrival  float64
}

// LatencyUs returns the one-way latency of the packet in microseconds.
func (r Record) LatencyUs() float64 {
	return (r.Arrival - r.Transmit) * 1_000_000.0
}

// Decode reads one record from the first RecordSize bytes of b.
func Decode(b []byte) Record {
	_ = b[RecordSize-1]
	return Record{
		Transmit: math.Float64frombits(binary.LittleEndian.Uint64(b[0:8])),
		Arrival:  math.Float64frombits(binary.LittleEndian.Uint64(b[8:16])),
	}
}

// Encode writes r into the first RecordSize bytes of dst.
func Encode(dst []byte, r Record) {
	_ = dst[RecordSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], math.Float64bits(r.Transmit))
	binary.LittleEndian.PutUint64(dst[8:16], math.Float64bits(r.Arrival))
}

// IOError reports a failed file operation on a trace.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("trace: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Stream is a restartable pull iterator over the records of a trace file.
// It holds one chunk of the file in memory at a time. A Stream is not safe for
// concurrent use; open a second Stream for an independent pass.
type Stream struct {
	path  string
	f     *os.File
	buf   []byte
	pos   int // next undecoded byte in buf
	limit int // end of whole records in buf
	read  int // records produced since open/reset
	total int
	err   error
}

// Open opens path and determines its record count from the file size.
func Open(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}
	return &Stream{
		path:  path,
		f:     f,
		buf:   make([]byte, ChunkSize),
		total: int(fi.Size() / RecordSize),
	}, nil
}

// Path returns the file the stream was opened from.
func (s *Stream) Path() string { return s.path }

// TotalRecords is the number of complete records in the file.
func (s *Stream) TotalRecords() int { return s.total }

// Remaining is the number of records not yet produced by Next.
func (s *Stream) Remaining() int {
	if n := s.total - s.read; n > 0 {
		return n
	}
	return 0
}

// Next returns the next record. It returns false at the end of the stream or
// after a read error; Err distinguishes the two.
func (s *Stream) Next() (Record, bool) {
	if s.pos >= s.limit {
		if !s.fill() {
			return Record{}, false
		}
	}
	r := Decode(s.buf[s.pos : s.pos+RecordSize])
	s.pos += RecordSize
	s.read++
	return r, true
}

// fill reads the next chunk. A chunk holding less than one whole record ends
// the stream, even if that leaves unread bytes behind.
func (s *Stream) fill() bool {
	if s.err != nil {
		return false
	}
	n, err := io.ReadFull(s.f, s.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		s.err = &IOError{Op: "read", Path: s.path, Err: err}
		s.pos, s.limit = 0, 0
		return false
	}
	s.pos = 0
	s.limit = n - n%RecordSize
	return s.limit >= RecordSize
}

// Skip advances past up to n records without decoding them and returns how
// many were skipped. Records already buffered are consumed first; the rest is
// a seek.
func (s *Stream) Skip(n int) int {
	if n <= 0 || s.err != nil {
		return 0
	}
	if n > s.Remaining() {
		n = s.Remaining()
	}
	if buffered := (s.limit - s.pos) / RecordSize; n <= buffered {
		s.pos += n * RecordSize
		s.read += n
		return n
	}
	target := int64(s.read+n) * RecordSize
	if _, err := s.f.Seek(target, io.SeekStart); err != nil {
		s.err = &IOError{Op: "seek", Path: s.path, Err: err}
		return 0
	}
	s.pos, s.limit = 0, 0
	s.read += n
	return n
}

// PeekLast decodes the last complete record without moving the stream. It
// reports false when the file holds no record or the read fails.
func (s *Stream) PeekLast() (Record, bool) {
	if s.total == 0 {
		return Record{}, false
	}
	var b [RecordSize]byte
	off := int64(s.total-1) * RecordSize
	if _, err := s.f.ReadAt(b[:], off); err != nil {
		return Record{}, false
	}
	return Decode(b[:]), true
}

// Reset rewinds the stream to record zero and clears any previous error.
func (s *Stream) Reset() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return &IOError{Op: "seek", Path: s.path, Err: err}
	}
	s.pos, s.limit, s.read = 0, 0, 0
	s.err = nil
	return nil
}

// Err returns the first read or seek error hit by Next or Skip.
func (s *Stream) Err() error { return s.err }

// Close releases the underlying file.
func (s *Stream) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
