// Package system reads kernel pseudo-files with bounded buffers. The files
// it targets (procfs accounting, sysfs counter nodes) regenerate their
// content on every read, so each handle keeps one open descriptor and
// re-seeks to the start per read instead of reopening at cadence.
package system

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Counter nodes are a single short line; 128 bytes covers every known one.
const readBufSize = 128

// ErrParse marks a read that opened fine but yielded no usable value. It is
// distinct from "parsed zero".
var ErrParse = errors.New("system: no value in counter file")

// IntFile is a reusable handle over a pseudo-file holding one integer.
// A failed read triggers exactly one transparent reopen and retry, so a
// vanished-and-recreated device node recovers within the same tick without
// unbounded retries.
type IntFile struct {
	path string
	f    *os.File
	buf  [readBufSize]byte
}

func OpenIntFile(path string) (*IntFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("system: open %s: %w", path, err)
	}
	return &IntFile{path: path, f: f}, nil
}

func (r *IntFile) Path() string { return r.path }

// Read returns the first signed decimal integer in the file, skipping
// leading whitespace.
func (r *IntFile) Read() (int64, error) {
	v, err := r.readOnce()
	if err == nil {
		return v, nil
	}
	if rerr := r.reopen(); rerr != nil {
		return 0, err
	}
	return r.readOnce()
}

func (r *IntFile) readOnce() (int64, error) {
	b, err := readStart(r.f, r.buf[:])
	if err != nil {
		return 0, err
	}
	v, ok := parseInt(b)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrParse, r.path)
	}
	return v, nil
}

func (r *IntFile) reopen() error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	if r.f != nil {
		r.f.Close()
	}
	r.f = f
	return nil
}

func (r *IntFile) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// StringFile behaves like IntFile but returns the raw text with one
// trailing line terminator removed.
type StringFile struct {
	path string
	f    *os.File
	buf  [readBufSize]byte
}

func OpenStringFile(path string) (*StringFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("system: open %s: %w", path, err)
	}
	return &StringFile{path: path, f: f}, nil
}

func (r *StringFile) Path() string { return r.path }

func (r *StringFile) Read() (string, error) {
	s, err := r.readOnce()
	if err == nil {
		return s, nil
	}
	if rerr := r.reopen(); rerr != nil {
		return "", err
	}
	return r.readOnce()
}

func (r *StringFile) readOnce() (string, error) {
	b, err := readStart(r.f, r.buf[:])
	if err != nil {
		return "", err
	}
	s := strings.TrimSuffix(string(b), "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, nil
}

func (r *StringFile) reopen() error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	if r.f != nil {
		r.f.Close()
	}
	r.f = f
	return nil
}

func (r *StringFile) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// readStart seeks to the beginning and reads at most len(buf) bytes.
// An empty file is a parse failure, not a zero.
func readStart(f *os.File, buf []byte) ([]byte, error) {
	if f == nil {
		return nil, os.ErrClosed
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	n, err := f.Read(buf)
	if n <= 0 {
		if err != nil && err != io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrParse, f.Name())
	}
	return buf[:n], nil
}

// parseInt extracts the first signed decimal integer, skipping leading
// whitespace. Reports false when no digit is found.
func parseInt(b []byte) (int64, bool) {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	neg := false
	if i < len(b) && b[i] == '-' {
		neg = true
		i++
	}
	var v int64
	seen := false
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		seen = true
		v = v*10 + int64(b[i]-'0')
		i++
	}
	if !seen {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
