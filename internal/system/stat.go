package system

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CPUTicks holds one core's cumulative time accounting. The guest fields
// are optional on older kernels. OK is the only field a consumer may trust
// before checking it: an unparsed line leaves everything zeroed.
type CPUTicks struct {
	User      uint64
	Nice      uint64
	System    uint64
	Idle      uint64
	IOWait    uint64
	IRQ       uint64
	SoftIRQ   uint64
	Steal     uint64
	Guest     uint64
	GuestNice uint64
	OK        bool
}

// A core line needs the label plus at least this many numeric fields.
const minStatFields = 8

// Indices above this are treated as a corrupt line, never an allocation.
const maxCoreIndex = 4096

// ErrNoCPUSource reports that the accounting file exists but contains no
// parseable per-core line.
var ErrNoCPUSource = errors.New("system: no per-core lines in accounting source")

// StatFile is a reusable handle over the cumulative CPU accounting file.
// One read parses every core line in a single pass.
type StatFile struct {
	path string
	f    *os.File
	buf  []byte
}

func OpenStatFile(path string) (*StatFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("system: open %s: %w", path, err)
	}
	return &StatFile{path: path, f: f, buf: make([]byte, 0, 8192)}, nil
}

func (s *StatFile) Path() string { return s.path }

// ReadCores parses the whole accounting file once, returning samples
// indexed by their declared core number. Cores absent from the file stay
// zeroed with OK=false. A failed read retries through one reopen.
func (s *StatFile) ReadCores() ([]CPUTicks, error) {
	cores, err := s.readOnce()
	if err == nil {
		return cores, nil
	}
	if rerr := s.reopen(); rerr != nil {
		return nil, err
	}
	return s.readOnce()
}

func (s *StatFile) readOnce() ([]CPUTicks, error) {
	if s.f == nil {
		return nil, os.ErrClosed
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	s.buf = s.buf[:0]
	for {
		if len(s.buf) == cap(s.buf) {
			s.buf = append(s.buf, 0)[:len(s.buf)]
		}
		n, err := s.f.Read(s.buf[len(s.buf):cap(s.buf)])
		s.buf = s.buf[:len(s.buf)+n]
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	cores := ParseStat(s.buf)
	if cores == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCPUSource, s.path)
	}
	return cores, nil
}

func (s *StatFile) reopen() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	if s.f != nil {
		s.f.Close()
	}
	s.f = f
	return nil
}

func (s *StatFile) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// ParseStat extracts per-core samples from accounting-file content. Core
// lines carry a fixed "cpu" prefix followed by a decimal index; the
// aggregate all-cores line has no index and is excluded. Returns nil when
// no core line is found.
func ParseStat(data []byte) []CPUTicks {
	var cores []CPUTicks

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "cpu") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		label := fields[0]
		if len(label) == 3 {
			// aggregate line
			continue
		}
		idx, err := strconv.Atoi(label[3:])
		if err != nil || idx < 0 || idx > maxCoreIndex {
			continue
		}
		for idx >= len(cores) {
			cores = append(cores, CPUTicks{})
		}
		cores[idx] = parseTicks(fields[1:])
	}

	return cores
}

func parseTicks(fields []string) CPUTicks {
	var t CPUTicks
	if len(fields) < minStatFields {
		return t
	}
	vals := make([]uint64, 0, 10)
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return CPUTicks{}
		}
		vals = append(vals, v)
		if len(vals) == 10 {
			break
		}
	}
	t.User, t.Nice, t.System, t.Idle = vals[0], vals[1], vals[2], vals[3]
	t.IOWait, t.IRQ, t.SoftIRQ, t.Steal = vals[4], vals[5], vals[6], vals[7]
	if len(vals) > 8 {
		t.Guest = vals[8]
	}
	if len(vals) > 9 {
		t.GuestNice = vals[9]
	}
	t.OK = true
	return t
}
