package collector

import (
	"strconv"
	"time"

	"hwpulse/internal/system"
)

// ValueKind discriminates how a cell is rendered.
type ValueKind uint8

const (
	Unavailable ValueKind = iota
	Percent
	Integer
	Text
)

// Value is one cell of a record: a percentage, a raw integer, an opaque
// string, or an explicit unavailable marker. Failed reads never masquerade
// as zeroes.
type Value struct {
	Kind ValueKind
	Num  float64
	Int  int64
	Str  string
}

func PercentValue(v float64) Value { return Value{Kind: Percent, Num: v} }
func IntValue(v int64) Value       { return Value{Kind: Integer, Int: v} }
func TextValue(s string) Value     { return Value{Kind: Text, Str: s} }
func Unavail() Value               { return Value{Kind: Unavailable} }

// String renders the cell the way both the CSV and console writers emit it.
func (v Value) String() string {
	switch v.Kind {
	case Percent:
		return strconv.FormatFloat(v.Num, 'f', 2, 64)
	case Integer:
		return strconv.FormatInt(v.Int, 10)
	case Text:
		return v.Str
	default:
		return "N/A"
	}
}

// Snapshot is one full read of every counter at a single instant. It is
// immutable once produced; ownership moves from capture to the delta
// computation to the caller, which discards it after the next tick. Cores
// is indexed by core number, with absent cores zeroed and not OK.
type Snapshot struct {
	Taken  time.Time
	Cores  []system.CPUTicks
	Extras []Value
}

// Record is the per-tick result handed to writers. Columns is append-only
// for the life of a run: widening appends names, never renumbers, so a
// writer may keep the slice across ticks.
type Record struct {
	Seq     uint64
	Taken   time.Time
	Columns []string
	Values  []Value
}
