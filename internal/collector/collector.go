// Package collector owns the snapshot-and-delta engine: it captures the
// full counter set each tick and turns successive snapshots into result
// records.
package collector

import (
	"fmt"
	"strconv"
	"time"

	"hwpulse/internal/catalog"
	"hwpulse/internal/logger"
	"hwpulse/internal/system"
)

// column maps one schema position to its counter.
type column struct {
	name string
	kind catalog.Kind
	core int // KindCPUCore
	slot int // index into Snapshot.Extras for the other kinds
}

// extraReader is the open handle behind one instantaneous counter.
type extraReader struct {
	intFile *system.IntFile
	strFile *system.StringFile
}

// Collector captures snapshots and computes per-tick records. All counter
// descriptors open once at construction and stay open for the run; Close
// releases them on every exit path.
type Collector struct {
	log    logger.Logger
	stat   *system.StatFile
	extras []extraReader
	cols   []column
}

// New opens every counter the catalog discovered. Instantaneous nodes that
// fail to open are kept as columns and report unavailable each tick, the
// same as a node that vanishes mid-run.
func New(log logger.Logger, cat *catalog.Catalog, statPath string) (*Collector, error) {
	stat, err := system.OpenStatFile(statPath)
	if err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}

	c := &Collector{log: log, stat: stat}
	for _, src := range cat.Sources {
		if src.Kind == catalog.KindCPUCore {
			c.cols = append(c.cols, column{name: src.Name, kind: src.Kind, core: src.Core})
			continue
		}

		var r extraReader
		switch src.Kind {
		case catalog.KindInt:
			f, err := system.OpenIntFile(src.Path)
			if err != nil {
				log.Warn("counter node not readable at startup", "name", src.Name, "path", src.Path, "error", err)
			}
			r.intFile = f
		case catalog.KindString:
			f, err := system.OpenStringFile(src.Path)
			if err != nil {
				log.Warn("sensor not readable at startup", "name", src.Name, "path", src.Path, "error", err)
			}
			r.strFile = f
		}
		c.cols = append(c.cols, column{name: src.Name, kind: src.Kind, slot: len(c.extras)})
		c.extras = append(c.extras, r)
	}

	return c, nil
}

// Columns returns the current schema in order. The slice grows append-only
// when new cores appear mid-run.
func (c *Collector) Columns() []string {
	out := make([]string, len(c.cols))
	for i, col := range c.cols {
		out[i] = col.name
	}
	return out
}

// Capture reads every counter once. Per-counter failures are recovered
// into unavailable cells; a failed accounting read leaves Cores nil so the
// whole tick's utilizations come out unavailable.
func (c *Collector) Capture() Snapshot {
	snap := Snapshot{Taken: time.Now()}

	cores, err := c.stat.ReadCores()
	if err != nil {
		c.log.Warn("accounting source read failed, utilization unavailable this tick",
			"path", c.stat.Path(), "error", err)
	} else {
		snap.Cores = cores
	}

	snap.Extras = make([]Value, len(c.extras))
	for i, r := range c.extras {
		snap.Extras[i] = readExtra(r)
	}
	return snap
}

func readExtra(r extraReader) Value {
	switch {
	case r.intFile != nil:
		v, err := r.intFile.Read()
		if err != nil {
			return Unavail()
		}
		return IntValue(v)
	case r.strFile != nil:
		s, err := r.strFile.Read()
		if err != nil {
			return Unavail()
		}
		return TextValue(s)
	default:
		return Unavail()
	}
}

// Compute turns two successive snapshots into the tick's record. When the
// current snapshot reports a core with no column yet, the schema widens by
// appending; committed columns are never renumbered or dropped.
func (c *Collector) Compute(prev, curr Snapshot, seq uint64) Record {
	c.widen(curr)

	rec := Record{
		Seq:     seq,
		Taken:   curr.Taken,
		Columns: c.Columns(),
		Values:  make([]Value, len(c.cols)),
	}
	for i, col := range c.cols {
		switch col.kind {
		case catalog.KindCPUCore:
			rec.Values[i] = coreValue(prev, curr, col.core)
		default:
			if col.slot < len(curr.Extras) {
				rec.Values[i] = curr.Extras[col.slot]
			} else {
				rec.Values[i] = Unavail()
			}
		}
	}
	return rec
}

func coreValue(prev, curr Snapshot, core int) Value {
	var p, q system.CPUTicks
	if core < len(prev.Cores) {
		p = prev.Cores[core]
	}
	if core < len(curr.Cores) {
		q = curr.Cores[core]
	}
	pct, ok := CoreUsage(p, q)
	if !ok {
		return Unavail()
	}
	return PercentValue(pct)
}

func (c *Collector) widen(curr Snapshot) {
	known := make(map[int]bool, len(c.cols))
	for _, col := range c.cols {
		if col.kind == catalog.KindCPUCore {
			known[col.core] = true
		}
	}
	for idx, ticks := range curr.Cores {
		if !ticks.OK || known[idx] {
			continue
		}
		name := "cpu" + strconv.Itoa(idx)
		c.log.Info("new core appeared, widening schema", "core", name)
		c.cols = append(c.cols, column{name: name, kind: catalog.KindCPUCore, core: idx})
	}
}

// Close releases every open counter handle.
func (c *Collector) Close() error {
	err := c.stat.Close()
	for _, r := range c.extras {
		if r.intFile != nil {
			r.intFile.Close()
		}
		if r.strFile != nil {
			r.strFile.Close()
		}
	}
	return err
}
