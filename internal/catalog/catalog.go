// Package catalog discovers, once at startup, which hardware counters
// exist on the running machine and fixes their column order for the run.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"hwpulse/internal/logger"
	"hwpulse/internal/system"
)

// Kind tags how a counter's value is produced and interpreted.
type Kind int

const (
	// KindCPUCore is a cumulative per-core tick counter; its value is a
	// utilization percentage derived from successive snapshots.
	KindCPUCore Kind = iota
	// KindInt is an instantaneous integer node read raw each tick.
	KindInt
	// KindString is an instantaneous opaque text value.
	KindString
)

// Source identifies one physical counter. Immutable after discovery.
type Source struct {
	Name string
	Path string
	Kind Kind
	Core int // core index, meaningful for KindCPUCore only
}

// Catalog is the ordered counter list for this run: CPU cores first in
// ascending index order, then thermal zones, GPU nodes, and custom sensors
// in discovery order. Ordering is deterministic across runs on the same
// machine so downstream column layouts stay stable.
type Catalog struct {
	Sources []Source
}

// Cores returns the cumulative-CPU sources in order.
func (c *Catalog) Cores() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Kind == KindCPUCore {
			out = append(out, s)
		}
	}
	return out
}

// Extras returns the instantaneous sources in order.
func (c *Catalog) Extras() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Kind != KindCPUCore {
			out = append(out, s)
		}
	}
	return out
}

// Options locates the filesystem roots to enumerate. Zero-value fields
// fall back to the standard kernel paths.
type Options struct {
	StatPath    string
	CPUDir      string
	ThermalDir  string
	GPUDir      string
	SensorsFile string
}

const (
	DefaultStatPath   = "/proc/stat"
	DefaultCPUDir     = "/sys/devices/system/cpu"
	DefaultThermalDir = "/sys/class/thermal"
	DefaultGPUDir     = "/sys/class/kgsl/kgsl-3d0"
)

// The original tooling capped the sensor list at 50 entries; kept as a
// sanity bound, excess paths are ignored with a warning.
const maxSensors = 50

var ErrNoCPU = errors.New("catalog: no CPU accounting source")

func (o Options) withDefaults() Options {
	if o.StatPath == "" {
		o.StatPath = DefaultStatPath
	}
	if o.CPUDir == "" {
		o.CPUDir = DefaultCPUDir
	}
	if o.ThermalDir == "" {
		o.ThermalDir = DefaultThermalDir
	}
	if o.GPUDir == "" {
		o.GPUDir = DefaultGPUDir
	}
	return o
}

// Discover enumerates the machine's counters. The CPU accounting source is
// mandatory: an unreadable file and a readable-but-unparseable file are
// both fatal, reported distinctly. Every other subsystem is optional and
// contributes an empty sub-list when absent.
func Discover(log logger.Logger, opts Options) (*Catalog, error) {
	opts = opts.withDefaults()

	coreSet, err := probeStat(opts.StatPath)
	if err != nil {
		return nil, err
	}

	freqNodes := scanCPUDir(opts.CPUDir)
	for _, n := range freqNodes {
		if !containsInt(coreSet, n.core) {
			coreSet = append(coreSet, n.core)
		}
	}
	sort.Ints(coreSet)

	cat := &Catalog{}
	for _, idx := range coreSet {
		cat.Sources = append(cat.Sources, Source{
			Name: "cpu" + strconv.Itoa(idx),
			Path: opts.StatPath,
			Kind: KindCPUCore,
			Core: idx,
		})
	}

	// Frequency columns follow the utilization columns, one per core that
	// exposes a cpufreq node, in the same index order.
	for _, n := range freqNodes {
		cat.Sources = append(cat.Sources, Source{
			Name: "cpu" + strconv.Itoa(n.core) + "_freq_khz",
			Path: n.path,
			Kind: KindInt,
			Core: n.core,
		})
	}

	cat.Sources = append(cat.Sources, scanThermalZones(opts.ThermalDir)...)
	cat.Sources = append(cat.Sources, probeGPUNodes(opts.GPUDir)...)

	sensors, err := loadSensorList(log, opts.SensorsFile)
	if err != nil {
		log.Warn("sensor list unavailable, continuing without custom sensors",
			"file", opts.SensorsFile, "error", err)
	}
	cat.Sources = append(cat.Sources, sensors...)

	return cat, nil
}

// probeStat reads the accounting source once to learn which core indices
// report ticks at startup.
func probeStat(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoCPU, path, err)
	}
	cores := system.ParseStat(data)
	var idxs []int
	for i, c := range cores {
		if c.OK {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return nil, fmt.Errorf("%w: %s present but has no parseable core line", ErrNoCPU, path)
	}
	return idxs, nil
}

// freqNode is one per-core cpufreq counter found by the directory scan.
type freqNode struct {
	core int
	path string
}

// scanCPUDir finds cpu<N> entries that expose a readable cpufreq node.
// Each becomes a frequency column, and the scan also covers cores the
// accounting file does not currently list (offlined at start, onlined
// later). Results are ordered by core index.
func scanCPUDir(dir string) []freqNode {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var nodes []freqNode
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "cpu") {
			continue
		}
		idx, err := strconv.Atoi(name[3:])
		if err != nil || idx < 0 {
			continue
		}
		freq := dir + "/" + name + "/cpufreq/scaling_cur_freq"
		if _, err := os.Stat(freq); err != nil {
			continue
		}
		nodes = append(nodes, freqNode{core: idx, path: freq})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].core < nodes[j].core })
	return nodes
}

// scanThermalZones includes a zone only when its declared type contains
// "cpu" case-insensitively, named by that type string. Zones are ordered
// by their numeric suffix.
func scanThermalZones(dir string) []Source {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type zone struct {
		idx int
		src Source
	}
	var zones []zone
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "thermal_zone") {
			continue
		}
		idx, err := strconv.Atoi(name[len("thermal_zone"):])
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(dir + "/" + name + "/type")
		if err != nil {
			continue
		}
		zoneType := strings.TrimSpace(string(raw))
		if !strings.Contains(strings.ToLower(zoneType), "cpu") {
			continue
		}
		zones = append(zones, zone{idx: idx, src: Source{
			Name: zoneType,
			Path: dir + "/" + name + "/temp",
			Kind: KindInt,
		}})
	}

	sort.Slice(zones, func(i, j int) bool { return zones[i].idx < zones[j].idx })

	out := make([]Source, 0, len(zones))
	for _, z := range zones {
		out = append(out, z.src)
	}
	return out
}

// probeGPUNodes includes each known GPU counter node that exists.
func probeGPUNodes(dir string) []Source {
	nodes := []struct {
		file string
		name string
	}{
		{"temp", "gpu_temp_mC"},
		{"clock_mhz", "gpu_clock_mhz"},
		{"gpu_busy_percentage", "gpu_busy_pct"},
		{"default_pwrlevel", "gpu_pwrlevel"},
		{"throttling", "gpu_throttling"},
	}

	var out []Source
	for _, n := range nodes {
		path := dir + "/" + n.file
		if _, err := os.Stat(path); err != nil {
			continue
		}
		out = append(out, Source{Name: n.name, Path: path, Kind: KindInt})
	}
	return out
}

// loadSensorList reads one path per line, skipping blanks. Each sensor is
// an opaque string column named by its path.
func loadSensorList(log logger.Logger, file string) ([]Source, error) {
	if file == "" {
		return nil, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var out []Source
	skipped := 0
	for _, line := range strings.Split(string(data), "\n") {
		path := strings.TrimSpace(line)
		if path == "" {
			continue
		}
		if len(out) >= maxSensors {
			skipped++
			continue
		}
		out = append(out, Source{Name: path, Path: path, Kind: KindString})
	}
	if skipped > 0 {
		log.Warn("sensor list truncated", "file", file, "max", maxSensors, "ignored", skipped)
	}
	return out, nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
