package csvlog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwpulse/internal/collector"
	"hwpulse/internal/logger"
)

func record(seq uint64, values ...collector.Value) collector.Record {
	cols := make([]string, len(values))
	for i := range cols {
		cols[i] = "c" + strings.Repeat("x", i)
	}
	return collector.Record{Seq: seq, Taken: time.Now(), Columns: cols, Values: values}
}

func TestWriterHeaderOnceThenRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(logger.Discard(), &buf)

	require.NoError(t, w.Begin([]string{"cpu0", "cpu1", "gpu_busy_pct"}))
	require.NoError(t, w.Write(collector.Record{
		Seq:     1,
		Columns: []string{"cpu0", "cpu1", "gpu_busy_pct"},
		Values: []collector.Value{
			collector.PercentValue(50),
			collector.Unavail(),
			collector.IntValue(17),
		},
	}))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "sample,cpu0,cpu1,gpu_busy_pct", lines[0])
	assert.Equal(t, "1,50.00,N/A,17", lines[1])
}

func TestWriterWidensRowsAppendOnly(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(logger.Discard(), &buf)

	require.NoError(t, w.Begin([]string{"cpu0"}))
	require.NoError(t, w.Write(collector.Record{
		Seq:     1,
		Columns: []string{"cpu0"},
		Values:  []collector.Value{collector.PercentValue(10)},
	}))
	require.NoError(t, w.Write(collector.Record{
		Seq:     2,
		Columns: []string{"cpu0", "cpu1"},
		Values:  []collector.Value{collector.PercentValue(20), collector.PercentValue(30)},
	}))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "sample,cpu0", lines[0])
	assert.Equal(t, "1,10.00", lines[1])
	assert.Equal(t, "2,20.00,30.00", lines[2])
}

func TestWriterQuotesSensorText(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(logger.Discard(), &buf)

	require.NoError(t, w.Begin([]string{"sensor"}))
	require.NoError(t, w.Write(collector.Record{
		Seq:     1,
		Columns: []string{"sensor"},
		Values:  []collector.Value{collector.TextValue("a,b")},
	}))
	require.NoError(t, w.Close())

	assert.Contains(t, buf.String(), `"a,b"`)
}

func TestWriterFlushesOnClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(logger.Discard(), &buf)
	require.NoError(t, w.Begin([]string{"cpu0"}))

	// Fewer rows than the flush threshold: Close must still drain them.
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, w.Write(record(seq, collector.PercentValue(1))))
	}
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
}
