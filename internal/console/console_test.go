package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwpulse/internal/collector"
)

func testRecord(seq uint64) collector.Record {
	return collector.Record{
		Seq:     seq,
		Taken:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Columns: []string{"cpu0", "cpu1", "gpu_busy_pct"},
		Values: []collector.Value{
			collector.PercentValue(42.5),
			collector.Unavail(),
			collector.IntValue(17),
		},
	}
}

func TestRendererBlock(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	require.NoError(t, r.Begin(testRecord(1).Columns))
	require.NoError(t, r.Write(testRecord(1)))

	out := buf.String()
	assert.Contains(t, out, "sample 1")
	assert.Contains(t, out, "cpu0")
	assert.Contains(t, out, "42.50%")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "17")

	// Header plus one line per column.
	assert.Equal(t, 4, r.Lines())
}

func TestRendererNonTTYNeverRepositions(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	require.NoError(t, r.Write(testRecord(1)))
	require.NoError(t, r.Write(testRecord(2)))

	assert.NotContains(t, buf.String(), "\033[F")
}

func TestRendererTTYOverwritesPreviousBlock(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)

	require.NoError(t, r.Write(testRecord(1)))
	first := buf.Len()
	require.NoError(t, r.Write(testRecord(2)))

	// The first block draws in place; the second rewinds over it.
	assert.NotContains(t, buf.String()[:first], "\033[F")
	assert.Equal(t, 4, strings.Count(buf.String()[first:], "\033[F\033[K"))
}

func TestRendererBlockGrowsWithSchema(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)

	require.NoError(t, r.Write(testRecord(1)))
	assert.Equal(t, 4, r.Lines())

	wide := testRecord(2)
	wide.Columns = append(wide.Columns, "cpu2")
	wide.Values = append(wide.Values, collector.PercentValue(1))
	require.NoError(t, r.Write(wide))

	// Only the previous block's 4 lines are rewound, then 5 are drawn.
	assert.Equal(t, 5, r.Lines())
}
