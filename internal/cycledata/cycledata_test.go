package cycledata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkWritesHeaderOnceAcrossRecords(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir)
	require.NoError(t, sink.SetOutputName("run1"))

	r1 := NewRecord(sink, "run1")
	r1.SetFloat("InitP", 12.345, 3)
	require.NoError(t, r1.Finish())

	r2 := NewRecord(sink, "run1")
	r2.SetFloat("InitP", 99.1, 3)
	require.NoError(t, r2.Finish())

	require.NoError(t, sink.Close())

	data, err := os.ReadFile(filepath.Join(dir, "run1.xl"))
	require.NoError(t, err)
	lines := splitLines(string(data))
	require.Len(t, lines, 3) // header + 2 rows
	assert.Contains(t, lines[0], "InitP")
	assert.Contains(t, lines[1], "12.345")
	assert.Contains(t, lines[2], "99.100")
}

func TestRecordFormatsNaNAsNoneSentinel(t *testing.T) {
	assert.Equal(t, "NONE", FormatFloat(nanValue(), 3))
	assert.Equal(t, "NONE", FormatScientific(nanValue()))
}

func TestMeanAndStdev(t *testing.T) {
	samples := []float64{10, 10, 10}
	assert.InDelta(t, 10, Mean(samples), 1e-9)
	assert.InDelta(t, 0, Stdev(samples), 1e-9)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}
