package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napolitain/benchpmc/stats"
)

func line(name string, mean, stdev, rsd float64) Line {
	return Line{Name: name, Stat: stats.Result{N: 10, Mean: mean, Stdev: stdev, RSD: rsd}}
}

func TestRelativeColumn(t *testing.T) {
	r := Report{Groups: []Group{{
		Lines: []Line{
			line("instructions", 1000, 0, 0),
			line("resource-stalls", 250, 0, 0),
		},
	}}}

	out := r.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)

	assert.NotContains(t, lines[0], "% of", "baseline line carries no relative column")
	assert.Contains(t, lines[1], "25.0% of instructions")
}

func TestZeroBaselineOmitsRatio(t *testing.T) {
	r := Report{Groups: []Group{{
		Lines: []Line{
			line("instructions", 0, 0, 0),
			line("resource-stalls", 250, 0, 0),
			line("speculated-bad", 10, 0, 0),
		},
	}}}

	out := r.Render()
	assert.NotContains(t, out, "% of", "undefined ratio must be omitted for all events")
}

func TestConfiguredBaseline(t *testing.T) {
	r := Report{Groups: []Group{{
		Baseline: 1,
		Lines: []Line{
			line("cache-misses", 50, 0, 0),
			line("cache-references", 200, 0, 0),
		},
	}}}

	out := r.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "25.0% of cache-references")
	assert.NotContains(t, lines[1], "% of")
}

func TestSpreadColumn(t *testing.T) {
	r := Report{Groups: []Group{{
		Lines: []Line{
			line("instructions", 1000, 4.2, 0.42),
			line("resource-stalls", 400, 0, 0),
		},
	}}}

	out := r.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)

	assert.Contains(t, lines[0], "±0.4%")
	assert.NotContains(t, lines[1], "±", "zero spread renders as a bare 0")
	assert.Contains(t, lines[1], " 0")
}

func TestOrderPreserved(t *testing.T) {
	r := Report{Groups: []Group{{
		Lines: []Line{
			line("ZEBRA", 1, 0, 0),
			line("apple", 99999999, 0, 0),
			line("MIDDLE", 5, 0, 0),
		},
	}}}

	out := r.Render()
	require.True(t, strings.Index(out, "ZEBRA") < strings.Index(out, "apple"))
	require.True(t, strings.Index(out, "apple") < strings.Index(out, "MIDDLE"))
}

func TestGroupSeparator(t *testing.T) {
	r := Report{Groups: []Group{
		{Lines: []Line{line("instructions", 100, 0, 0)}},
		{Lines: []Line{line("cache-references", 10, 0, 0), line("cache-misses", 5, 0, 0)}},
	}}

	out := r.Render()
	assert.Contains(t, out, "\n\n", "groups are separated by a blank line")

	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[1], "50.0% of cache-references")
}

func TestDigitGrouping(t *testing.T) {
	r := Report{Groups: []Group{{
		Lines: []Line{line("instructions", 19031333328, 0, 0)},
	}}}

	assert.Contains(t, r.Render(), "19,031,333,328")
}
