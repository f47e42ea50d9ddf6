// Package report renders aggregated counter statistics as a comparative
// text report.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/napolitain/benchpmc/stats"
)

// Line is one event's finalized statistic under its display name.
type Line struct {
	Name string
	Stat stats.Result
}

// Group is an ordered run of lines sharing a baseline event against which
// the others are expressed as a percentage. Grouping is decided by the
// caller; the renderer never infers boundaries.
type Group struct {
	// Baseline indexes the group's baseline line. The zero value picks the
	// first event, matching the default of "relative to the first".
	Baseline int
	Lines    []Line
}

// Report is an ordered sequence of groups. Line order within a group is
// the order events were requested; the renderer does not sort or regroup.
type Report struct {
	Groups []Group
}

// Render formats the report. One line per event:
//
//	instructions: 19,031,333,328 ±0.1%    ( 36.8% of instructions)
//
// The spread column prints a bare 0 when the standard deviation is exactly
// zero: an undefined variability (single run) and a measured-stable one
// render alike rather than as a misleading ±0.0%. The relative column is
// omitted for the baseline itself and whenever the baseline mean is zero.
func (r Report) Render() string {
	var sb strings.Builder
	for gi, g := range r.Groups {
		if gi > 0 {
			sb.WriteByte('\n')
		}
		renderGroup(&sb, g)
	}
	return sb.String()
}

func renderGroup(sb *strings.Builder, g Group) {
	if len(g.Lines) == 0 {
		return
	}
	base := g.Lines[g.Baseline]

	for i, l := range g.Lines {
		fmt.Fprintf(sb, "%30s: %14s %s", l.Name, formatMean(l.Stat.Mean), formatSpread(l.Stat))
		if i != g.Baseline && base.Stat.Mean != 0 {
			rel := l.Stat.Mean / base.Stat.Mean * 100
			fmt.Fprintf(sb, "    (%5.1f%% of %s)", rel, base.Name)
		}
		sb.WriteByte('\n')
	}
}

func formatMean(mean float64) string {
	return humanize.Comma(int64(math.Round(mean)))
}

func formatSpread(r stats.Result) string {
	if r.Stdev == 0 {
		return "0"
	}
	return fmt.Sprintf("±%.1f%%", r.RSD)
}
