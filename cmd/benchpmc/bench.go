package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/napolitain/benchpmc/event"
	"github.com/napolitain/benchpmc/pmc"
	"github.com/napolitain/benchpmc/report"
	"github.com/napolitain/benchpmc/runner"
	"github.com/napolitain/benchpmc/stats"
)

var (
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFE66D"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
)

// group is an ordered set of events reported together, with the index of
// the event the others are expressed relative to.
type group struct {
	baseline int
	specs    []event.Spec
}

// defaultComparators are measured relative to instructions when no --event
// is given. Events the backend cannot provide are skipped with a note.
var defaultComparators = []struct{ name, alias string }{
	{"RESOURCE_STALLS.ANY", "resource-stalls"},
	{"BR_INST_RETIRED.ALL_BRANCHES", "speculated-good"},
	{"BR_MISP_RETIRED.ALL_BRANCHES", "speculated-bad"},
	{"PAGE_FAULTS", "page-faults"},
}

func bench(ctx context.Context, target string, targetArgs []string) error {
	if runCount < 1 {
		return fmt.Errorf("%w: --runs must be at least 1, got %d", errConfig, runCount)
	}

	driver := pmc.New()
	groups, err := buildGroups(driver, eventFlags, baselineFlag, os.Stderr)
	if err != nil {
		return err
	}

	flat := flatten(groups)
	validated, err := runner.Preflight(driver, flat)
	if err != nil {
		return err
	}

	names := make([]string, len(flat))
	for i, s := range flat {
		names[i] = s.Name()
	}
	agg := stats.NewBatch(names)

	fmt.Printf("%s running %d '%s' with args %v\n", prompt(), runCount, target, targetArgs)

	r := &runner.Runner{Driver: driver, Target: target, Args: targetArgs}
	if err := r.Run(ctx, validated, runCount, agg, printProgress); err != nil {
		// Accumulated samples are discarded; a report averaged over a
		// shortened sample set would not be comparable.
		return err
	}

	fmt.Println()
	fmt.Print(buildReport(groups, agg.Finalize()).Render())
	return nil
}

// buildGroups turns --event flags into a single report group, or builds
// the default groups when no events were requested. The baseline name, if
// given, must match a requested event.
func buildGroups(d pmc.Driver, events []string, baseline string, warn io.Writer) ([]group, error) {
	var groups []group
	if len(events) > 0 {
		g := group{}
		seen := make(map[string]bool, len(events))
		for _, text := range events {
			spec, err := event.Parse(text)
			if err != nil {
				return nil, err
			}
			if seen[spec.Name()] {
				return nil, fmt.Errorf("%w: event %s requested twice", errConfig, spec.Name())
			}
			seen[spec.Name()] = true
			g.specs = append(g.specs, spec)
		}
		groups = []group{g}
	} else {
		var err error
		groups, err = defaultGroups(d, warn)
		if err != nil {
			return nil, err
		}
	}

	if baseline != "" {
		if !setBaseline(groups, baseline) {
			return nil, fmt.Errorf("%w: baseline %s is not among the measured events", errConfig, baseline)
		}
	}
	return groups, nil
}

// defaultGroups mirrors the classic benchpmc selection: instructions with
// stall and branch comparators, and a second group of cache references
// with misses.
func defaultGroups(d pmc.Driver, warn io.Writer) ([]group, error) {
	instructions := event.MustParse("INSTRUCTIONS").WithAlias("instructions")
	if err := d.ProcessScope(instructions.Name()); err != nil {
		return nil, fmt.Errorf("initialising counter: %w", err)
	}

	main := group{specs: []event.Spec{instructions}}
	for _, c := range defaultComparators {
		spec := event.MustParse(c.name).WithAlias(c.alias)
		if err := d.ProcessScope(spec.Name()); err != nil {
			fmt.Fprintf(warn, "%s: %v (skipped)\n", c.name, err)
			continue
		}
		main.specs = append(main.specs, spec)
	}
	groups := []group{main}

	refs := event.MustParse("LONGEST_LAT_CACHE.REFERENCE").WithAlias("cache-references")
	if err := d.ProcessScope(refs.Name()); err != nil {
		fmt.Fprintf(warn, "%s: %v (skipped)\n", refs.Name(), err)
		return groups, nil
	}
	cache := group{specs: []event.Spec{refs}}

	misses := event.MustParse("LONGEST_LAT_CACHE.MISS").WithAlias("cache-misses")
	if err := d.ProcessScope(misses.Name()); err != nil {
		fmt.Fprintf(warn, "%s: %v (skipped)\n", misses.Name(), err)
	} else {
		cache.specs = append(cache.specs, misses)
	}

	return append(groups, cache), nil
}

func setBaseline(groups []group, name string) bool {
	for gi := range groups {
		for i, s := range groups[gi].specs {
			if s.Name() == name || s.Alias() == name {
				groups[gi].baseline = i
				return true
			}
		}
	}
	return false
}

func flatten(groups []group) []event.Spec {
	var out []event.Spec
	for _, g := range groups {
		out = append(out, g.specs...)
	}
	return out
}

// buildReport pairs every requested event, in request order, with its
// finalized statistic.
func buildReport(groups []group, results map[string]stats.Result) report.Report {
	var rep report.Report
	for _, g := range groups {
		rg := report.Group{Baseline: g.baseline}
		for _, s := range g.specs {
			rg.Lines = append(rg.Lines, report.Line{
				Name: s.Display(),
				Stat: results[s.Name()],
			})
		}
		rep.Groups = append(rep.Groups, rg)
	}
	return rep
}

func printProgress(run, total int, elapsed time.Duration) {
	counter := fmt.Sprintf("[%d/%d]", run, total)
	if !noColor {
		counter = progressStyle.Render(counter)
	}
	fmt.Printf("%s%s\truntime: %dms\n", prompt(), counter, elapsed.Milliseconds())
}

func prompt() string {
	if noColor {
		return "==> "
	}
	return promptStyle.Render("==> ")
}
