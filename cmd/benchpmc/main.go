// benchpmc benchmarks a target binary under hardware performance counters.
//
// The target is executed a fixed number of times with every requested event
// attached before its first instruction runs. Counter values are aggregated
// across runs and printed as a comparative report: mean, relative standard
// deviation, and a percentage against a baseline event.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/napolitain/benchpmc/event"
	"github.com/napolitain/benchpmc/pmc"
)

const (
	exitOK     = 0
	exitError  = 1 // driver or process failure
	exitConfig = 2 // rejected before any run
)

// errConfig marks failures detected before the first run: flag misuse,
// invalid or unsupported events, register exhaustion.
var errConfig = errors.New("invalid configuration")

var (
	eventFlags   []string
	runCount     int
	baselineFlag string
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "benchpmc [flags] <target> [-- <target-args>...]",
	Short: "Benchmark targets using CPU performance counters",
	Long: `benchpmc executes a target binary repeatedly with hardware performance
counters attached, then prints per-event means, run-to-run noise as a
relative standard deviation, and baseline-relative percentages.

Event specifiers use EVENT or EVENT.SUBEVENT syntax (e.g. INSTRUCTIONS,
RESOURCE_STALLS.LB). Only per-process events are supported. With no
--event flags a default set is measured: instructions with stall and
branch comparators, plus cache references and misses.

The kernel perf facility must be available; lower
kernel.perf_event_paranoid if opening counters is denied.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf("%w: missing target binary", errConfig)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return bench(cmd.Context(), args[0], args[1:])
	},
}

func init() {
	rootCmd.Flags().StringArrayVarP(&eventFlags, "event", "e", nil, "event to measure; may be repeated")
	rootCmd.Flags().IntVarP(&runCount, "runs", "n", 10, "number of times to measure the target")
	rootCmd.Flags().StringVar(&baselineFlag, "baseline", "", "event the relative column is computed against (default: first event)")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable styled output")

	// Everything after the target is forwarded to it verbatim.
	rootCmd.Flags().SetInterspersed(false)

	// Flag misuse is a configuration failure like any other.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errConfig, err)
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "benchpmc: %v\n", err)
	os.Exit(exitCode(err))
}

// exitCode maps the error taxonomy onto exit statuses: configuration
// failures exit 2, driver and process failures exit 1.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch {
	case errors.Is(err, errConfig),
		errors.Is(err, event.ErrInvalidName),
		errors.Is(err, event.ErrUnsupportedScope),
		errors.Is(err, pmc.ErrExhausted):
		return exitConfig
	}
	return exitError
}
