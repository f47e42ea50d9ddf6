// Package runner executes a target binary repeatedly with hardware counters
// attached, producing one raw sample per requested event per run.
//
// Runs are strictly sequential: counter registers are a scarce, process
// global resource, and attaching counters to a second process while a first
// is still attached risks register reuse contaminating the measurement.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/napolitain/benchpmc/event"
	"github.com/napolitain/benchpmc/pmc"
	"github.com/napolitain/benchpmc/stats"
)

// ErrProcess is the class of target process failures: spawn errors,
// nonzero exits and signal deaths. Any of them aborts the whole benchmark;
// remaining runs could not be meaningfully compared against a shortened
// sample set.
var ErrProcess = errors.New("target process failed")

// Sample maps event specifier names to the counter value of one completed
// run. A zero value is a valid sample, not a missing one.
type Sample map[string]uint64

// Runner supervises repeated measured executions of one target binary.
type Runner struct {
	Driver pmc.Driver
	Target string
	Args   []string

	// Target stdio; nil fields fall back to the os streams.
	Stdin          io.Reader
	Stdout, Stderr io.Writer
}

// Progress is invoked after each completed run.
type Progress func(run, total int, elapsed time.Duration)

// Preflight validates every spec for per-process scope and probes the
// hardware for register pressure by attaching every counter to this process
// at once. Both failure modes are configuration errors and must surface
// before the first run, not mid-benchmark.
func Preflight(d pmc.Driver, specs []event.Spec) ([]event.Spec, error) {
	validated := make([]event.Spec, 0, len(specs))
	for _, s := range specs {
		v, err := event.Validate(s, d)
		if err != nil {
			return nil, err
		}
		validated = append(validated, v)
	}

	handles := make([]pmc.Handle, 0, len(validated))
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()
	for _, s := range validated {
		h, err := d.Open(s)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
		if err := h.Attach(0); err != nil {
			return nil, err
		}
	}

	return validated, nil
}

// Run executes the target runs times, feeding every completed run's sample
// into agg as one batch. The first failure aborts the benchmark;
// accumulated samples are then meaningless and must be discarded by the
// caller (no partial report).
func (r *Runner) Run(ctx context.Context, specs []event.Spec, runs int, agg *stats.Batch, progress Progress) error {
	if runs < 1 {
		return fmt.Errorf("run count must be at least 1, got %d", runs)
	}

	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		sample, err := r.RunOnce(ctx, specs)
		if err != nil {
			return err
		}
		if err := agg.Add(sample); err != nil {
			return err
		}
		if progress != nil {
			progress(i+1, runs, time.Since(start))
		}
	}

	return nil
}

// RunOnce performs a single measured execution: spawn the target stopped,
// open and attach every counter, start them, resume the target and block
// until it exits, then stop, read and close every counter in that order.
// Handles are released on every exit path.
func (r *Runner) RunOnce(ctx context.Context, specs []event.Spec) (Sample, error) {
	child, err := spawnStopped(r.Target, r.Args, r.stdin(), r.stdout(), r.stderr())
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %v: %w", r.Target, err, ErrProcess)
	}

	handles := make([]pmc.Handle, 0, len(specs))
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()

	for _, spec := range specs {
		h, err := r.Driver.Open(spec)
		if err != nil {
			child.abort()
			return nil, err
		}
		handles = append(handles, h)
		if err := h.Attach(child.pid); err != nil {
			child.abort()
			return nil, err
		}
	}
	for _, h := range handles {
		if err := h.Start(); err != nil {
			child.abort()
			return nil, err
		}
	}

	runErr := child.run(ctx)

	var stopErr error
	for _, h := range handles {
		if err := h.Stop(); err != nil && stopErr == nil {
			stopErr = err
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if stopErr != nil {
		return nil, stopErr
	}

	sample := make(Sample, len(specs))
	for i, h := range handles {
		v, err := h.Read()
		if err != nil {
			return nil, err
		}
		sample[specs[i].Name()] = v
	}
	return sample, nil
}

func (r *Runner) stdin() io.Reader {
	if r.Stdin != nil {
		return r.Stdin
	}
	return os.Stdin
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}
