// Package stats aggregates counter samples incrementally. Mean and variance
// are maintained with Welford's online algorithm: constant memory across
// any number of runs, and none of the catastrophic cancellation a naive
// sum-of-squares accumulator suffers on large counter values.
package stats

import (
	"fmt"
	"math"
)

// CounterStat is the running state for one event: sample count, running
// mean and running sum of squared deviations (M2).
type CounterStat struct {
	n         uint64
	mean      float64
	m2        float64
	finalized bool
}

// Update folds one observed counter value into the running state.
func (s *CounterStat) Update(value uint64) {
	if s.finalized {
		panic("stats: update after finalize")
	}
	s.n++
	v := float64(value)
	delta := v - s.mean
	s.mean += delta / float64(s.n)
	delta2 := v - s.mean
	s.m2 += delta * delta2
}

// N returns the number of samples observed so far.
func (s *CounterStat) N() uint64 { return s.n }

// Result is a finalized counter statistic.
type Result struct {
	N     uint64
	Mean  float64
	Stdev float64

	// RSD is the relative standard deviation in percent: run-to-run noise
	// as a fraction of the mean. Zero when the mean is zero.
	RSD float64
}

// Finalize computes the sample standard deviation and relative standard
// deviation. A single run has no spread (stdev 0, not a division by zero),
// and an always-zero counter has RSD 0 rather than a 0/0. Each stat is
// finalized exactly once.
func (s *CounterStat) Finalize() Result {
	if s.finalized {
		panic("stats: finalized twice")
	}
	s.finalized = true

	r := Result{N: s.n, Mean: s.mean}
	if s.n > 1 {
		r.Stdev = math.Sqrt(s.m2 / float64(s.n-1))
	}
	if r.Mean != 0 {
		r.RSD = r.Stdev / r.Mean * 100
	}
	return r
}

// Batch aggregates one CounterStat per event and applies each run's sample
// to all of them together, so every event ends with an identical n equal to
// the number of completed runs.
type Batch struct {
	stats map[string]*CounterStat
}

// NewBatch creates empty counter state for every named event.
func NewBatch(names []string) *Batch {
	b := &Batch{stats: make(map[string]*CounterStat, len(names))}
	for _, name := range names {
		b.stats[name] = &CounterStat{}
	}
	return b
}

// Add applies one run's sample to every event's state as a single batch.
// The sample must contain a value for every event in the batch; a zero
// value is a valid sample, a missing key is not.
func (b *Batch) Add(sample map[string]uint64) error {
	for name := range b.stats {
		if _, ok := sample[name]; !ok {
			return fmt.Errorf("sample is missing a value for %s", name)
		}
	}
	for name, s := range b.stats {
		s.Update(sample[name])
	}
	return nil
}

// Runs returns the number of completed runs folded into the batch.
func (b *Batch) Runs() uint64 {
	for _, s := range b.stats {
		return s.n
	}
	return 0
}

// Finalize finalizes every counter in the batch.
func (b *Batch) Finalize() map[string]Result {
	out := make(map[string]Result, len(b.stats))
	for name, s := range b.stats {
		out[name] = s.Finalize()
	}
	return out
}
