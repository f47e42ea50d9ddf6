package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoPass computes mean and sample standard deviation the textbook way for
// comparison against the online aggregator.
func twoPass(values []uint64) (mean, stdev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean = sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var m2 float64
	for _, v := range values {
		d := float64(v) - mean
		m2 += d * d
	}
	return mean, math.Sqrt(m2 / float64(len(values)-1))
}

func TestOnlineMatchesTwoPass(t *testing.T) {
	sequences := map[string][]uint64{
		"benchpmc reference": {0, 10, 20, 30, 40},
		"constant":           {1234, 1234, 1234, 1234},
		"all zero":           {0, 0, 0, 0, 0, 0},
		"single":             {42},
		"large counts":       {19031333328, 19031333912, 19031334803, 19031333551},
		"mixed":              {0, 1, 0, 99999999, 17},
	}

	for name, values := range sequences {
		t.Run(name, func(t *testing.T) {
			var s CounterStat
			for _, v := range values {
				s.Update(v)
			}
			r := s.Finalize()

			wantMean, wantStdev := twoPass(values)
			assert.Equal(t, uint64(len(values)), r.N)
			assert.InEpsilon(t, wantMean+1, r.Mean+1, 1e-9)
			if wantStdev == 0 {
				assert.Zero(t, r.Stdev)
			} else {
				assert.InEpsilon(t, wantStdev, r.Stdev, 1e-9)
			}
		})
	}
}

func TestConstantRunsHaveZeroSpread(t *testing.T) {
	var s CounterStat
	for i := 0; i < 100; i++ {
		s.Update(777)
	}
	r := s.Finalize()

	assert.Equal(t, 777.0, r.Mean)
	assert.Zero(t, r.Stdev)
	assert.Zero(t, r.RSD)
	assert.False(t, math.IsNaN(r.RSD))
}

func TestSingleRun(t *testing.T) {
	var s CounterStat
	s.Update(42)
	r := s.Finalize()

	assert.Equal(t, uint64(1), r.N)
	assert.Equal(t, 42.0, r.Mean)
	assert.Zero(t, r.Stdev)
	assert.Zero(t, r.RSD)
}

func TestAlwaysZeroCounter(t *testing.T) {
	var s CounterStat
	for i := 0; i < 5; i++ {
		s.Update(0)
	}
	r := s.Finalize()

	assert.Zero(t, r.Mean)
	assert.Zero(t, r.Stdev)
	assert.Zero(t, r.RSD, "zero mean must not divide")
	assert.False(t, math.IsNaN(r.RSD))
}

func TestRSD(t *testing.T) {
	// Matches the benchpmc reference sequence: mean 20, stdev ~15.81.
	var s CounterStat
	for _, v := range []uint64{0, 10, 20, 30, 40} {
		s.Update(v)
	}
	r := s.Finalize()

	assert.InEpsilon(t, 20.0, r.Mean, 1e-9)
	assert.InEpsilon(t, 15.8113883, r.Stdev, 1e-6)
	assert.InEpsilon(t, 79.0569415, r.RSD, 1e-6)
}

func TestFinalizeTwicePanics(t *testing.T) {
	var s CounterStat
	s.Update(1)
	s.Finalize()
	assert.Panics(t, func() { s.Finalize() })
}

func TestUpdateAfterFinalizePanics(t *testing.T) {
	var s CounterStat
	s.Update(1)
	s.Finalize()
	assert.Panics(t, func() { s.Update(2) })
}

func TestBatch(t *testing.T) {
	b := NewBatch([]string{"INSTRUCTIONS", "CACHE_MISSES"})
	require.NoError(t, b.Add(map[string]uint64{"INSTRUCTIONS": 100, "CACHE_MISSES": 0}))
	require.NoError(t, b.Add(map[string]uint64{"INSTRUCTIONS": 200, "CACHE_MISSES": 0}))

	assert.Equal(t, uint64(2), b.Runs())

	results := b.Finalize()
	require.Len(t, results, 2)
	assert.Equal(t, uint64(2), results["INSTRUCTIONS"].N)
	assert.Equal(t, uint64(2), results["CACHE_MISSES"].N, "zero reads are samples too")
	assert.Equal(t, 150.0, results["INSTRUCTIONS"].Mean)
	assert.Zero(t, results["CACHE_MISSES"].Mean)
}

func TestBatchRejectsIncompleteSample(t *testing.T) {
	b := NewBatch([]string{"INSTRUCTIONS", "CACHE_MISSES"})
	err := b.Add(map[string]uint64{"INSTRUCTIONS": 100})
	require.Error(t, err)
	assert.Equal(t, uint64(0), b.Runs(), "partial sample must not update any counter")
}
