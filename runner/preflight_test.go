package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napolitain/benchpmc/event"
	"github.com/napolitain/benchpmc/pmc"
)

func specs(names ...string) []event.Spec {
	out := make([]event.Spec, len(names))
	for i, n := range names {
		out[i] = event.MustParse(n)
	}
	return out
}

func TestPreflight(t *testing.T) {
	d := pmc.NewMockDriver()

	validated, err := Preflight(d, specs("INSTRUCTIONS", "CACHE_MISSES"))
	require.NoError(t, err)
	require.Len(t, validated, 2)
	assert.True(t, validated[0].ProcessScoped())
	assert.True(t, validated[1].ProcessScoped())
	assert.Zero(t, d.OpenHandles(), "probe handles must be released")
}

func TestPreflightRejectsSystemScope(t *testing.T) {
	d := pmc.NewMockDriver()
	d.ScopeErrs = map[string]error{"UNCORE_IMC.READS": event.ErrUnsupportedScope}

	_, err := Preflight(d, specs("INSTRUCTIONS", "UNCORE_IMC.READS"))
	require.ErrorIs(t, err, event.ErrUnsupportedScope)
	assert.Zero(t, d.OpenHandles())
}

func TestPreflightDetectsRegisterPressure(t *testing.T) {
	d := pmc.NewMockDriver()
	d.AttachErr = pmc.ErrExhausted

	_, err := Preflight(d, specs("INSTRUCTIONS"))
	require.ErrorIs(t, err, pmc.ErrExhausted)
	assert.Zero(t, d.OpenHandles(), "handles must be released on the error path")
}

func TestPreflightUnknownEvent(t *testing.T) {
	d := pmc.NewMockDriver()
	d.ScopeErrs = map[string]error{"NOT_A_COUNTER": pmc.ErrNotFound}

	_, err := Preflight(d, specs("NOT_A_COUNTER"))
	require.ErrorIs(t, err, pmc.ErrNotFound)
}
