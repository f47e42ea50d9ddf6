//go:build !linux

package pmc

import (
	"fmt"
	"runtime"

	"github.com/napolitain/benchpmc/event"
)

type stubDriver struct{}

// New returns a driver stub on platforms without perf_event support.
func New() Driver {
	return stubDriver{}
}

func (stubDriver) ProcessScope(name string) error {
	return fmt.Errorf("%s: hardware counters are not supported on %s: %w", name, runtime.GOOS, ErrNotFound)
}

func (stubDriver) Open(spec event.Spec) (Handle, error) {
	return nil, fmt.Errorf("%s: hardware counters are not supported on %s: %w", spec.Name(), runtime.GOOS, ErrNotFound)
}
