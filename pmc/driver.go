// Package pmc abstracts the kernel hardware performance counter facility
// behind a small capability interface so a simulated backend can substitute
// for the real one in tests.
package pmc

import (
	"errors"

	"github.com/napolitain/benchpmc/event"
)

var (
	// ErrNotFound is returned when the backend has no counter for the
	// requested event, or when the counter facility itself is unavailable.
	ErrNotFound = errors.New("event not supported by the counter facility")

	// ErrPermission is returned when the kernel denies access to the
	// counter facility.
	ErrPermission = errors.New("permission denied by the counter facility")

	// ErrExhausted is returned when no hardware counter register is free
	// for another concurrent event.
	ErrExhausted = errors.New("out of hardware counter registers")
)

// Handle is one opened counter, scoped to a single process once attached.
type Handle interface {
	// Attach binds the counter to pid. Register pressure from too many
	// concurrent events surfaces here as ErrExhausted.
	Attach(pid int) error
	Start() error
	Stop() error
	Read() (uint64, error)
	Close() error
}

// Driver opens named hardware counters. Failures are never retried by
// callers; any error is fatal to the current benchmark invocation.
type Driver interface {
	// ProcessScope reports whether the named event can be counted for a
	// single process. Implements event.Capability.
	ProcessScope(name string) error

	Open(spec event.Spec) (Handle, error)
}
