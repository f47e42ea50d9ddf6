package pmc

import (
	"fmt"

	"github.com/napolitain/benchpmc/event"
)

// MockDriver is an in-memory driver for tests. Counter values are scripted
// per event, errors can be injected per operation, and every driver call is
// appended to Calls so ordering and release discipline can be asserted.
type MockDriver struct {
	// Values holds the sequence of values successive Reads return for an
	// event. When the sequence is exhausted the last value repeats; an
	// event with no entry reads as zero.
	Values map[string][]uint64

	ScopeErrs map[string]error
	OpenErrs  map[string]error

	AttachErr error
	StartErr  error
	StopErr   error
	ReadErr   error
	CloseErr  error

	Calls []string

	reads map[string]int
	open  int
}

// NewMockDriver returns a MockDriver with no scripted values; every event
// is accepted and reads as zero.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		Values: make(map[string][]uint64),
		reads:  make(map[string]int),
	}
}

func (d *MockDriver) ProcessScope(name string) error {
	d.Calls = append(d.Calls, "scope "+name)
	if err := d.ScopeErrs[name]; err != nil {
		return err
	}
	return nil
}

func (d *MockDriver) Open(spec event.Spec) (Handle, error) {
	d.Calls = append(d.Calls, "open "+spec.Name())
	if err := d.OpenErrs[spec.Name()]; err != nil {
		return nil, err
	}
	d.open++
	return &mockHandle{d: d, name: spec.Name()}, nil
}

// OpenHandles returns the number of handles opened and not yet closed.
func (d *MockDriver) OpenHandles() int { return d.open }

type mockHandle struct {
	d      *MockDriver
	name   string
	closed bool
}

func (h *mockHandle) Attach(pid int) error {
	h.d.Calls = append(h.d.Calls, "attach "+h.name)
	return h.d.AttachErr
}

func (h *mockHandle) Start() error {
	h.d.Calls = append(h.d.Calls, "start "+h.name)
	return h.d.StartErr
}

func (h *mockHandle) Stop() error {
	h.d.Calls = append(h.d.Calls, "stop "+h.name)
	return h.d.StopErr
}

func (h *mockHandle) Read() (uint64, error) {
	h.d.Calls = append(h.d.Calls, "read "+h.name)
	if h.d.ReadErr != nil {
		return 0, h.d.ReadErr
	}
	vs := h.d.Values[h.name]
	if len(vs) == 0 {
		return 0, nil
	}
	i := h.d.reads[h.name]
	if i >= len(vs) {
		i = len(vs) - 1
	}
	h.d.reads[h.name]++
	return vs[i], nil
}

func (h *mockHandle) Close() error {
	h.d.Calls = append(h.d.Calls, "close "+h.name)
	if h.closed {
		return fmt.Errorf("%s: handle closed twice", h.name)
	}
	h.closed = true
	h.d.open--
	return h.d.CloseErr
}
