//go:build linux

package pmc

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/napolitain/benchpmc/event"
)

// perfEvents maps symbolic event specifiers to perf_event_open encodings.
// Generic hardware and software events are listed under their kernel names;
// a few common micro-architectural specifiers are mapped onto the closest
// generic counter the kernel exposes.
var perfEvents = map[string]struct {
	typ    uint32
	config uint64
}{
	"INSTRUCTIONS":            {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS},
	"CPU_CYCLES":              {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES},
	"CYCLES":                  {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES},
	"REF_CPU_CYCLES":          {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_REF_CPU_CYCLES},
	"BUS_CYCLES":              {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BUS_CYCLES},
	"CACHE_REFERENCES":        {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_REFERENCES},
	"CACHE_MISSES":            {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES},
	"BRANCH_INSTRUCTIONS":     {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS},
	"BRANCH_MISSES":           {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_MISSES},
	"STALLED_CYCLES_FRONTEND": {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_STALLED_CYCLES_FRONTEND},
	"STALLED_CYCLES_BACKEND":  {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_STALLED_CYCLES_BACKEND},

	"PAGE_FAULTS":      {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS},
	"PAGE_FAULTS_MIN":  {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS_MIN},
	"PAGE_FAULTS_MAJ":  {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS_MAJ},
	"CONTEXT_SWITCHES": {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CONTEXT_SWITCHES},
	"CPU_MIGRATIONS":   {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CPU_MIGRATIONS},

	"RESOURCE_STALLS.ANY":          {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_STALLED_CYCLES_BACKEND},
	"BR_INST_RETIRED.ALL_BRANCHES": {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS},
	"BR_MISP_RETIRED.ALL_BRANCHES": {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_MISSES},
	"LONGEST_LAT_CACHE.REFERENCE":  {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_REFERENCES},
	"LONGEST_LAT_CACHE.MISS":       {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES},
}

type perfDriver struct{}

// New returns the perf_event_open backed driver.
func New() Driver {
	return perfDriver{}
}

func (perfDriver) ProcessScope(name string) error {
	// Every event in the table is a per-task counter; unknown names are
	// simply not encodable by this backend.
	if _, ok := perfEvents[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return nil
}

func (perfDriver) Open(spec event.Spec) (Handle, error) {
	enc, ok := perfEvents[spec.Name()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", spec.Name(), ErrNotFound)
	}

	attr := unix.PerfEventAttr{
		Type:   enc.typ,
		Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Config: enc.config,
		Bits:   unix.PerfBitDisabled | unix.PerfBitInherit | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
	}

	return &perfHandle{name: spec.Name(), attr: attr, fd: -1}, nil
}

// perfHandle is a single perf counter. The file descriptor exists only
// between Attach and Close.
type perfHandle struct {
	name string
	attr unix.PerfEventAttr
	fd   int
}

func (h *perfHandle) Attach(pid int) error {
	fd, err := unix.PerfEventOpen(&h.attr, pid, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("attach %s to pid %d: %w", h.name, pid, mapErrno(err))
	}
	h.fd = fd
	return nil
}

func (h *perfHandle) Start() error {
	if err := unix.IoctlSetInt(h.fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
		return fmt.Errorf("start %s: %w", h.name, mapErrno(err))
	}
	return nil
}

func (h *perfHandle) Stop() error {
	if err := unix.IoctlSetInt(h.fd, unix.PERF_EVENT_IOC_DISABLE, 0); err != nil {
		return fmt.Errorf("stop %s: %w", h.name, mapErrno(err))
	}
	return nil
}

func (h *perfHandle) Read() (uint64, error) {
	buf := make([]byte, 8)
	n, err := unix.Read(h.fd, buf)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", h.name, mapErrno(err))
	}
	if n != 8 {
		return 0, fmt.Errorf("read %s: short read of %d bytes", h.name, n)
	}
	return binary.NativeEndian.Uint64(buf), nil
}

func (h *perfHandle) Close() error {
	if h.fd < 0 {
		return nil
	}
	err := unix.Close(h.fd)
	h.fd = -1
	if err != nil {
		return fmt.Errorf("close %s: %w", h.name, mapErrno(err))
	}
	return nil
}

func mapErrno(err error) error {
	switch err {
	case unix.ENOENT, unix.ENODEV, unix.EOPNOTSUPP, unix.ENOSYS:
		return ErrNotFound
	case unix.EACCES, unix.EPERM:
		return fmt.Errorf("%w (try: sudo sysctl kernel.perf_event_paranoid=1)", ErrPermission)
	case unix.EMFILE, unix.ENOSPC:
		return ErrExhausted
	}
	return err
}
