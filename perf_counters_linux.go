//go:build linux

// Package stream Linux hardware counter backend built on perf_event_open
package stream

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// perfEvent is one hardware event and the snapshot field it feeds.
type perfEvent struct {
	name   string
	typ    uint32
	config uint64
}

// cacheConfig encodes a PERF_TYPE_HW_CACHE event.
func cacheConfig(cache, op, result uint64) uint64 {
	return cache | op<<8 | result<<16
}

// Indices into perfEvents / HardwareBackend.fds
const (
	evCycles = iota
	evInstructions
	evL1DLoads
	evL1DMisses
	evLLCLoads
	evLLCMisses
	numPerfEvents
)

var perfEvents = [numPerfEvents]perfEvent{
	{"cycles", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES},
	{"instructions", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS},
	{"L1-dcache-loads", unix.PERF_TYPE_HW_CACHE, cacheConfig(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)},
	{"L1-dcache-load-misses", unix.PERF_TYPE_HW_CACHE, cacheConfig(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)},
	{"LLC-loads", unix.PERF_TYPE_HW_CACHE, cacheConfig(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)},
	{"LLC-load-misses", unix.PERF_TYPE_HW_CACHE, cacheConfig(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)},
}

// HardwareBackend reads CPU counters through perf_event_open. Counters are
// opened with inherit set for the calling process, so they cover every OS
// thread the runtime creates after the backend is opened. There is no generic
// L2 event; L2 fields are reported as zero.
type HardwareBackend struct {
	clock Clock
	fds   [numPerfEvents]int
	caps  Capability
	buf   [8]byte
}

// NewHardwareBackend opens the hardware events. Cache events the PMU does not
// expose are skipped; failing to open cycles or instructions is an error.
func NewHardwareBackend(clock Clock) (*HardwareBackend, error) {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	b := &HardwareBackend{clock: clock, caps: CapTimestamp}
	for i := range b.fds {
		b.fds[i] = -1
	}

	for i, ev := range perfEvents {
		attr := &unix.PerfEventAttr{
			Type:   ev.typ,
			Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
			Config: ev.config,
			Bits:   unix.PerfBitDisabled | unix.PerfBitInherit | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
		}

		// Monitor current process on any CPU
		fd, err := unix.PerfEventOpen(attr, 0, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			if i <= evInstructions {
				b.Close()
				return nil, NewCounterError("NewHardwareBackend", fmt.Sprintf("failed to open perf event %s", ev.name), err)
			}
			Logger().WithError(err).Debugf("perf event %s unavailable", ev.name)
			continue
		}
		b.fds[i] = fd
	}

	b.caps |= CapCycles | CapInstructions
	if b.fds[evL1DLoads] >= 0 && b.fds[evL1DMisses] >= 0 {
		b.caps |= CapL1D
	}
	if b.fds[evLLCLoads] >= 0 && b.fds[evLLCMisses] >= 0 {
		b.caps |= CapL3
	}
	return b, nil
}

func (b *HardwareBackend) Name() string             { return "perf_event" }
func (b *HardwareBackend) Capabilities() Capability { return b.caps }

// ioctlAll applies req to every open counter.
func (b *HardwareBackend) ioctlAll(req uint) error {
	for i, fd := range b.fds {
		if fd < 0 {
			continue
		}
		if err := unix.IoctlSetInt(fd, req, 0); err != nil {
			return fmt.Errorf("ioctl %#x on %s: %w", req, perfEvents[i].name, err)
		}
	}
	return nil
}

// Reset zeroes and enables all counters.
func (b *HardwareBackend) Reset() error {
	if err := b.ioctlAll(unix.PERF_EVENT_IOC_RESET); err != nil {
		return err
	}
	return b.ioctlAll(unix.PERF_EVENT_IOC_ENABLE)
}

// Finish disables all counters.
func (b *HardwareBackend) Finish() error {
	return b.ioctlAll(unix.PERF_EVENT_IOC_DISABLE)
}

func (b *HardwareBackend) read(i int) (uint64, error) {
	n, err := unix.Read(b.fds[i], b.buf[:])
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", perfEvents[i].name, err)
	}
	if n != len(b.buf) {
		return 0, fmt.Errorf("read %s: short read of %d bytes", perfEvents[i].name, n)
	}
	return binary.NativeEndian.Uint64(b.buf[:]), nil
}

// hits derives hit counts from accesses and misses.
func hits(loads, misses uint64) uint64 {
	if misses > loads {
		return 0
	}
	return loads - misses
}

// Read captures the timestamp and every open counter.
func (b *HardwareBackend) Read(s *Snapshot) error {
	s.Timestamp = b.clock.Now()

	var vals [numPerfEvents]uint64
	for i, fd := range b.fds {
		if fd < 0 {
			continue
		}
		v, err := b.read(i)
		if err != nil {
			return err
		}
		vals[i] = v
	}

	s.Cycles = vals[evCycles]
	s.Instructions = vals[evInstructions]
	if b.caps.Has(CapL1D) {
		s.L1DHits = hits(vals[evL1DLoads], vals[evL1DMisses])
		s.L1DMisses = vals[evL1DMisses]
	}
	if b.caps.Has(CapL3) {
		s.L3Hits = hits(vals[evLLCLoads], vals[evLLCMisses])
		s.L3Misses = vals[evLLCMisses]
	}
	return nil
}

// Close releases every counter file descriptor.
func (b *HardwareBackend) Close() error {
	var firstErr error
	for i, fd := range b.fds {
		if fd < 0 {
			continue
		}
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = err
		}
		b.fds[i] = -1
	}
	return firstErr
}
