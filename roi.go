// Package stream region-of-interest counters bracketing the timed kernel loop
package stream

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Unset marks a counter field that was never captured.
const Unset = math.MaxUint64

// Capability is the set of signals a backend can capture.
type Capability uint32

const (
	CapTimestamp Capability = 1 << iota
	CapCycles
	CapInstructions
	CapL1D
	CapL2
	CapL3
)

// Has reports whether all bits of o are present in c.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		bit  Capability
		name string
	}{
		{CapTimestamp, "timestamp"},
		{CapCycles, "cycles"},
		{CapInstructions, "instructions"},
		{CapL1D, "l1d"},
		{CapL2, "l2"},
		{CapL3, "l3"},
	} {
		if c.Has(f.bit) {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, ",")
}

// Snapshot is the value of every tracked signal at one instant. Fields the
// backend did not capture hold Unset.
type Snapshot struct {
	Caps  Capability
	Taken bool // set once a backend has been read into the snapshot

	Timestamp    uint64 // nanoseconds on the backend clock
	Cycles       uint64
	Instructions uint64
	L1DHits      uint64
	L1DMisses    uint64
	L2Hits       uint64
	L2Misses     uint64
	L3Hits       uint64
	L3Misses     uint64
}

// UnsetSnapshot returns a snapshot with every field set to Unset.
func UnsetSnapshot() Snapshot {
	return Snapshot{
		Timestamp:    Unset,
		Cycles:       Unset,
		Instructions: Unset,
		L1DHits:      Unset,
		L1DMisses:    Unset,
		L2Hits:       Unset,
		L2Misses:     Unset,
		L3Hits:       Unset,
		L3Misses:     Unset,
	}
}

// Delta is stop - start for every tracked signal. Signals the backend cannot
// capture are zero; signals missing from either snapshot stay Unset.
type Delta struct {
	Caps Capability

	Elapsed      uint64 // nanoseconds
	Cycles       uint64
	Instructions uint64
	L1DHits      uint64
	L1DMisses    uint64
	L2Hits       uint64
	L2Misses     uint64
	L3Hits       uint64
	L3Misses     uint64
}

// Sub computes the delta from start to stop. If either snapshot was never
// taken every field of the result is Unset.
func Sub(start, stop Snapshot) Delta {
	if !start.Taken || !stop.Taken {
		return Delta{
			Elapsed:      Unset,
			Cycles:       Unset,
			Instructions: Unset,
			L1DHits:      Unset,
			L1DMisses:    Unset,
			L2Hits:       Unset,
			L2Misses:     Unset,
			L3Hits:       Unset,
			L3Misses:     Unset,
		}
	}

	caps := start.Caps & stop.Caps
	diff := func(bit Capability, a, b uint64) uint64 {
		if !caps.Has(bit) {
			return 0
		}
		return sub64(a, b)
	}

	elapsed := uint64(Unset)
	if caps.Has(CapTimestamp) {
		elapsed = sub64(start.Timestamp, stop.Timestamp)
	}

	return Delta{
		Caps:         caps,
		Elapsed:      elapsed,
		Cycles:       diff(CapCycles, start.Cycles, stop.Cycles),
		Instructions: diff(CapInstructions, start.Instructions, stop.Instructions),
		L1DHits:      diff(CapL1D, start.L1DHits, stop.L1DHits),
		L1DMisses:    diff(CapL1D, start.L1DMisses, stop.L1DMisses),
		L2Hits:       diff(CapL2, start.L2Hits, stop.L2Hits),
		L2Misses:     diff(CapL2, start.L2Misses, stop.L2Misses),
		L3Hits:       diff(CapL3, start.L3Hits, stop.L3Hits),
		L3Misses:     diff(CapL3, start.L3Misses, stop.L3Misses),
	}
}

func sub64(a, b uint64) uint64 {
	if a == Unset || b == Unset || b < a {
		return Unset
	}
	return b - a
}

// Valid reports whether the delta was computed from two captured snapshots.
func (d Delta) Valid() bool {
	return d.Elapsed != Unset
}

// Duration returns the elapsed time, or 0 for an invalid delta.
func (d Delta) Duration() time.Duration {
	if !d.Valid() {
		return 0
	}
	return time.Duration(d.Elapsed)
}

// IPC returns instructions per cycle when both are known.
func (d Delta) IPC() float64 {
	if d.Cycles == 0 || d.Cycles == Unset || d.Instructions == Unset {
		return 0
	}
	return float64(d.Instructions) / float64(d.Cycles)
}

// String formats the delta the way PerfCounters.String does: only measured
// fields are printed.
func (d Delta) String() string {
	var sb strings.Builder

	sb.WriteString("ROI Counters:\n")
	if !d.Valid() {
		sb.WriteString("  (not measured)\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "  Elapsed:           %v\n", d.Duration())
	field := func(bit Capability, name string, v uint64) {
		if d.Caps.Has(bit) && v != Unset {
			fmt.Fprintf(&sb, "  %-18s %d\n", name+":", v)
		}
	}
	field(CapCycles, "CPU Cycles", d.Cycles)
	field(CapInstructions, "Instructions", d.Instructions)
	if ipc := d.IPC(); ipc > 0 {
		fmt.Fprintf(&sb, "  IPC:               %.2f\n", ipc)
	}
	field(CapL1D, "L1D Hits", d.L1DHits)
	field(CapL1D, "L1D Misses", d.L1DMisses)
	field(CapL2, "L2 Hits", d.L2Hits)
	field(CapL2, "L2 Misses", d.L2Misses)
	field(CapL3, "L3 Hits", d.L3Hits)
	field(CapL3, "L3 Misses", d.L3Misses)

	return sb.String()
}

// Counter brackets a region of interest with two snapshots taken from a
// Backend.
type Counter struct {
	backend Backend
	start   Snapshot
	stop    Snapshot
}

// NewCounter returns a counter whose snapshots are Unset until Start and Stop.
func NewCounter(b Backend) *Counter {
	if b == nil {
		b = NoneBackend{}
	}
	return &Counter{
		backend: b,
		start:   UnsetSnapshot(),
		stop:    UnsetSnapshot(),
	}
}

// Backend returns the backend the counter reads from.
func (c *Counter) Backend() Backend {
	return c.backend
}

// Start resets the backend and records the baseline snapshot.
func (c *Counter) Start() error {
	c.start = UnsetSnapshot()
	c.stop = UnsetSnapshot()
	if err := c.backend.Reset(); err != nil {
		return NewCounterError("Start", "backend reset failed", err)
	}
	if err := c.backend.Read(&c.start); err != nil {
		return NewCounterError("Start", "snapshot failed", err)
	}
	c.start.Caps = c.backend.Capabilities()
	c.start.Taken = true
	return nil
}

// Stop records the final snapshot and lets the backend finalise.
func (c *Counter) Stop() error {
	if err := c.backend.Read(&c.stop); err != nil {
		return NewCounterError("Stop", "snapshot failed", err)
	}
	c.stop.Caps = c.backend.Capabilities()
	c.stop.Taken = true
	if err := c.backend.Finish(); err != nil {
		return NewCounterError("Stop", "backend finish failed", err)
	}
	return nil
}

// Snapshots returns the start and stop snapshots.
func (c *Counter) Snapshots() (start, stop Snapshot) {
	return c.start, c.stop
}

// Delta returns stop - start.
func (c *Counter) Delta() Delta {
	return Sub(c.start, c.stop)
}
