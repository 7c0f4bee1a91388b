package stream

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Backend is the capability interface behind a Counter. Read must fill the
// fields named by Capabilities and leave the others untouched.
type Backend interface {
	// Name identifies the backend in reports.
	Name() string
	// Capabilities is the set of fields Read fills.
	Capabilities() Capability
	// Reset is called immediately before the baseline snapshot.
	Reset() error
	// Read captures the current signal values into s.
	Read(s *Snapshot) error
	// Finish is called immediately after the final snapshot.
	Finish() error
	// Close releases backend resources.
	Close() error
}

// BackendKind selects one of the built-in backends.
type BackendKind int

const (
	BackendNone BackendKind = iota
	BackendWallClock
	BackendHardware
	BackendSimulator
)

func (k BackendKind) String() string {
	switch k {
	case BackendNone:
		return "none"
	case BackendWallClock:
		return "wallclock"
	case BackendHardware:
		return "hardware"
	case BackendSimulator:
		return "simulator"
	}
	return fmt.Sprintf("BackendKind(%d)", int(k))
}

// ParseBackendKind maps a flag value to a BackendKind.
func ParseBackendKind(s string) (BackendKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return BackendNone, nil
	case "wallclock", "wall", "time":
		return BackendWallClock, nil
	case "hardware", "hw", "perf":
		return BackendHardware, nil
	case "simulator", "sim", "gem5":
		return BackendSimulator, nil
	}
	return 0, NewConfigError("ParseBackendKind", fmt.Sprintf("unknown counter backend %q", s))
}

// Clock is a monotonic nanosecond source.
type Clock interface {
	Now() uint64
}

type monotonicClock struct {
	epoch time.Time
}

func (c monotonicClock) Now() uint64 {
	return uint64(time.Since(c.epoch))
}

// NewMonotonicClock returns a Clock counting nanoseconds since its creation.
func NewMonotonicClock() Clock {
	return monotonicClock{epoch: time.Now()}
}

// NoneBackend captures nothing; deltas taken with it are invalid.
type NoneBackend struct{}

func (NoneBackend) Name() string             { return "none" }
func (NoneBackend) Capabilities() Capability { return 0 }
func (NoneBackend) Reset() error             { return nil }
func (NoneBackend) Read(*Snapshot) error     { return nil }
func (NoneBackend) Finish() error            { return nil }
func (NoneBackend) Close() error             { return nil }

// WallClockBackend captures only a timestamp.
type WallClockBackend struct {
	clock Clock
}

// NewWallClockBackend reads timestamps from clock, or a monotonic clock if nil.
func NewWallClockBackend(clock Clock) *WallClockBackend {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	return &WallClockBackend{clock: clock}
}

func (b *WallClockBackend) Name() string             { return "wallclock" }
func (b *WallClockBackend) Capabilities() Capability { return CapTimestamp }
func (b *WallClockBackend) Reset() error             { return nil }
func (b *WallClockBackend) Finish() error            { return nil }
func (b *WallClockBackend) Close() error             { return nil }

func (b *WallClockBackend) Read(s *Snapshot) error {
	s.Timestamp = b.clock.Now()
	return nil
}

// StatsHooks is the statistics control surface of a full-system simulator.
type StatsHooks interface {
	ResetStats() error
	DumpStats() error
}

// M5Hooks drives gem5 statistics through the m5 utility binary.
type M5Hooks struct {
	// Path to the m5 binary; looked up on PATH when empty
	Path string
}

func (h M5Hooks) run(op string) error {
	path := h.Path
	if path == "" {
		var err error
		path, err = exec.LookPath("m5")
		if err != nil {
			return fmt.Errorf("m5 not available: %w", err)
		}
	}
	out, err := exec.Command(path, op).CombinedOutput()
	if err != nil {
		return fmt.Errorf("m5 %s failed: %w: %s", op, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ResetStats runs "m5 resetstats".
func (h M5Hooks) ResetStats() error { return h.run("resetstats") }

// DumpStats runs "m5 dumpstats".
func (h M5Hooks) DumpStats() error { return h.run("dumpstats") }

// SimulatorBackend resets simulator statistics before the baseline snapshot
// and dumps them after the final one. Snapshot fields come from inner.
type SimulatorBackend struct {
	hooks StatsHooks
	inner Backend
}

// NewSimulatorBackend wraps inner (wall clock if nil) with simulator hooks.
func NewSimulatorBackend(hooks StatsHooks, inner Backend) *SimulatorBackend {
	if inner == nil {
		inner = NewWallClockBackend(nil)
	}
	return &SimulatorBackend{hooks: hooks, inner: inner}
}

func (b *SimulatorBackend) Name() string             { return "simulator+" + b.inner.Name() }
func (b *SimulatorBackend) Capabilities() Capability { return b.inner.Capabilities() }
func (b *SimulatorBackend) Read(s *Snapshot) error   { return b.inner.Read(s) }
func (b *SimulatorBackend) Close() error             { return b.inner.Close() }

func (b *SimulatorBackend) Reset() error {
	if err := b.hooks.ResetStats(); err != nil {
		return err
	}
	return b.inner.Reset()
}

func (b *SimulatorBackend) Finish() error {
	if err := b.inner.Finish(); err != nil {
		return err
	}
	return b.hooks.DumpStats()
}

// BackendOptions configures NewBackend.
type BackendOptions struct {
	Clock Clock
	Hooks StatsHooks
}

// NewBackend builds the backend for kind. A hardware backend that cannot be
// opened falls back to the wall clock with a warning rather than failing.
func NewBackend(kind BackendKind, opts BackendOptions) (Backend, error) {
	switch kind {
	case BackendNone:
		return NoneBackend{}, nil
	case BackendWallClock:
		return NewWallClockBackend(opts.Clock), nil
	case BackendHardware:
		hw, err := NewHardwareBackend(opts.Clock)
		if err != nil {
			Logger().WithError(err).Warn("hardware counters unavailable, falling back to wall clock")
			return NewWallClockBackend(opts.Clock), nil
		}
		return hw, nil
	case BackendSimulator:
		hooks := opts.Hooks
		if hooks == nil {
			hooks = M5Hooks{}
		}
		return NewSimulatorBackend(hooks, NewWallClockBackend(opts.Clock)), nil
	}
	return nil, NewConfigError("NewBackend", fmt.Sprintf("unknown backend kind %d", int(kind)))
}
