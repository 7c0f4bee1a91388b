//go:build !linux

// Package stream hardware counter stub for non-Linux platforms
package stream

// HardwareBackend stub for non-Linux platforms
type HardwareBackend struct{}

// NewHardwareBackend always fails on non-Linux platforms
func NewHardwareBackend(clock Clock) (*HardwareBackend, error) {
	return nil, ErrUnsupported
}

func (b *HardwareBackend) Name() string             { return "perf_event" }
func (b *HardwareBackend) Capabilities() Capability { return 0 }
func (b *HardwareBackend) Reset() error             { return ErrUnsupported }
func (b *HardwareBackend) Read(*Snapshot) error     { return ErrUnsupported }
func (b *HardwareBackend) Finish() error            { return ErrUnsupported }
func (b *HardwareBackend) Close() error             { return nil }
