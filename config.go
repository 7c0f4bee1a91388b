// Package stream configuration constants and run settings
package stream

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Array sizing and trial defaults
const (
	// DefaultArrayLength is large enough for last level caches up to 20MB
	DefaultArrayLength = 10_000_000

	// DefaultTrials is the number of times each kernel is executed
	DefaultTrials = 10

	// MinTrials is the lower bound on trials; the first trial is warm-up
	MinTrials = 2

	// DefaultScalar is the multiplier used by Scale and Triad
	DefaultScalar = 3.0
)

// Memory layout parameters
const (
	// CacheLineSize in bytes, used for footprint alignment hints
	CacheLineSize = 64

	// MaxOffset bounds the array offset in elements
	MaxOffset = 1 << 20
)

// Environment variables consulted for the worker count, in order
var WorkerEnvVars = []string{"STREAM_NUM_THREADS", "OMP_NUM_THREADS"}

// Config describes a single benchmark run
type Config struct {
	// ArrayLength is the number of elements N in each of A, B and C
	ArrayLength int

	// Trials is NTIMES, the number of sequential iterations of the four kernels
	Trials int

	// Offset shifts each array inside its backing storage by this many elements
	Offset int

	// Precision selects the element type
	Precision Precision

	// Scalar is the multiplier for Scale and Triad
	Scalar float64

	// Workers is the fork-join width per kernel; <= 0 means GOMAXPROCS
	Workers int

	// Seed for the array initializer; 0 picks a time based seed
	Seed uint64

	// KernelTiming records per-kernel durations for each trial
	KernelTiming bool

	// Verbose lists offending indices on validation failure
	Verbose bool
}

// DefaultConfig returns the configuration of a stock run
func DefaultConfig() Config {
	return Config{
		ArrayLength:  DefaultArrayLength,
		Trials:       DefaultTrials,
		Precision:    Float64,
		Scalar:       DefaultScalar,
		KernelTiming: true,
	}
}

// Validate checks the configuration before any allocation happens
func (c Config) Validate() error {
	if c.ArrayLength <= 0 {
		return ErrEmptyArray
	}
	if c.Trials < MinTrials {
		return ErrTrialsTooFew
	}
	if c.Offset < 0 || c.Offset > MaxOffset {
		return NewConfigError("Config", fmt.Sprintf("offset must be in [0, %d], got %d", MaxOffset, c.Offset))
	}
	if c.Precision.ByteWidth() == 0 {
		return NewConfigError("Config", fmt.Sprintf("unknown precision %d", int(c.Precision)))
	}
	return nil
}

// BytesPerArray is the memory footprint of one array
func (c Config) BytesPerArray() uint64 {
	return uint64(c.ArrayLength) * uint64(c.Precision.ByteWidth())
}

// TotalBytes is the footprint of all three arrays including offsets
func (c Config) TotalBytes() uint64 {
	return 3 * uint64(c.ArrayLength+c.Offset) * uint64(c.Precision.ByteWidth())
}

// WorkersFromEnv returns the first positive worker count found in
// WorkerEnvVars, or 0 when none is set.
func WorkersFromEnv() int {
	for _, name := range WorkerEnvVars {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		// OMP_NUM_THREADS may hold a nesting list such as "8,2"
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			Logger().Warnf("ignoring %s=%q: not a positive integer", name, v)
			continue
		}
		return n
	}
	return 0
}
