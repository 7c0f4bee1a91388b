//go:build linux

package stream

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestHits(t *testing.T) {
	if got := hits(100, 30); got != 70 {
		t.Errorf("hits(100, 30) = %d, want 70", got)
	}
	// Multiplexed counters can report more misses than loads
	if got := hits(10, 30); got != 0 {
		t.Errorf("hits(10, 30) = %d, want 0", got)
	}
}

func TestCacheConfig(t *testing.T) {
	got := cacheConfig(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)
	want := uint64(unix.PERF_COUNT_HW_CACHE_LL) | uint64(unix.PERF_COUNT_HW_CACHE_OP_READ)<<8 | uint64(unix.PERF_COUNT_HW_CACHE_RESULT_MISS)<<16
	if got != want {
		t.Errorf("cacheConfig() = %#x, want %#x", got, want)
	}
}

// TestHardwareBackend brackets some work with real counters when the kernel
// allows it.
func TestHardwareBackend(t *testing.T) {
	hw, err := NewHardwareBackend(&fakeClock{step: 1000})
	if err != nil {
		if !IsCounterError(err) {
			t.Errorf("NewHardwareBackend() = %v, want counter error", err)
		}
		t.Skipf("Performance counters not available: %v", err)
	}
	defer hw.Close()

	caps := hw.Capabilities()
	if !caps.Has(CapTimestamp | CapCycles | CapInstructions) {
		t.Errorf("Capabilities() = %v, want at least timestamp,cycles,instructions", caps)
	}
	if caps.Has(CapL2) {
		t.Error("perf backend claims L2 counters")
	}

	c := NewCounter(hw)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	sum := 0.0
	for i := 0; i < 1000000; i++ {
		sum += float64(i)
	}
	_ = sum
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}

	d := c.Delta()
	if !d.Valid() {
		t.Fatal("hardware delta invalid")
	}
	if d.Elapsed != 1000 {
		t.Errorf("Elapsed = %d, want 1000", d.Elapsed)
	}
	if d.L2Hits != 0 || d.L2Misses != 0 {
		t.Errorf("L2 = %d/%d, want zero", d.L2Hits, d.L2Misses)
	}
	t.Logf("Hardware counters:\n%s", d)
}
