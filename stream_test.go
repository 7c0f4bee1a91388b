package stream

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/LynnColeArt/stream/parallel"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.ArrayLength = 4096
	cfg.Trials = 4
	cfg.Workers = 2
	cfg.Seed = 99
	return cfg
}

func TestRunValidates(t *testing.T) {
	withAvailableMemory(t, 1<<32, nil)

	for _, prec := range []Precision{Float64, Float32} {
		t.Run(prec.String(), func(t *testing.T) {
			cfg := smallConfig()
			cfg.Precision = prec
			cfg.Offset = 3

			res, err := Run(cfg, Options{})
			if err != nil {
				t.Fatal(err)
			}
			if !res.Validation.Passed() {
				t.Errorf("validation failed: %+v", res.Validation.Arrays)
			}
			if res.Validation.ByteWidth != prec.ByteWidth() {
				t.Errorf("ByteWidth = %d, want %d", res.Validation.ByteWidth, prec.ByteWidth())
			}
			if res.Backend != "wallclock" {
				t.Errorf("Backend = %q, want wallclock", res.Backend)
			}
			if !res.ROI.Valid() {
				t.Error("ROI not measured")
			}
			if len(res.Kernels) != NumKernels {
				t.Errorf("got %d kernel stats", len(res.Kernels))
			}
			if res.Workers != 2 {
				t.Errorf("Workers = %d, want 2", res.Workers)
			}
		})
	}
}

func TestRunWithCollaborators(t *testing.T) {
	withAvailableMemory(t, 1<<32, nil)

	cfg := smallConfig()
	cfg.KernelTiming = false

	pool := parallel.New(3)
	defer pool.Close()
	clock := &fakeClock{step: 1000}

	res, err := Run(cfg, Options{Backend: NoneBackend{}, Clock: clock, Pool: pool, Rand: NewRand(5)})
	if err != nil {
		t.Fatal(err)
	}
	if res.ROI.Valid() {
		t.Error("none backend produced a measured ROI")
	}
	if res.AggregateRate() != 0 {
		t.Errorf("AggregateRate() = %v, want 0 without an ROI", res.AggregateRate())
	}
	if res.Kernels != nil {
		t.Errorf("Kernels = %v, want none with kernel timing off", res.Kernels)
	}
	if res.PrimeTime != 1000 {
		t.Errorf("PrimeTime = %v, want 1µs", res.PrimeTime)
	}
	if !res.Validation.Passed() {
		t.Error("validation failed")
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Trials = 1
	if _, err := Run(cfg, Options{}); !IsConfigError(err) {
		t.Errorf("Run() = %v, want config error", err)
	}
}

func TestRunMemoryGuard(t *testing.T) {
	withAvailableMemory(t, 1024, nil)
	if _, err := Run(smallConfig(), Options{}); !IsMemoryError(err) {
		t.Errorf("Run() = %v, want memory error", err)
	}
}

func TestResultBytesMoved(t *testing.T) {
	res := &Result{Config: Config{ArrayLength: 100, Trials: 10, Precision: Float64}}
	// (2+2+3+3) words x 10 trials x 100 elements x 8 bytes
	if got := res.BytesMoved(); got != 80000 {
		t.Errorf("BytesMoved() = %d, want 80000", got)
	}

	res.ROI = Delta{Caps: CapTimestamp, Elapsed: 1_000_000}
	if got := res.AggregateRate(); math.Abs(got-80) > 1e-9 {
		t.Errorf("AggregateRate() = %v, want 80 MB/s", got)
	}
}

func TestReport(t *testing.T) {
	withAvailableMemory(t, 1<<32, nil)

	cfg := smallConfig()
	var banner bytes.Buffer
	if err := WriteBanner(&banner, cfg, ""); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"STREAM (Go) version devel",
		"This system uses 8 bytes per array element.",
		"Array size = 4096 (elements), Offset = 0 (elements)",
		"Each kernel will be executed 4 times.",
	} {
		if !strings.Contains(banner.String(), want) {
			t.Errorf("banner missing %q:\n%s", want, banner.String())
		}
	}

	res, err := Run(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	var summary bytes.Buffer
	if err := res.WriteSummary(&summary); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Number of workers = 2", "Copy:", "Scale:", "Add:", "Triad:", "ROI Counters:", "Elapsed:"} {
		if !strings.Contains(summary.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, summary.String())
		}
	}
}
