package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LynnColeArt/stream"
)

func runCmd(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestArgCount(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"1000"},
		{"1000", "0"},
		{"1000", "0", "0", "0"},
	} {
		code, _, stderr := runCmd(t, args...)
		if code != exitUsage {
			t.Errorf("args %q: exit %d, want %d", args, code, exitUsage)
		}
		if !strings.Contains(stderr, "argc=") {
			t.Errorf("args %q: stderr missing argc diagnostic: %q", args, stderr)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"non-numeric length", []string{"lots", "0", "0"}},
		{"zero length", []string{"0", "0", "0"}},
		{"one trial", []string{"1000", "0", "0", "--trials", "1"}},
		{"bad precision", []string{"1000", "0", "0", "--precision", "half"}},
		{"bad backend", []string{"1000", "0", "0", "--backend", "papi"}},
		{"bad log level", []string{"1000", "0", "0", "--log-level", "loud"}},
		{"unknown flag", []string{"1000", "0", "0", "--frobnicate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCmd(t, tt.args...)
			if code != exitUsage {
				t.Errorf("exit %d, want %d", code, exitUsage)
			}
			if stdout != "" {
				t.Errorf("stdout = %q, want empty", stdout)
			}
		})
	}
}

func TestOversizedArrayIsFatal(t *testing.T) {
	code, _, stderr := runCmd(t, "2305843009213693952", "0", "0")
	if code != exitFatal {
		t.Errorf("exit %d, want %d", code, exitFatal)
	}
	if !strings.Contains(stderr, "Memory") {
		t.Errorf("stderr = %q, want memory error", stderr)
	}
}

func TestRunValidates(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "results.json")
	promPath := filepath.Join(dir, "stream.prom")

	code, stdout, stderr := runCmd(t, "4096", "0", "0",
		"--trials", "3",
		"--backend", "wallclock",
		"--threads", "2",
		"--seed", "7",
		"--json", jsonPath,
		"--metrics-textfile", promPath,
	)
	if code != exitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "Solution Validates") {
		t.Errorf("stdout = %q", stdout)
	}
	for _, want := range []string{"Array size = 4096", "Number of workers = 2", "Triad:", "CPU:"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}

	recs, err := stream.ReadResultLog(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Status != "pass" || recs[0].Result.Config.Trials != 3 {
		t.Errorf("result log = %+v", recs)
	}

	prom, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prom), "stream_validation_passed 1") {
		t.Errorf("metrics textfile:\n%s", prom)
	}
}

func TestRunFloat32NoKernelTiming(t *testing.T) {
	code, stdout, stderr := runCmd(t, "1000", "0", "0",
		"-p", "float32", "-n", "2", "--kernel-timing=false", "--backend", "none", "--offset", "5")
	if code != exitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "less than 1.000000e-06") {
		t.Errorf("stdout = %q", stdout)
	}
	if strings.Contains(stderr, "Best Rate") {
		t.Errorf("kernel table printed with timing off:\n%s", stderr)
	}
	if !strings.Contains(stderr, "not measured") {
		t.Errorf("none backend ROI not reported as unmeasured:\n%s", stderr)
	}
}

func TestThreadsFromEnv(t *testing.T) {
	t.Setenv("STREAM_NUM_THREADS", "3")
	code, _, stderr := runCmd(t, "3000", "0", "0", "-n", "2")
	if code != exitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stderr, "Number of workers = 3") {
		t.Errorf("stderr:\n%s", stderr)
	}
}

func TestUnderscoreFlags(t *testing.T) {
	code, _, stderr := runCmd(t, "2000", "0", "0", "--kernel_timing=false", "--log_level", "warn", "-n", "2")
	if code != exitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	if strings.Contains(stderr, "Best Rate") {
		t.Errorf("--kernel_timing=false ignored:\n%s", stderr)
	}
}
