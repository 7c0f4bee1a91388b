package stream

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
		config  bool
	}{
		{"default", func(*Config) {}, nil, false},
		{"zero length", func(c *Config) { c.ArrayLength = 0 }, ErrEmptyArray, true},
		{"negative length", func(c *Config) { c.ArrayLength = -5 }, ErrEmptyArray, true},
		{"one trial", func(c *Config) { c.Trials = 1 }, ErrTrialsTooFew, true},
		{"two trials", func(c *Config) { c.Trials = 2 }, nil, false},
		{"negative offset", func(c *Config) { c.Offset = -1 }, nil, true},
		{"huge offset", func(c *Config) { c.Offset = MaxOffset + 1 }, nil, true},
		{"bad precision", func(c *Config) { c.Precision = Precision(9) }, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()

			if !tt.config {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !IsConfigError(err) {
				t.Fatalf("Validate() = %v, want config error", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFootprint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArrayLength = 1000
	cfg.Offset = 8

	if got := cfg.BytesPerArray(); got != 8000 {
		t.Errorf("BytesPerArray() = %d, want 8000", got)
	}
	if got := cfg.TotalBytes(); got != 3*1008*8 {
		t.Errorf("TotalBytes() = %d, want %d", got, 3*1008*8)
	}

	cfg.Precision = Float32
	if got := cfg.BytesPerArray(); got != 4000 {
		t.Errorf("float32 BytesPerArray() = %d, want 4000", got)
	}
}

func TestWorkersFromEnv(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		omp    string
		want   int
	}{
		{"unset", "", "", 0},
		{"stream wins", "3", "8", 3},
		{"omp fallback", "", "6", 6},
		{"omp nesting list", "", "8,2", 8},
		{"invalid stream skipped", "abc", "4", 4},
		{"non-positive skipped", "0", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STREAM_NUM_THREADS", tt.stream)
			t.Setenv("OMP_NUM_THREADS", tt.omp)
			if got := WorkersFromEnv(); got != tt.want {
				t.Errorf("WorkersFromEnv() = %d, want %d", got, tt.want)
			}
		})
	}
}
