package stream

import (
	"encoding/json"
	"testing"
)

func TestEpsilonForWidth(t *testing.T) {
	tests := []struct {
		width  int
		want   float64
		wantOK bool
	}{
		{4, 1e-6, true},
		{8, 1e-13, true},
		{2, 1e-6, false},
		{16, 1e-6, false},
		{0, 1e-6, false},
	}
	for _, tt := range tests {
		eps, ok := EpsilonForWidth(tt.width)
		if eps != tt.want || ok != tt.wantOK {
			t.Errorf("EpsilonForWidth(%d) = %g, %v; want %g, %v", tt.width, eps, ok, tt.want, tt.wantOK)
		}
	}

	// Single precision must never be held to the double tolerance
	if eps, _ := EpsilonForWidth(ByteWidthOf[float32]()); eps == Epsilon64 {
		t.Error("float32 validated with double precision epsilon")
	}
}

func TestByteWidthOf(t *testing.T) {
	if w := ByteWidthOf[float32](); w != 4 {
		t.Errorf("ByteWidthOf[float32]() = %d, want 4", w)
	}
	if w := ByteWidthOf[float64](); w != 8 {
		t.Errorf("ByteWidthOf[float64]() = %d, want 8", w)
	}
	if Float32.ByteWidth() != 4 || Float64.ByteWidth() != 8 || Precision(7).ByteWidth() != 0 {
		t.Error("Precision.ByteWidth mismatch")
	}
}

func TestParsePrecision(t *testing.T) {
	tests := []struct {
		in      string
		want    Precision
		wantErr bool
	}{
		{"float64", Float64, false},
		{"double", Float64, false},
		{" 64 ", Float64, false},
		{"FLOAT32", Float32, false},
		{"single", Float32, false},
		{"f32", Float32, false},
		{"half", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePrecision(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePrecision(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !IsConfigError(err) {
				t.Errorf("ParsePrecision(%q) error is not a config error: %v", tt.in, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrecision(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrecisionJSON(t *testing.T) {
	data, err := json.Marshal(struct{ P Precision }{Float32})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"P":"float32"}` {
		t.Errorf("Marshal = %s", data)
	}

	var v struct{ P Precision }
	if err := json.Unmarshal([]byte(`{"P":"double"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.P != Float64 {
		t.Errorf("Unmarshal = %v, want float64", v.P)
	}
}
