package stream

import (
	"fmt"
	"strings"
	"unsafe"
)

// Element is the numeric type held by the benchmark arrays.
type Element interface {
	~float32 | ~float64
}

// Precision selects the element type for a run.
type Precision int

const (
	Float64 Precision = iota
	Float32
)

// Validation tolerances by element width.
const (
	Epsilon32 = 1e-6
	Epsilon64 = 1e-13
)

// ByteWidth returns the size of one element, or 0 for an unknown precision.
func (p Precision) ByteWidth() int {
	switch p {
	case Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

func (p Precision) String() string {
	switch p {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("Precision(%d)", int(p))
}

// ParsePrecision accepts float32/single/32 and float64/double/64.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32", "single", "f32", "32":
		return Float32, nil
	case "float64", "double", "f64", "64":
		return Float64, nil
	}
	return 0, NewConfigError("ParsePrecision", fmt.Sprintf("unknown precision %q", s))
}

// ByteWidthOf reports the size in bytes of T.
func ByteWidthOf[T Element]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

// EpsilonForWidth returns the validation tolerance for an element of the
// given width. Widths other than 4 and 8 fall back to Epsilon32 with ok false.
func EpsilonForWidth(width int) (eps float64, ok bool) {
	switch width {
	case 4:
		return Epsilon32, true
	case 8:
		return Epsilon64, true
	}
	return Epsilon32, false
}

// MarshalText encodes the precision by name.
func (p Precision) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts any name ParsePrecision does.
func (p *Precision) UnmarshalText(b []byte) error {
	v, err := ParsePrecision(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
