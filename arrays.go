package stream

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
	"unsafe"
)

// Arrays holds the three benchmark vectors. All have the same length for
// their whole lifetime.
type Arrays[T Element] struct {
	A, B, C []T
}

// Len returns N.
func (a *Arrays[T]) Len() int {
	return len(a.A)
}

// Allocate reserves A, B and C of n elements each, shifted offset elements
// into their backing storage. The request is checked against available host
// memory first so that an oversized run fails before anything is touched.
func Allocate[T Element](n, offset int) (*Arrays[T], error) {
	if n <= 0 {
		return nil, ErrEmptyArray
	}
	if offset < 0 {
		return nil, NewConfigError("Allocate", fmt.Sprintf("negative offset %d", offset))
	}

	width := ByteWidthOf[T]()
	per := n + offset
	if per < n || uint64(per) > math.MaxInt/uint64(3*width) {
		return nil, NewMemoryError("Allocate", fmt.Sprintf("%d elements of %d bytes overflows the address space", per, width), nil)
	}
	total := uint64(3*per) * uint64(width)
	if err := CheckAvailableMemory(total); err != nil {
		return nil, err
	}

	Logger().Debugf("allocating 3 x %d elements (%d bytes each, offset %d)", n, width, offset)
	return &Arrays[T]{
		A: make([]T, per)[offset:],
		B: make([]T, per)[offset:],
		C: make([]T, per)[offset:],
	}, nil
}

// Alignment reports the address of A[0] modulo the cache line size, which is
// what Offset is meant to perturb.
func (a *Arrays[T]) Alignment() int {
	if len(a.A) == 0 {
		return 0
	}
	return int(uintptr(unsafe.Pointer(&a.A[0])) % CacheLineSize)
}

// NewRand returns the generator shared by the three array fills. A zero seed
// is replaced with the current time.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// uniform draws from [-1, 1) at the precision of T, so the conversion can
// never round up to 1.
func uniform[T Element](rng *rand.Rand) T {
	if ByteWidthOf[T]() == 4 {
		return T(rng.Float32()*2 - 1)
	}
	return T(rng.Float64()*2 - 1)
}

// Initialize overwrites every element of buf with an independent uniform
// value in [-1, 1).
func Initialize[T Element](buf []T, rng *rand.Rand) {
	for i := range buf {
		buf[i] = uniform[T](rng)
	}
}

// InitializeAll fills A, B and C in turn from one generator stream.
func (a *Arrays[T]) InitializeAll(rng *rand.Rand) {
	Initialize(a.A, rng)
	Initialize(a.B, rng)
	Initialize(a.C, rng)
}
