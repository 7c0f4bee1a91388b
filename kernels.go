package stream

import (
	"fmt"
	"time"

	"github.com/LynnColeArt/stream/parallel"
)

// Kernel identifies one of the four vector operations.
type Kernel int

const (
	Copy  Kernel = iota // C = A
	Scale               // B = s*C
	Add                 // C = A + B
	Triad               // A = B + s*C

	NumKernels = 4
)

// Kernels lists the kernels in execution order.
var Kernels = [NumKernels]Kernel{Copy, Scale, Add, Triad}

func (k Kernel) String() string {
	switch k {
	case Copy:
		return "Copy"
	case Scale:
		return "Scale"
	case Add:
		return "Add"
	case Triad:
		return "Triad"
	}
	return fmt.Sprintf("Kernel(%d)", int(k))
}

// MarshalText encodes the kernel by name.
func (k Kernel) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kernel name.
func (k *Kernel) UnmarshalText(b []byte) error {
	for _, kk := range Kernels {
		if kk.String() == string(b) {
			*k = kk
			return nil
		}
	}
	return fmt.Errorf("unknown kernel %q", b)
}

// WordsPerElement is the number of array elements read plus written per
// index by the kernel.
func (k Kernel) WordsPerElement() int {
	switch k {
	case Copy, Scale:
		return 2
	case Add, Triad:
		return 3
	}
	return 0
}

func copyKernel[T Element](c, a []T) {
	a = a[:len(c)]
	for j := range c {
		c[j] = a[j]
	}
}

func scaleKernel[T Element](b, c []T, scalar T) {
	c = c[:len(b)]
	for j := range b {
		b[j] = scalar * c[j]
	}
}

func addKernel[T Element](c, a, b []T) {
	a = a[:len(c)]
	b = b[:len(c)]
	for j := range c {
		c[j] = a[j] + b[j]
	}
}

func triadKernel[T Element](a, b, c []T, scalar T) {
	b = b[:len(a)]
	c = c[:len(a)]
	for j := range a {
		// The conversion rounds the product and so forbids FMA fusion,
		// keeping results bit-identical to Reference on every GOARCH.
		a[j] = b[j] + T(scalar*c[j])
	}
}

// Timings holds the duration of every kernel in every trial, indexed
// [kernel][trial].
type Timings [NumKernels][]time.Duration

// Runner executes the four kernels over a fixed set of arrays. Everything the
// trial loop needs is prepared by NewRunner so the loop itself neither
// allocates nor logs.
type Runner[T Element] struct {
	arr     *Arrays[T]
	pool    *parallel.Pool
	ranges  []parallel.Range
	scalar  T
	trials  int
	counter *Counter
	clock   Clock
	timings *Timings

	kernels [NumKernels]func(lo, hi int)
}

// NewRunner binds arrays, pool and counter. When timings is non-nil each
// kernel invocation is timed individually with clock.
func NewRunner[T Element](cfg Config, arr *Arrays[T], pool *parallel.Pool, counter *Counter, clock Clock, timings *Timings) *Runner[T] {
	if counter == nil {
		counter = NewCounter(nil)
	}
	if clock == nil {
		clock = NewMonotonicClock()
	}

	// Keep worker boundaries on cache line multiples so no two workers share a line
	align := CacheLineSize / ByteWidthOf[T]()
	r := &Runner[T]{
		arr:     arr,
		pool:    pool,
		ranges:  parallel.PartitionAligned(arr.Len(), pool.NumWorkers(), align),
		scalar:  T(cfg.Scalar),
		trials:  cfg.Trials,
		counter: counter,
		clock:   clock,
		timings: timings,
	}
	if timings != nil {
		for k := range timings {
			if len(timings[k]) != cfg.Trials {
				timings[k] = make([]time.Duration, cfg.Trials)
			}
		}
	}

	a, b, c, s := arr.A, arr.B, arr.C, r.scalar
	r.kernels = [NumKernels]func(lo, hi int){
		Copy:  func(lo, hi int) { copyKernel(c[lo:hi], a[lo:hi]) },
		Scale: func(lo, hi int) { scaleKernel(b[lo:hi], c[lo:hi], s) },
		Add:   func(lo, hi int) { addKernel(c[lo:hi], a[lo:hi], b[lo:hi]) },
		Triad: func(lo, hi int) { triadKernel(a[lo:hi], b[lo:hi], c[lo:hi], s) },
	}
	return r
}

// Ranges returns the per-worker partition of [0, N).
func (r *Runner[T]) Ranges() []parallel.Range {
	return r.ranges
}

// Prime sets A=1, B=2, C=0 and then doubles A. This is the state the
// validator's reference recurrence starts from. It returns the time taken by
// the doubling pass, which approximates the cost of one kernel.
func (r *Runner[T]) Prime() time.Duration {
	a, b, c := r.arr.A, r.arr.B, r.arr.C
	r.pool.Run(r.ranges, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			a[j] = 1
			b[j] = 2
			c[j] = 0
		}
	})

	start := r.clock.Now()
	r.pool.Run(r.ranges, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			a[j] = 2 * a[j]
		}
	})
	return time.Duration(r.clock.Now() - start)
}

// Run executes all trials between counter Start and Stop.
func (r *Runner[T]) Run() error {
	if err := r.counter.Start(); err != nil {
		return err
	}
	if r.timings != nil {
		r.runTimed()
	} else {
		r.run()
	}
	return r.counter.Stop()
}

func (r *Runner[T]) run() {
	pool, ranges := r.pool, r.ranges
	copyFn, scaleFn, addFn, triadFn := r.kernels[Copy], r.kernels[Scale], r.kernels[Add], r.kernels[Triad]
	for k := 0; k < r.trials; k++ {
		pool.Run(ranges, copyFn)
		pool.Run(ranges, scaleFn)
		pool.Run(ranges, addFn)
		pool.Run(ranges, triadFn)
	}
}

func (r *Runner[T]) runTimed() {
	pool, ranges, clock, times := r.pool, r.ranges, r.clock, r.timings
	for k := 0; k < r.trials; k++ {
		for i, fn := range r.kernels {
			t0 := clock.Now()
			pool.Run(ranges, fn)
			times[i][k] = time.Duration(clock.Now() - t0)
		}
	}
}

// KernelStat is the best-of-N result for one kernel.
type KernelStat struct {
	Kernel   Kernel        `json:"kernel"`
	Bytes    uint64        `json:"bytes"`
	MinTime  time.Duration `json:"min_time"`
	BestRate float64       `json:"best_rate_mbs"` // MB/s, 1e6 bytes
}

// Summarize reduces timings to the minimum time per kernel, skipping the
// first trial, and converts it to a rate for arrays of n elements of the
// given byte width.
func Summarize(t *Timings, n, width int) []KernelStat {
	stats := make([]KernelStat, 0, NumKernels)
	for _, k := range Kernels {
		times := t[k]
		st := KernelStat{
			Kernel: k,
			Bytes:  uint64(k.WordsPerElement()) * uint64(width) * uint64(n),
		}
		if len(times) > 1 {
			st.MinTime = times[1]
			for _, d := range times[2:] {
				st.MinTime = min(st.MinTime, d)
			}
		}
		if st.MinTime > 0 {
			st.BestRate = 1e-6 * float64(st.Bytes) / st.MinTime.Seconds()
		}
		stats = append(stats, st)
	}
	return stats
}
