// Package parallel provides a persistent fork-join worker pool and the index
// partitioning used to split a kernel's iteration space across it.
//
// A Pool is created once and reused for every kernel invocation, so the timed
// region performs no goroutine spawning and no allocation:
//
//	pool := parallel.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	ranges := parallel.Partition(n, pool.NumWorkers())
//	copyFn := func(lo, hi int) { copy(c[lo:hi], a[lo:hi]) }
//	for k := 0; k < trials; k++ {
//	    pool.Run(ranges, copyFn)
//	}
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Range is the half-open index interval [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	return r.Hi - r.Lo
}

// Partition splits [0, n) into at most parts contiguous, non-empty,
// non-overlapping ranges whose union is exactly [0, n). Sizes differ by at
// most one. If parts <= 0 a single range is returned; n <= 0 yields nil.
func Partition(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	parts = max(1, min(parts, n))

	ranges := make([]Range, parts)
	base, rem := n/parts, n%parts
	lo := 0
	for i := range ranges {
		size := base
		if i < rem {
			size++
		}
		ranges[i] = Range{Lo: lo, Hi: lo + size}
		lo += size
	}
	return ranges
}

// PartitionAligned is Partition with every interior boundary a multiple of
// align, so that adjacent workers never write to the same cache line when
// align is the number of elements per line.
func PartitionAligned(n, parts, align int) []Range {
	if align <= 1 {
		return Partition(n, parts)
	}
	if n <= 0 {
		return nil
	}
	blocks := (n + align - 1) / align
	ranges := Partition(blocks, parts)
	for i := range ranges {
		ranges[i].Lo *= align
		ranges[i].Hi = min(ranges[i].Hi*align, n)
	}
	return ranges
}

// Pool is a persistent worker pool. Workers are spawned once at creation and
// reused by every Run until Close.
type Pool struct {
	numWorkers int
	workC      chan task
	closeOnce  sync.Once
	closed     atomic.Bool

	// mu serialises Run so the shared barrier is never reused concurrently
	mu      sync.Mutex
	barrier sync.WaitGroup
}

// task is one range of one kernel invocation.
type task struct {
	fn func(lo, hi int)
	r  Range
}

// New creates a pool with numWorkers goroutines.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan task, numWorkers*2),
	}

	// The caller runs one range itself, so one fewer background worker
	for range numWorkers - 1 {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	for t := range p.workC {
		t.fn(t.r.Lo, t.r.Hi)
		p.barrier.Done()
	}
}

// NumWorkers returns the fork-join width of the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the worker pool. Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// Run calls fn once for every range and blocks until all calls return.
// The first range executes on the calling goroutine. Ranges must be disjoint
// when fn writes shared memory. Run does not allocate.
func (p *Pool) Run(ranges []Range, fn func(lo, hi int)) {
	if len(ranges) == 0 {
		return
	}

	if p.closed.Load() || len(ranges) == 1 || p.numWorkers == 1 {
		for _, r := range ranges {
			fn(r.Lo, r.Hi)
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.barrier.Add(len(ranges) - 1)
	for _, r := range ranges[1:] {
		p.workC <- task{fn: fn, r: r}
	}
	fn(ranges[0].Lo, ranges[0].Hi)
	p.barrier.Wait()
}

// ParallelFor partitions [0, n) across the pool and runs fn on each part.
// Unlike Run it allocates the partition on every call.
func (p *Pool) ParallelFor(n int, fn func(lo, hi int)) {
	p.Run(Partition(n, p.numWorkers), fn)
}
