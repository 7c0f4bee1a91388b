package stream

import (
	"math/rand/v2"
	"time"

	"github.com/LynnColeArt/stream/parallel"
)

// Options carries the collaborators of a run. Zero values select defaults:
// a wall clock, a pool of Config.Workers goroutines and a generator seeded
// from Config.Seed.
type Options struct {
	Backend Backend
	Clock   Clock
	Pool    *parallel.Pool
	Rand    *rand.Rand
}

// Result is everything one run produced.
type Result struct {
	Config     Config            `json:"config"`
	Backend    string            `json:"backend"`
	Workers    int               `json:"workers"`
	Alignment  int               `json:"alignment"`
	PrimeTime  time.Duration     `json:"prime_time"`
	Kernels    []KernelStat      `json:"kernels,omitempty"`
	ROI        Delta             `json:"roi"`
	Validation *ValidationReport `json:"validation"`
}

// BytesMoved is the traffic of all kernels over all trials.
func (r *Result) BytesMoved() uint64 {
	var words uint64
	for _, k := range Kernels {
		words += uint64(k.WordsPerElement())
	}
	return words * uint64(r.Config.Trials) * uint64(r.Config.ArrayLength) * uint64(r.Config.Precision.ByteWidth())
}

// AggregateRate is BytesMoved over the ROI elapsed time in MB/s, or 0 when
// the ROI was not measured.
func (r *Result) AggregateRate() float64 {
	d := r.ROI.Duration()
	if d <= 0 {
		return 0
	}
	return 1e-6 * float64(r.BytesMoved()) / d.Seconds()
}

// Run validates cfg, then allocates, initializes, primes, times and
// validates the arrays at the configured precision.
func Run(cfg Config, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Precision {
	case Float32:
		return run[float32](cfg, opts)
	default:
		return run[float64](cfg, opts)
	}
}

func run[T Element](cfg Config, opts Options) (*Result, error) {
	arr, err := Allocate[T](cfg.ArrayLength, cfg.Offset)
	if err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = NewRand(cfg.Seed)
	}
	arr.InitializeAll(rng)

	pool := opts.Pool
	if pool == nil {
		pool = parallel.New(cfg.Workers)
		defer pool.Close()
	}

	clock := opts.Clock
	if clock == nil {
		clock = NewMonotonicClock()
	}
	backend := opts.Backend
	if backend == nil {
		backend = NewWallClockBackend(clock)
	}
	counter := NewCounter(backend)

	var timings *Timings
	if cfg.KernelTiming {
		timings = new(Timings)
	}
	runner := NewRunner(cfg, arr, pool, counter, clock, timings)

	res := &Result{
		Config:    cfg,
		Backend:   backend.Name(),
		Workers:   len(runner.Ranges()),
		Alignment: arr.Alignment(),
	}
	res.PrimeTime = runner.Prime()
	Logger().Debugf("prime pass took %v over %d ranges", res.PrimeTime, res.Workers)

	if err := runner.Run(); err != nil {
		return nil, err
	}
	res.ROI = counter.Delta()
	if timings != nil {
		res.Kernels = Summarize(timings, cfg.ArrayLength, ByteWidthOf[T]())
	}

	res.Validation = Validate(NewValidator(cfg), arr)
	return res, nil
}
