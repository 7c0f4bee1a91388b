// Package metrics exports benchmark results as Prometheus gauges. A run is a
// one-shot process, so the registry is written to a node_exporter textfile
// rather than served over HTTP.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/LynnColeArt/stream"
)

// Collectors holds the gauges for one run. Each Collectors owns its registry
// so several runs in one process do not collide.
type Collectors struct {
	Registry *prometheus.Registry

	// BestRate is the best-of-N bandwidth per kernel in bytes per second.
	BestRate *prometheus.GaugeVec

	// MinTime is the fastest trial per kernel, first trial excluded.
	MinTime *prometheus.GaugeVec

	// ROIElapsed is the wall time of the whole timed region.
	ROIElapsed prometheus.Gauge

	// ROICounter holds hardware counter deltas by event name.
	ROICounter *prometheus.GaugeVec

	// ValidationError is the average relative error per array.
	ValidationError *prometheus.GaugeVec

	// ValidationPassed is 1 when all arrays validated.
	ValidationPassed prometheus.Gauge

	// Info carries the run configuration as labels.
	Info *prometheus.GaugeVec
}

// New registers a fresh set of collectors.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collectors{
		Registry: reg,
		BestRate: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stream_kernel_best_rate_bytes_per_second",
			Help: "Best observed bandwidth per STREAM kernel, first trial excluded.",
		}, []string{"kernel"}),
		MinTime: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stream_kernel_min_time_seconds",
			Help: "Fastest trial per STREAM kernel, first trial excluded.",
		}, []string{"kernel"}),
		ROIElapsed: f.NewGauge(prometheus.GaugeOpts{
			Name: "stream_roi_elapsed_seconds",
			Help: "Wall time of the timed region covering all trials.",
		}),
		ROICounter: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stream_roi_counter_delta",
			Help: "Hardware counter delta over the timed region by event.",
		}, []string{"event"}),
		ValidationError: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stream_validation_avg_relative_error",
			Help: "Average relative error of each array against the scalar reference.",
		}, []string{"array"}),
		ValidationPassed: f.NewGauge(prometheus.GaugeOpts{
			Name: "stream_validation_passed",
			Help: "1 if all three arrays validated, 0 otherwise.",
		}),
		Info: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stream_run_info",
			Help: "Configuration of the run; value is always 1.",
		}, []string{"precision", "array_length", "trials", "workers", "backend"}),
	}
}

// Record sets every gauge from res.
func (c *Collectors) Record(res *stream.Result) {
	cfg := res.Config
	c.Info.WithLabelValues(
		cfg.Precision.String(),
		strconv.Itoa(cfg.ArrayLength),
		strconv.Itoa(cfg.Trials),
		strconv.Itoa(res.Workers),
		res.Backend,
	).Set(1)

	for _, k := range res.Kernels {
		c.BestRate.WithLabelValues(k.Kernel.String()).Set(k.BestRate * 1e6)
		c.MinTime.WithLabelValues(k.Kernel.String()).Set(k.MinTime.Seconds())
	}

	roi := res.ROI
	if roi.Valid() {
		c.ROIElapsed.Set(roi.Duration().Seconds())
		for _, ev := range []struct {
			cap   stream.Capability
			name  string
			value uint64
		}{
			{stream.CapCycles, "cycles", roi.Cycles},
			{stream.CapInstructions, "instructions", roi.Instructions},
			{stream.CapL1D, "l1d_hits", roi.L1DHits},
			{stream.CapL1D, "l1d_misses", roi.L1DMisses},
			{stream.CapL2, "l2_hits", roi.L2Hits},
			{stream.CapL2, "l2_misses", roi.L2Misses},
			{stream.CapL3, "l3_hits", roi.L3Hits},
			{stream.CapL3, "l3_misses", roi.L3Misses},
		} {
			if roi.Caps.Has(ev.cap) && ev.value != stream.Unset {
				c.ROICounter.WithLabelValues(ev.name).Set(float64(ev.value))
			}
		}
	}

	if v := res.Validation; v != nil {
		for _, a := range v.Arrays {
			c.ValidationError.WithLabelValues(a.Name).Set(a.AvgRelErr)
		}
		passed := 0.0
		if v.Passed() {
			passed = 1
		}
		c.ValidationPassed.Set(passed)
	}
}

// WriteTextfile writes the registry in the text exposition format, atomically
// replacing path.
func (c *Collectors) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.Registry)
}
