package stream

import (
	"fmt"
	"io"
	"strings"
)

// HLine separates report sections.
const HLine = "-------------------------------------------------------------\n"

// WriteBanner prints the configuration section.
func WriteBanner(w io.Writer, cfg Config, version string) error {
	var sb strings.Builder
	width := cfg.Precision.ByteWidth()
	n := float64(cfg.ArrayLength)

	sb.WriteString(HLine)
	if version == "" {
		version = "devel"
	}
	fmt.Fprintf(&sb, "STREAM (Go) version %s\n", version)
	sb.WriteString(HLine)
	fmt.Fprintf(&sb, "This system uses %d bytes per array element.\n", width)
	sb.WriteString(HLine)
	fmt.Fprintf(&sb, "Array size = %d (elements), Offset = %d (elements)\n", cfg.ArrayLength, cfg.Offset)
	fmt.Fprintf(&sb, "Memory per array = %.1f MiB (= %.1f GiB).\n",
		float64(width)*n/1024/1024, float64(width)*n/1024/1024/1024)
	fmt.Fprintf(&sb, "Total memory required = %.1f MiB (= %.1f GiB).\n",
		3*float64(width)*n/1024/1024, 3*float64(width)*n/1024/1024/1024)
	fmt.Fprintf(&sb, "Each kernel will be executed %d times.\n", cfg.Trials)
	sb.WriteString(" The *best* time for each kernel (excluding the first iteration)\n")
	sb.WriteString(" will be used to compute the reported bandwidth.\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteSummary prints the timing, counter and bandwidth sections of r.
func (r *Result) WriteSummary(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString(HLine)
	fmt.Fprintf(&sb, "Number of workers = %d, counter backend = %s\n", r.Workers, r.Backend)
	if us := r.PrimeTime.Microseconds(); us > 0 {
		fmt.Fprintf(&sb, "Each test below will take on the order of %d microseconds.\n", us)
	} else {
		sb.WriteString("Each test below will take less than one microsecond.\n")
	}
	sb.WriteString(HLine)

	if len(r.Kernels) > 0 {
		fmt.Fprintf(&sb, "%-8s %16s %14s\n", "Function", "Best Rate MB/s", "Min time")
		for _, k := range r.Kernels {
			fmt.Fprintf(&sb, "%-8s %16.1f %14.6f\n", k.Kernel.String()+":", k.BestRate, k.MinTime.Seconds())
		}
		sb.WriteString(HLine)
	}

	sb.WriteString(r.ROI.String())
	if rate := r.AggregateRate(); rate > 0 {
		fmt.Fprintf(&sb, "  Aggregate rate:    %.1f MB/s over %d trials\n", rate, r.Config.Trials)
	}
	sb.WriteString(HLine)

	_, err := io.WriteString(w, sb.String())
	return err
}
