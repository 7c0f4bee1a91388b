// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command stream measures sustained memory bandwidth.
//
// Usage:
//
//	stream N RESERVED RESERVED [flags]
//
// N is the number of elements per array. The two reserved positional values
// are accepted for compatibility with existing run scripts and ignored.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/LynnColeArt/stream"
	"github.com/LynnColeArt/stream/metrics"
)

// Exit statuses
const (
	exitOK    = 0
	exitUsage = 1 // bad arguments or configuration
	exitFatal = 2 // resource exhaustion or counter failure
)

type options struct {
	precision    string
	trials       int
	threads      int
	offset       int
	seed         uint64
	backend      string
	cpu          int
	kernelTiming bool
	verbose      bool
	jsonPath     string
	metricsPath  string
	logLevel     string
	m5Path       string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	stream.SetLogger(log)
	defer stream.SetLogger(nil)

	cmd := newRootCmd(stdout, stderr, log)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var se *stream.StreamError
	if errors.As(err, &se) && !stream.IsConfigError(err) {
		return exitFatal
	}
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer, log *logrus.Logger) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "stream N RESERVED RESERVED",
		Short: "Measure sustained memory bandwidth with the Copy, Scale, Add and Triad kernels",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("argc=%d: expected array length and two reserved values", len(args)+1)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return stream.NewConfigError("log-level", err.Error())
			}
			log.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(opts, args, stdout, stderr, log)
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.SetNormalizeFunc(normalizeFlag)
	f.StringVarP(&opts.precision, "precision", "p", "float64", "element type: float32 or float64")
	f.IntVarP(&opts.trials, "trials", "n", stream.DefaultTrials, "number of times each kernel is executed (NTIMES, at least 2)")
	f.IntVarP(&opts.threads, "threads", "t", 0, "worker count; 0 reads STREAM_NUM_THREADS or OMP_NUM_THREADS, then GOMAXPROCS")
	f.IntVar(&opts.offset, "offset", 0, "array offset in elements")
	f.Uint64Var(&opts.seed, "seed", 0, "initializer seed; 0 uses the current time")
	f.StringVarP(&opts.backend, "backend", "b", "wallclock", "ROI counter backend: none, wallclock, hardware, simulator")
	f.IntVar(&opts.cpu, "cpu", -1, "bind the driver thread to this logical CPU; -1 disables")
	f.BoolVar(&opts.kernelTiming, "kernel-timing", true, "time each kernel invocation to report per-kernel best rates")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "list offending indices when validation fails")
	f.StringVar(&opts.jsonPath, "json", "", "append the run to this JSON result log")
	f.StringVar(&opts.metricsPath, "metrics-textfile", "", "write Prometheus metrics to this textfile")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&opts.m5Path, "m5", "", "path to the gem5 m5 utility for the simulator backend")

	return cmd
}

// normalizeFlag accepts underscores in flag names, e.g. --kernel_timing.
func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// buildConfig turns positional arguments and flags into a validated Config.
func buildConfig(opts *options, args []string) (stream.Config, error) {
	cfg := stream.DefaultConfig()

	n, err := strconv.ParseUint(args[0], 10, 0)
	if err != nil {
		return cfg, stream.NewConfigError("args", fmt.Sprintf("array length %q is not a non-negative integer", args[0]))
	}
	cfg.ArrayLength = int(n)

	if cfg.Precision, err = stream.ParsePrecision(opts.precision); err != nil {
		return cfg, err
	}
	cfg.Trials = opts.trials
	cfg.Offset = opts.offset
	cfg.Seed = opts.seed
	cfg.KernelTiming = opts.kernelTiming
	cfg.Verbose = opts.verbose
	cfg.Workers = opts.threads
	if cfg.Workers <= 0 {
		cfg.Workers = stream.WorkersFromEnv()
	}

	return cfg, cfg.Validate()
}

func runBenchmark(opts *options, args []string, stdout, stderr io.Writer, log *logrus.Logger) error {
	cfg, err := buildConfig(opts, args)
	if err != nil {
		return err
	}
	kind, err := stream.ParseBackendKind(opts.backend)
	if err != nil {
		return err
	}
	log.Debugf("reserved arguments %q and %q ignored", args[1], args[2])

	if opts.cpu >= 0 {
		if err := stream.PinToCPU(opts.cpu); err != nil {
			return err
		}
	}

	version, _ := stream.Version()
	if err := stream.WriteBanner(stderr, cfg, version); err != nil {
		return err
	}
	host := stream.DescribeHost()
	fmt.Fprint(stderr, stream.HLine, host.String())

	backend, err := stream.NewBackend(kind, stream.BackendOptions{
		Hooks: stream.M5Hooks{Path: opts.m5Path},
	})
	if err != nil {
		return err
	}
	defer backend.Close()

	res, err := stream.Run(cfg, stream.Options{Backend: backend})
	if err != nil {
		return err
	}

	if err := res.WriteSummary(stderr); err != nil {
		return err
	}
	if _, err := res.Validation.WriteTo(stdout); err != nil {
		return err
	}
	fmt.Fprint(stdout, stream.HLine)
	if !res.Validation.Passed() {
		log.Warn("validation failed; reported bandwidth may be meaningless")
	}

	if opts.jsonPath != "" {
		rl, err := stream.OpenResultLog(opts.jsonPath)
		if err != nil {
			return err
		}
		if err := rl.Append(stream.NewRunRecord(res, host, version)); err != nil {
			return err
		}
		log.Infof("result appended to %s", opts.jsonPath)
	}

	if opts.metricsPath != "" {
		m := metrics.New()
		m.Record(res)
		if err := m.WriteTextfile(opts.metricsPath); err != nil {
			return err
		}
		log.Infof("metrics written to %s", opts.metricsPath)
	}
	return nil
}
