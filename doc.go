// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stream measures sustained memory bandwidth with the four STREAM
// kernels:
//
//	Copy:  C = A
//	Scale: B = s*C
//	Add:   C = A + B
//	Triad: A = B + s*C
//
// The arrays are sized by the caller to exceed the last level cache. Each
// kernel is split across a persistent worker pool over disjoint index ranges,
// the trial loop is bracketed by a region-of-interest Counter, and the final
// array contents are checked against a scalar replay of the same recurrence.
//
// Typical use:
//
//	cfg := stream.DefaultConfig()
//	cfg.ArrayLength = 50_000_000
//	res, err := stream.Run(cfg, stream.Options{})
//	if err != nil {
//	    return err
//	}
//	res.WriteSummary(os.Stderr)
//	res.Validation.WriteTo(os.Stdout)
//
// Counter backends range from none through wall clock to Linux perf_event
// hardware counters and gem5 simulator hooks; see NewBackend.
package stream
