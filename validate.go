// Package stream result validation against the analytic scalar recurrence
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// maxListedErrors bounds the per-array index listing in verbose mode.
const maxListedErrors = 10

// Reference replays the kernel sequence on scalars. It starts from the
// primed state a=1, b=2, c=0 followed by a=2a, then applies trials
// iterations of Copy, Scale, Add and Triad, all in the element type.
func Reference[T Element](trials int, scalar T) (aj, bj, cj T) {
	aj, bj, cj = 1, 2, 0
	aj = 2 * aj
	for k := 0; k < trials; k++ {
		cj = aj
		bj = scalar * cj
		cj = aj + bj
		aj = bj + T(scalar*cj)
	}
	return aj, bj, cj
}

// ElementError is one offending index, reported in verbose mode.
type ElementError struct {
	Index    int     `json:"index"`
	Observed float64 `json:"observed"`
	RelError float64 `json:"relative_error"`
}

// MarshalJSON writes non-finite values as null.
func (e ElementError) MarshalJSON() ([]byte, error) {
	type plain ElementError
	return json.Marshal(struct {
		plain
		Observed any `json:"observed"`
		RelError any `json:"relative_error"`
	}{plain(e), finite(e.Observed), finite(e.RelError)})
}

// ArrayCheck is the validation outcome for one array.
type ArrayCheck struct {
	Name       string         `json:"name"`
	Expected   float64        `json:"expected"`
	AvgAbsErr  float64        `json:"avg_abs_error"`
	AvgRelErr  float64        `json:"avg_rel_error"`
	Violations int            `json:"violations"`
	Passed     bool           `json:"passed"`
	Listed     []ElementError `json:"listed,omitempty"`
}

// MarshalJSON writes non-finite values, which encoding/json rejects, as null.
func (c ArrayCheck) MarshalJSON() ([]byte, error) {
	type plain ArrayCheck
	return json.Marshal(struct {
		plain
		Expected  any `json:"expected"`
		AvgAbsErr any `json:"avg_abs_error"`
		AvgRelErr any `json:"avg_rel_error"`
	}{plain(c), finite(c.Expected), finite(c.AvgAbsErr), finite(c.AvgRelErr)})
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// ValidationReport is the outcome for all three arrays.
type ValidationReport struct {
	Epsilon          float64       `json:"epsilon"`
	ByteWidth        int           `json:"byte_width"`
	UnsupportedWidth bool          `json:"unsupported_width,omitempty"`
	Arrays           [3]ArrayCheck `json:"arrays"`
}

// Passed is true when all three arrays are within epsilon.
func (r *ValidationReport) Passed() bool {
	for _, a := range r.Arrays {
		if !a.Passed {
			return false
		}
	}
	return true
}

// Validator checks final array contents against Reference.
type Validator struct {
	Trials  int
	Scalar  float64
	Verbose bool
}

// NewValidator takes trials, scalar and verbosity from cfg.
func NewValidator(cfg Config) *Validator {
	return &Validator{Trials: cfg.Trials, Scalar: cfg.Scalar, Verbose: cfg.Verbose}
}

// Validate computes the report. It never fails: a mismatch is a result.
func Validate[T Element](v *Validator, arr *Arrays[T]) *ValidationReport {
	width := ByteWidthOf[T]()
	eps, ok := EpsilonForWidth(width)
	if !ok {
		Logger().Warnf("unexpected element width %d bytes; using epsilon %e", width, eps)
	}

	aj, bj, cj := Reference(v.Trials, T(v.Scalar))
	return &ValidationReport{
		Epsilon:          eps,
		ByteWidth:        width,
		UnsupportedWidth: !ok,
		Arrays: [3]ArrayCheck{
			checkArray("a", arr.A, aj, eps, v.Verbose),
			checkArray("b", arr.B, bj, eps, v.Verbose),
			checkArray("c", arr.C, cj, eps, v.Verbose),
		},
	}
}

// deviation is |x - ref|, with an exact match (matching infinities
// included) counting as zero.
func deviation[T Element](x, ref T) float64 {
	if x == ref {
		return 0
	}
	return math.Abs(float64(x) - float64(ref))
}

func checkArray[T Element](name string, xs []T, ref T, eps float64, verbose bool) ArrayCheck {
	expected := float64(ref)
	chk := ArrayCheck{Name: name, Expected: expected}

	var sum float64
	for _, x := range xs {
		sum += deviation(x, ref)
	}
	if len(xs) > 0 {
		chk.AvgAbsErr = sum / float64(len(xs))
	}
	chk.AvgRelErr = relative(chk.AvgAbsErr, expected)

	// A NaN relative error fails
	chk.Passed = chk.AvgRelErr <= eps
	if chk.Passed {
		return chk
	}

	for j, x := range xs {
		rel := relative(deviation(x, ref), expected)
		if rel <= eps {
			continue
		}
		chk.Violations++
		if verbose && len(chk.Listed) < maxListedErrors {
			chk.Listed = append(chk.Listed, ElementError{Index: j, Observed: float64(x), RelError: rel})
		}
	}
	return chk
}

func relative(absErr, ref float64) float64 {
	if absErr == 0 {
		return 0
	}
	return math.Abs(absErr / ref)
}

// WriteTo prints the validation section.
func (r *ValidationReport) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	if r.UnsupportedWidth {
		fmt.Fprintf(&sb, "WEIRD: element width = %d bytes, using epsilon %e\n", r.ByteWidth, r.Epsilon)
	}
	for _, a := range r.Arrays {
		if a.Passed {
			continue
		}
		fmt.Fprintf(&sb, "Failed Validation on array %s[], AvgRelAbsErr > epsilon (%e)\n", a.Name, r.Epsilon)
		fmt.Fprintf(&sb, "     Expected Value: %e, AvgAbsErr: %e, AvgRelAbsErr: %e\n", a.Expected, a.AvgAbsErr, a.AvgRelErr)
		for _, e := range a.Listed {
			fmt.Fprintf(&sb, "         array %s: index: %d, expected: %e, observed: %e, relative error: %e\n",
				a.Name, e.Index, a.Expected, e.Observed, e.RelError)
		}
		fmt.Fprintf(&sb, "     For array %s[], %d errors were found.\n", a.Name, a.Violations)
	}
	if r.Passed() {
		fmt.Fprintf(&sb, "Solution Validates: avg error less than %e on all three arrays\n", r.Epsilon)
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}
