// Package estimate converts the scored evidence of a text into grade
// estimates: a raw percentage curve, polynomial-smoothed variants of it, and
// a median vote over a configurable subset of those curves.
package estimate

import (
	"fmt"
	"slices"

	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/model"
	"github.com/cognicore/obi/pkg/obi/regression"
)

// Scale selects an optional remap of the voted grade.
type Scale string

const (
	ScaleNone Scale = ""
	ScaleT7   Scale = "T7"
)

// Options selects which curves are computed and which of them vote.
// Zero values mean all methods and DefaultVoting.
type Options struct {
	Methods []Method
	Voting  []Method
	Scale   Scale
}

// Result owns every curve derived from one contribution vector.
type Result struct {
	Contrib model.Contribution
	Methods []Method // computed methods in MethodOrder
	Voting  []Method
	Curves  map[Method][]float64
	Grades  map[Method]int
	Vote    float64 // median of the voting grades
	Final   float64 // Vote after the optional scale remap
}

// Grade returns the primary estimate.
func (r *Result) Grade() float64 { return r.Final }

// Estimate builds the curves for contrib. With no operative evidence every
// grade is 0. A smoothing degree the grade count cannot support is an error.
func Estimate(contrib model.Contribution, opts Options) (*Result, error) {
	methods, voting, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Contrib: contrib,
		Methods: methods,
		Voting:  voting,
		Curves:  make(map[Method][]float64, len(methods)),
		Grades:  make(map[Method]int, len(methods)),
	}
	for _, m := range methods {
		res.Grades[m] = 0
	}
	if contrib.Operative <= 0 {
		return res, nil
	}

	raw := Curve(contrib)
	for _, m := range methods {
		curve := raw
		if d := m.Degree(); d > 0 {
			curve, err = regression.Regress(d, raw, nil)
			if err != nil {
				return nil, fmt.Errorf("smooth %s over %d grades: %w", m, len(raw), err)
			}
		}
		res.Curves[m] = curve
		res.Grades[m] = ArgMax(curve)
	}

	grades := make([]int, len(voting))
	for i, m := range voting {
		grades[i] = res.Grades[m]
	}
	res.Vote = Median(grades)
	res.Final = res.Vote
	if opts.Scale == ScaleT7 {
		res.Final = T7(res.Vote)
	}
	return res, nil
}

func (o Options) resolve() ([]Method, []Method, error) {
	if o.Scale != ScaleNone && o.Scale != ScaleT7 {
		return nil, nil, fmt.Errorf("scale %q: %w", o.Scale, internalerr.ErrInvalidConfig)
	}

	requested := o.Methods
	if len(requested) == 0 {
		requested = MethodOrder
	}
	var methods []Method
	for _, m := range MethodOrder {
		if slices.Contains(requested, m) {
			methods = append(methods, m)
		}
	}
	for _, m := range requested {
		if !m.Valid() {
			return nil, nil, fmt.Errorf("method %q: %w", m, internalerr.ErrInvalidConfig)
		}
	}

	voting := o.Voting
	if len(voting) == 0 {
		voting = DefaultVoting
	}
	for _, m := range voting {
		if !slices.Contains(methods, m) {
			return nil, nil, fmt.Errorf("voting method %q is not computed: %w", m, internalerr.ErrInvalidConfig)
		}
	}
	return methods, voting, nil
}

// Curve returns 100 * total_i / operative for every grade.
func Curve(contrib model.Contribution) []float64 {
	out := make([]float64, len(contrib.Totals))
	if contrib.Operative <= 0 {
		return out
	}
	for i, v := range contrib.Totals {
		out[i] = 100 * v / float64(contrib.Operative)
	}
	return out
}

// ArgMax returns the 1-based index of the largest value, preferring the
// lowest index on ties. An empty curve gives 0.
func ArgMax(curve []float64) int {
	best := 0
	for i, v := range curve {
		if best == 0 || v > curve[best-1] {
			best = i + 1
		}
	}
	return best
}

// Median returns the middle grade, or the mean of the two middle grades
// for an even count.
func Median(grades []int) float64 {
	if len(grades) == 0 {
		return 0
	}
	s := slices.Clone(grades)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return float64(s[mid])
	}
	return float64(s[mid-1]+s[mid]) / 2
}

// T7 maps the 13-grade scale onto seven bands:
// 0 stays 0, 1-6 are 1, 7-10 are 5, 11-12 are 6 and 13 is 7.
// Half grades fall into the band of the grade above.
func T7(v float64) float64 {
	switch {
	case v <= 0:
		return 0
	case v <= 6:
		return 1
	case v <= 10:
		return 5
	case v <= 12:
		return 6
	default:
		return 7
	}
}
