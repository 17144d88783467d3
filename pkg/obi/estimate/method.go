package estimate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/obi/pkg/obi/internalerr"
)

// Method names a likelihood curve: ns is the raw curve, sK is the raw curve
// smoothed by a degree-K polynomial.
type Method string

const (
	NS Method = "ns"
	S2 Method = "s2"
	S3 Method = "s3"
	S4 Method = "s4"
	S5 Method = "s5"
)

// MethodOrder is the order in which per-method grades are reported.
var MethodOrder = []Method{NS, S5, S4, S3, S2}

// DefaultVoting is the method subset whose median is the primary estimate.
var DefaultVoting = []Method{NS, S4, S2}

// Degree returns the smoothing polynomial degree, 0 for ns.
func (m Method) Degree() int {
	switch m {
	case S2:
		return 2
	case S3:
		return 3
	case S4:
		return 4
	case S5:
		return 5
	default:
		return 0
	}
}

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	for _, k := range MethodOrder {
		if m == k {
			return true
		}
	}
	return false
}

// MethodsFromSmoothing maps a smoothing list such as [0 2 4] to methods:
// 0 is ns and k is sk.
func MethodsFromSmoothing(degrees []int) ([]Method, error) {
	out := make([]Method, 0, len(degrees))
	for _, d := range degrees {
		m := NS
		if d != 0 {
			m = Method("s" + strconv.Itoa(d))
		}
		if !m.Valid() {
			return nil, fmt.Errorf("smoothing degree %d: %w", d, internalerr.ErrInvalidConfig)
		}
		out = append(out, m)
	}
	return out, nil
}

// ParseSmoothing parses a comma separated smoothing list ("0,2,4").
func ParseSmoothing(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("smoothing list %q: %w", s, internalerr.ErrInvalidConfig)
		}
		out = append(out, d)
	}
	return out, nil
}
