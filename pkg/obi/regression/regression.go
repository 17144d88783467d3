// Package regression fits least-squares polynomials by solving the normal
// equations (XᵀX)c = Xᵀy with an explicit matrix inverse.
//
// It is used to smooth per-grade likelihood curves, so inputs are short
// (one point per grade) and degrees are small.
package regression

import (
	"errors"
	"fmt"
	"math"

	"github.com/cognicore/obi/pkg/obi/internalerr"
)

var (
	// ErrSingular is returned when the normal matrix has no inverse, e.g. when
	// there are fewer distinct x values than coefficients.
	ErrSingular = errors.New("regression: singular normal matrix")
	// ErrNonSquare is returned by Inverse for a non-square input.
	ErrNonSquare = errors.New("regression: matrix is not square")
)

// pivotTolerance is relative to the largest entry of the matrix.
const pivotTolerance = 1e-13

// Regress fits a polynomial of the given degree to (x_i, y_i) and returns
// the fitted value at every x_i. A nil x means 0..len(y)-1.
//
// The fit is computed on x rescaled to [-1, 1]. Polynomials of a fixed
// degree are closed under affine maps, so the fitted values are the same
// while the normal matrix stays well conditioned.
func Regress(degree int, y, x []float64) ([]float64, error) {
	if x == nil {
		x = Indices(len(y))
	}
	t := rescale(x)
	coeffs, err := Fit(degree, y, t)
	if err != nil {
		return nil, err
	}
	return Values(coeffs, t), nil
}

// Fit returns c_0..c_degree minimising Σ (y_i - Σ c_j x_i^j)².
func Fit(degree int, y, x []float64) ([]float64, error) {
	if degree < 0 {
		return nil, fmt.Errorf("regression degree %d: %w", degree, internalerr.ErrInvalidConfig)
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("regression: %d x values for %d y values: %w", len(x), len(y), internalerr.ErrInvalidInput)
	}
	if n := distinct(x); n < degree+1 {
		return nil, fmt.Errorf("degree %d needs %d distinct points, have %d: %w", degree, degree+1, n, ErrSingular)
	}

	k := degree + 1
	a := make([][]float64, k)
	b := make([]float64, k)
	for j := 0; j < k; j++ {
		a[j] = make([]float64, k)
		for l := 0; l < k; l++ {
			var sum float64
			for _, xi := range x {
				sum += math.Pow(xi, float64(j+l))
			}
			a[j][l] = sum
		}
		for i, xi := range x {
			b[j] += y[i] * math.Pow(xi, float64(j))
		}
	}

	inv, err := Inverse(a)
	if err != nil {
		return nil, err
	}

	c := make([]float64, k)
	for j := 0; j < k; j++ {
		for l := 0; l < k; l++ {
			c[j] += inv[j][l] * b[l]
		}
	}
	return c, nil
}

// Value evaluates Σ c_j x^j.
func Value(coeffs []float64, x float64) float64 {
	var v float64
	for j := len(coeffs) - 1; j >= 0; j-- {
		v = v*x + coeffs[j]
	}
	return v
}

// Values evaluates the polynomial at every x.
func Values(coeffs []float64, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = Value(coeffs, x)
	}
	return out
}

// Indices returns 0, 1, ..., n-1.
func Indices(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

// Inverse returns the inverse of a square matrix using Gauss-Jordan
// elimination with partial pivoting. The input is not modified.
func Inverse(m [][]float64) ([][]float64, error) {
	n := len(m)
	var scale float64
	for _, row := range m {
		if len(row) != n {
			return nil, ErrNonSquare
		}
		for _, v := range row {
			scale = max(scale, math.Abs(v))
		}
	}
	if n == 0 || scale == 0 {
		return nil, ErrSingular
	}

	// Augmented [m | I].
	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	var col, i, j int
	for col = 0; col < n; col++ {
		pivotRow := col
		for i = col + 1; i < n; i++ {
			if math.Abs(aug[i][col]) > math.Abs(aug[pivotRow][col]) {
				pivotRow = i
			}
		}
		pivot := aug[pivotRow][col]
		if math.Abs(pivot) <= pivotTolerance*scale {
			return nil, ErrSingular
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		for j = 0; j < 2*n; j++ {
			aug[col][j] /= pivot
		}
		for i = 0; i < n; i++ {
			if i == col {
				continue
			}
			f := aug[i][col]
			if f == 0 {
				continue
			}
			for j = 0; j < 2*n; j++ {
				aug[i][j] -= f * aug[col][j]
			}
		}
	}

	inv := make([][]float64, n)
	for i = range inv {
		inv[i] = append([]float64(nil), aug[i][n:]...)
	}
	return inv, nil
}

func distinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}

// rescale maps xs affinely onto [-1, 1]. Constant input maps to zeros.
func rescale(xs []float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	mid := (lo + hi) / 2
	half := (hi - lo) / 2
	out := make([]float64, len(xs))
	for i, x := range xs {
		if half == 0 {
			out[i] = 0
			continue
		}
		out[i] = (x - mid) / half
	}
	return out
}
