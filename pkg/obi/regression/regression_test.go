package regression

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-8

func TestRegressExactInterpolation(t *testing.T) {
	samples := [][]float64{
		{3, -1},
		{0.5, 2.25, -4},
		{10, 0, 10, 0},
		{1, 4, 9, 16, 25},
		{-3.2, 7.1, 0.04, 12.5, -8.8, 2.0},
	}
	for _, y := range samples {
		t.Run(fmt.Sprintf("n=%d", len(y)), func(t *testing.T) {
			got, err := Regress(len(y)-1, y, nil)
			require.NoError(t, err)
			require.Len(t, got, len(y))
			assert.InDeltaSlice(t, y, got, tol)
		})
	}
}

func TestRegressRecoversPolynomial(t *testing.T) {
	// y = 2 - 3x + 0.5x² over thirteen grades.
	xs := Indices(13)
	y := make([]float64, len(xs))
	for i, x := range xs {
		y[i] = 2 - 3*x + 0.5*x*x
	}
	for _, degree := range []int{2, 3, 4, 5} {
		got, err := Regress(degree, y, nil)
		require.NoError(t, err, "degree %d", degree)
		assert.InDeltaSlice(t, y, got, 1e-6, "degree %d", degree)
	}
}

func TestFitLine(t *testing.T) {
	c, err := Fit(1, []float64{1, 3, 5, 7}, []float64{0, 1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c[0], tol)
	assert.InDelta(t, 2.0, c[1], tol)
	assert.InDelta(t, 9.0, Value(c, 4), tol)
}

func TestRegressCustomX(t *testing.T) {
	y := []float64{4, 1, 0, 1, 4}
	x := []float64{-2, -1, 0, 1, 2}
	got, err := Regress(2, y, x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, got, tol)
}

func TestRegressUnderdetermined(t *testing.T) {
	_, err := Regress(3, []float64{1, 2, 3}, nil)
	assert.True(t, errors.Is(err, ErrSingular), "got %v", err)

	_, err = Regress(2, []float64{1, 2, 3, 4}, []float64{1, 1, 2, 2})
	assert.True(t, errors.Is(err, ErrSingular), "got %v", err)
}

func TestInverse(t *testing.T) {
	inv, err := Inverse([][]float64{{4, 7}, {2, 6}})
	require.NoError(t, err)
	want := [][]float64{{0.6, -0.7}, {-0.2, 0.4}}
	for i := range want {
		assert.InDeltaSlice(t, want[i], inv[i], tol)
	}

	// Needs a row swap.
	inv, err = Inverse([][]float64{{0, 1}, {1, 0}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1}, inv[0], tol)
	assert.InDeltaSlice(t, []float64{1, 0}, inv[1], tol)
}

func TestInverseErrors(t *testing.T) {
	_, err := Inverse([][]float64{{1, 2}, {2, 4}})
	assert.ErrorIs(t, err, ErrSingular)

	_, err = Inverse([][]float64{{1, 2, 3}, {4, 5, 6}})
	assert.ErrorIs(t, err, ErrNonSquare)

	_, err = Inverse([][]float64{{0, 0}, {0, 0}})
	assert.ErrorIs(t, err, ErrSingular)
}

func TestInverseDoesNotModifyInput(t *testing.T) {
	m := [][]float64{{2, 1}, {1, 3}}
	_, err := Inverse(m)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 1}, {1, 3}}, m)
}
