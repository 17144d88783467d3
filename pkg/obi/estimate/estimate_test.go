package estimate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/model"
	"github.com/cognicore/obi/pkg/obi/regression"
)

// peaked returns a 13-grade contribution vector that peaks at grade peak.
func peaked(peak int) model.Contribution {
	totals := make([]float64, 13)
	for i := range totals {
		d := float64(i + 1 - peak)
		totals[i] = 50 - d*d
	}
	return model.Contribution{Operative: 100, Totals: totals}
}

func TestEstimateAllMethods(t *testing.T) {
	res, err := Estimate(peaked(7), Options{})
	require.NoError(t, err)

	assert.Equal(t, MethodOrder, res.Methods)
	for _, m := range MethodOrder {
		require.Len(t, res.Curves[m], 13, m)
		assert.Equal(t, 7, res.Grades[m], m)
	}
	assert.Equal(t, 7.0, res.Vote)
	assert.Equal(t, 7.0, res.Grade())
	assert.InDelta(t, 50.0, res.Curves[NS][6], 1e-12)
}

func TestEstimateT7OnlyRemapsVote(t *testing.T) {
	res, err := Estimate(peaked(8), Options{Scale: ScaleT7})
	require.NoError(t, err)
	assert.Equal(t, 8.0, res.Vote)
	assert.Equal(t, 5.0, res.Final)
	assert.Equal(t, 8, res.Grades[NS])
}

func TestEstimateNoEvidence(t *testing.T) {
	res, err := Estimate(model.Contribution{Totals: make([]float64, 3)}, Options{})
	require.NoError(t, err)
	for _, m := range MethodOrder {
		assert.Equal(t, 0, res.Grades[m], m)
	}
	assert.Zero(t, res.Vote)
	assert.Zero(t, res.Final)
	assert.Empty(t, res.Curves)
}

func TestEstimateTooFewGradesForSmoothing(t *testing.T) {
	contrib := model.Contribution{Operative: 10, Totals: []float64{1, -1, 0}}
	_, err := Estimate(contrib, Options{})
	assert.True(t, errors.Is(err, regression.ErrSingular), "got %v", err)

	res, err := Estimate(contrib, Options{Methods: []Method{NS, S2}, Voting: []Method{NS, S2}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Grades[NS])
}

func TestEstimateVotingMustBeComputed(t *testing.T) {
	_, err := Estimate(peaked(3), Options{Methods: []Method{NS}, Voting: []Method{S4}})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig), "got %v", err)

	_, err = Estimate(peaked(3), Options{Scale: "T5"})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig), "got %v", err)
}

func TestArgMaxPrefersLowestGrade(t *testing.T) {
	assert.Equal(t, 2, ArgMax([]float64{1, 5, 5, 2}))
	assert.Equal(t, 1, ArgMax([]float64{0, 0}))
	assert.Equal(t, 0, ArgMax(nil))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 4.0, Median([]int{6, 2, 4}))
	assert.Equal(t, 5.0, Median([]int{6, 4}))
	assert.Equal(t, 4.5, Median([]int{3, 6, 4, 5}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestT7(t *testing.T) {
	table := map[float64]float64{
		0: 0, 3: 1, 6: 1, 7: 5, 10: 5, 11: 6, 12: 6, 13: 7,
		6.5: 5, 12.5: 7,
	}
	for in, want := range table {
		assert.Equal(t, want, T7(in), "T7(%v)", in)
	}
}

func TestMethodsFromSmoothing(t *testing.T) {
	got, err := MethodsFromSmoothing([]int{0, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, []Method{NS, S2, S4}, got)

	_, err = MethodsFromSmoothing([]int{7})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	degrees, err := ParseSmoothing("0, 3,5")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 5}, degrees)

	_, err = ParseSmoothing("0,x")
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}
