package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertValidWeights(t *testing.T, weights []float64, n int) {
	t.Helper()
	require.Len(t, weights, n)
	sum := 0.0
	for _, w := range weights {
		assert.GreaterOrEqual(t, w, 0.0)
		assert.LessOrEqual(t, w, 1.0+WeightSumTolerance)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, WeightSumTolerance)
}

func TestMaxSharpe_SingleAsset(t *testing.T) {
	stats := newTestStatistics([]string{"AAA"}, []float64{0.10}, [][]float64{{0.04}})

	res, err := MaxSharpe(stats, 0.02)
	require.NoError(t, err)

	assert.Equal(t, []float64{1.0}, res.Weights)
	assert.True(t, res.Converged)
}

func TestMaxSharpe_FavorsDominantAsset(t *testing.T) {
	// AAA has Sharpe 1.8, BBB has 0.1. The tangency portfolio sits almost
	// entirely in AAA.
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.20, 0.05},
		[][]float64{
			{0.01, 0.0},
			{0.0, 0.09},
		},
	)

	res, err := MaxSharpe(stats, 0.02)
	require.NoError(t, err)

	assertValidWeights(t, res.Weights, 2)
	assert.Greater(t, res.Weights[0], 0.9)
}

func TestMaxSharpe_BeatsEqualWeight(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB", "CCC"},
		[]float64{0.12, 0.08, 0.15},
		[][]float64{
			{0.04, 0.01, 0.00},
			{0.01, 0.02, 0.01},
			{0.00, 0.01, 0.06},
		},
	)

	res, err := MaxSharpe(stats, 0.02)
	require.NoError(t, err)
	assertValidWeights(t, res.Weights, 3)

	optimal, err := Evaluate(res.Weights, stats, 0.02)
	require.NoError(t, err)
	equal, err := Evaluate([]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, stats, 0.02)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, optimal.SharpeRatio, equal.SharpeRatio)
}

func TestMaxSharpe_NoAssets(t *testing.T) {
	stats := newTestStatistics([]string{}, []float64{}, [][]float64{})

	_, err := MaxSharpe(stats, 0.02)
	require.Error(t, err)
	var optErr *OptimizationError
	assert.ErrorAs(t, err, &optErr)
}

func TestMinVolatility_SymmetricAssetsSplitEvenly(t *testing.T) {
	// Identical uncorrelated assets have a unique minimum at 50/50.
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.10, 0.10},
		[][]float64{
			{0.04, 0.0},
			{0.0, 0.04},
		},
	)

	res, err := MinVolatility(stats, nil)
	require.NoError(t, err)

	assertValidWeights(t, res.Weights, 2)
	assert.InDelta(t, 0.5, res.Weights[0], 0.02)
	assert.InDelta(t, 0.5, res.Weights[1], 0.02)
}

func TestMinVolatility_SingleAsset(t *testing.T) {
	stats := newTestStatistics([]string{"AAA"}, []float64{0.10}, [][]float64{{0.04}})

	res, err := MinVolatility(stats, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, res.Weights)
}

func TestMinVolatility_PrefersLowVarianceAsset(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.10, 0.20},
		[][]float64{
			{0.01, 0.0},
			{0.0, 0.16},
		},
	)

	res, err := MinVolatility(stats, nil)
	require.NoError(t, err)

	assertValidWeights(t, res.Weights, 2)
	// Analytic minimum: w_AAA = 0.16 / (0.01 + 0.16).
	assert.InDelta(t, 0.16/0.17, res.Weights[0], 0.02)
}

func TestMinVolatility_TargetReturnHonored(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.10, 0.20},
		[][]float64{
			{0.04, 0.0},
			{0.0, 0.09},
		},
	)

	target := 0.12
	res, err := MinVolatility(stats, &target)
	require.NoError(t, err)

	assertValidWeights(t, res.Weights, 2)

	achieved := 0.10*res.Weights[0] + 0.20*res.Weights[1]
	assert.InDelta(t, target, achieved, 2e-3)
	// Analytic solution for the linear constraints: w = (0.8, 0.2).
	assert.InDelta(t, 0.8, res.Weights[0], 0.05)
}

func TestMinVolatility_InfeasibleTargetAboveRange(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.10, 0.20},
		[][]float64{
			{0.04, 0.0},
			{0.0, 0.09},
		},
	)

	target := 0.50 // no long-only combination reaches this
	_, err := MinVolatility(stats, &target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfeasibleTarget)
}

func TestMinVolatility_InfeasibleTargetBelowRange(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.10, 0.20},
		[][]float64{
			{0.04, 0.0},
			{0.0, 0.09},
		},
	)

	target := -0.05
	_, err := MinVolatility(stats, &target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfeasibleTarget)
}
