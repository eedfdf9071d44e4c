package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStatistics builds statistics directly from a mean vector and a
// covariance matrix, bypassing price alignment.
func newTestStatistics(assets []string, mu []float64, cov [][]float64) *ReturnStatistics {
	means := make(map[string]float64, len(assets))
	for i, a := range assets {
		means[a] = mu[i]
	}
	return &ReturnStatistics{
		Assets:       assets,
		MeanReturns:  means,
		Covariance:   cov,
		Observations: 252,
	}
}

func TestEvaluate_KnownPortfolio(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.10, 0.20},
		[][]float64{
			{0.04, 0.01},
			{0.01, 0.09},
		},
	)

	metrics, err := Evaluate([]float64{0.5, 0.5}, stats, 0.02)
	require.NoError(t, err)

	assert.InDelta(t, 0.15, metrics.ExpectedReturn, 1e-12)
	// 0.25*0.04 + 0.25*0.09 + 2*0.25*0.01 = 0.0375
	assert.InDelta(t, 0.19364916731, metrics.Volatility, 1e-9)
	assert.InDelta(t, 0.13/0.19364916731, metrics.SharpeRatio, 1e-9)
}

func TestEvaluate_ZeroVolatilitySharpeIsZero(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA"},
		[]float64{0.10},
		[][]float64{{0.0}},
	)

	metrics, err := Evaluate([]float64{1.0}, stats, 0.02)
	require.NoError(t, err)

	assert.Equal(t, 0.0, metrics.Volatility)
	assert.Equal(t, 0.0, metrics.SharpeRatio)
}

func TestEvaluate_LengthMismatch(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.10, 0.20},
		[][]float64{{0.04, 0.0}, {0.0, 0.09}},
	)

	_, err := Evaluate([]float64{1.0}, stats, 0.02)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumeric)
}

func TestEvaluate_MalformedCovariance(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA"},
		[]float64{0.10},
		[][]float64{{-1.0}},
	)

	_, err := Evaluate([]float64{1.0}, stats, 0.02)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumeric)
}

func TestEvaluate_TinyNegativeVarianceClampedToZero(t *testing.T) {
	// Floating-point noise slightly below zero is clamped, not rejected.
	stats := newTestStatistics(
		[]string{"AAA"},
		[]float64{0.10},
		[][]float64{{-1e-12}},
	)

	metrics, err := Evaluate([]float64{1.0}, stats, 0.02)
	require.NoError(t, err)
	assert.Equal(t, 0.0, metrics.Volatility)
}
