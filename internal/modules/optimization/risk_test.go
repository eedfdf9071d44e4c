package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskMetrics_ParametricVaR(t *testing.T) {
	stats := newTestStatistics([]string{"AAA"}, []float64{0.10}, [][]float64{{0.04}})

	report, err := RiskMetrics([]float64{1.0}, stats, 0.02, 0.95)
	require.NoError(t, err)

	// VaR = -(0.10 + z_0.05 * 0.20), z_0.05 = -1.6449.
	assert.InDelta(t, 0.2290, report.ValueAtRisk, 1e-3)
	assert.InDelta(t, 0.10, report.ExpectedReturn, 1e-12)
	assert.InDelta(t, 0.20, report.Volatility, 1e-12)
	assert.Equal(t, 0.95, report.Confidence)
}

func TestRiskMetrics_VaRSignPreserved(t *testing.T) {
	// A high-return, near-riskless portfolio still gains at the quantile,
	// which shows up as a negative VaR rather than a floored zero.
	stats := newTestStatistics([]string{"AAA"}, []float64{0.50}, [][]float64{{0.0001}})

	report, err := RiskMetrics([]float64{1.0}, stats, 0.02, 0.95)
	require.NoError(t, err)

	// VaR = -(0.50 + z_0.05 * 0.01), z_0.05 = -1.6449.
	assert.InDelta(t, -0.48355, report.ValueAtRisk, 1e-4)
	assert.Negative(t, report.ValueAtRisk)
}

func TestRiskMetrics_DiversificationScore(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB", "CCC", "DDD"},
		[]float64{0.1, 0.1, 0.1, 0.1},
		[][]float64{
			{0.04, 0, 0, 0},
			{0, 0.04, 0, 0},
			{0, 0, 0.04, 0},
			{0, 0, 0, 0.04},
		},
	)

	equal, err := RiskMetrics([]float64{0.25, 0.25, 0.25, 0.25}, stats, 0.02, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, equal.DiversificationScore, 1e-9)
	assert.InDelta(t, 0.25, equal.Herfindahl, 1e-12)
	assert.InDelta(t, 0.25, equal.MaxPosition, 1e-12)

	concentrated, err := RiskMetrics([]float64{1, 0, 0, 0}, stats, 0.02, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, concentrated.DiversificationScore, 1e-9)
	assert.InDelta(t, 1.0, concentrated.MaxPosition, 1e-12)
}

func TestRiskMetrics_SingleAssetScoreIsZero(t *testing.T) {
	stats := newTestStatistics([]string{"AAA"}, []float64{0.10}, [][]float64{{0.04}})

	report, err := RiskMetrics([]float64{1.0}, stats, 0.02, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.DiversificationScore)
}

func TestRiskMetrics_InvalidConfidence(t *testing.T) {
	stats := newTestStatistics([]string{"AAA"}, []float64{0.10}, [][]float64{{0.04}})

	for _, c := range []float64{0.0, 1.0, -0.5, 1.5} {
		_, err := RiskMetrics([]float64{1.0}, stats, 0.02, c)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNumeric)
	}
}

func TestCorrelationMatrix(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.10, 0.20},
		[][]float64{
			{0.04, 0.03},
			{0.03, 0.09},
		},
	)

	corr := CorrelationMatrix(stats)
	assert.Equal(t, 1.0, corr[0][0])
	assert.Equal(t, 1.0, corr[1][1])
	// 0.03 / (0.2 * 0.3) = 0.5
	assert.InDelta(t, 0.5, corr[0][1], 1e-12)
	assert.InDelta(t, 0.5, corr[1][0], 1e-12)
}

func TestCorrelationMatrix_ZeroVarianceAsset(t *testing.T) {
	stats := newTestStatistics(
		[]string{"AAA", "BBB"},
		[]float64{0.10, 0.20},
		[][]float64{
			{0.0, 0.0},
			{0.0, 0.09},
		},
	)

	corr := CorrelationMatrix(stats)
	assert.Equal(t, 1.0, corr[0][0])
	assert.Equal(t, 0.0, corr[0][1])
	assert.Equal(t, 0.0, corr[1][0])
}
