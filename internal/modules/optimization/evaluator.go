package optimization

import (
	"fmt"
	"math"
)

// Evaluate computes expected return, volatility and Sharpe ratio for a single
// weight vector against the given statistics. Pure function, no side effects.
//
// The Sharpe ratio is defined as 0 when volatility falls below a small
// epsilon - a deliberate clamp for degenerate zero-variance portfolios, not a
// silent error.
func Evaluate(weights []float64, stats *ReturnStatistics, riskFreeRate float64) (PortfolioMetrics, error) {
	n := len(stats.Assets)
	if len(weights) != n {
		return PortfolioMetrics{}, fmt.Errorf("%w: weight vector length %d does not match asset count %d", ErrNumeric, len(weights), n)
	}

	expectedReturn := 0.0
	for i, asset := range stats.Assets {
		expectedReturn += weights[i] * stats.MeanReturns[asset]
	}

	variance := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * stats.Covariance[i][j]
		}
	}

	if math.IsNaN(variance) || variance < -radicandTolerance {
		return PortfolioMetrics{}, fmt.Errorf("%w: negative portfolio variance %g (malformed covariance matrix)", ErrNumeric, variance)
	}
	if variance < 0 {
		variance = 0
	}

	volatility := math.Sqrt(variance)

	sharpe := 0.0
	if volatility > volatilityEpsilon {
		sharpe = (expectedReturn - riskFreeRate) / volatility
	}

	return PortfolioMetrics{
		ExpectedReturn: expectedReturn,
		Volatility:     volatility,
		SharpeRatio:    sharpe,
	}, nil
}
