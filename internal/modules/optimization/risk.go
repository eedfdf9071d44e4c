package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultVaRConfidence is the confidence level used for value-at-risk when a
// request does not specify one.
const DefaultVaRConfidence = 0.95

// RiskMetrics computes a parametric risk report for a weighted portfolio.
// Value-at-risk assumes normally distributed annual returns: the reported
// figure is the loss at the (1-confidence) quantile as a fraction of
// portfolio value. A portfolio whose quantile return is still positive
// carries a negative VaR; the sign is preserved for callers that compare
// portfolios.
func RiskMetrics(weights []float64, stats *ReturnStatistics, riskFreeRate, confidence float64) (*RiskReport, error) {
	if confidence <= 0 || confidence >= 1 {
		return nil, fmt.Errorf("%w: confidence %.4f outside (0, 1)", ErrNumeric, confidence)
	}

	metrics, err := Evaluate(weights, stats, riskFreeRate)
	if err != nil {
		return nil, err
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	z := normal.Quantile(1 - confidence)
	valueAtRisk := -(metrics.ExpectedReturn + z*metrics.Volatility)

	herfindahl := 0.0
	maxPosition := 0.0
	for _, w := range weights {
		herfindahl += w * w
		if w > maxPosition {
			maxPosition = w
		}
	}

	// Herfindahl is 1/n for equal weights and 1 for a single position. The
	// score rescales 1-H so an equal-weight portfolio reads 100 and a
	// single-asset portfolio reads 0.
	score := 0.0
	if n := len(weights); n > 1 {
		score = (1 - herfindahl) / (1 - 1/float64(n)) * 100
		score = math.Max(0, math.Min(100, score))
	}

	return &RiskReport{
		Confidence:           confidence,
		ValueAtRisk:          valueAtRisk,
		DiversificationScore: score,
		MaxPosition:          maxPosition,
		Herfindahl:           herfindahl,
		ExpectedReturn:       metrics.ExpectedReturn,
		Volatility:           metrics.Volatility,
	}, nil
}

// CorrelationMatrix derives the pairwise correlation matrix from the
// annualized covariance. Assets with zero variance correlate 0 with
// everything and 1 with themselves.
func CorrelationMatrix(stats *ReturnStatistics) [][]float64 {
	n := len(stats.Assets)
	corr := make([][]float64, n)
	for i := range corr {
		corr[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				corr[i][j] = 1.0
				continue
			}
			denom := math.Sqrt(stats.Covariance[i][i]) * math.Sqrt(stats.Covariance[j][j])
			if denom > 0 {
				corr[i][j] = stats.Covariance[i][j] / denom
			}
		}
	}
	return corr
}
