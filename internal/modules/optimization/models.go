package optimization

import "time"

// Constants for the statistics and optimization model configuration
const (
	// TradingDaysPerYear is the annualization factor for daily return statistics.
	TradingDaysPerYear = 252

	// WeightSumTolerance is the allowed deviation of a weight vector's sum from 1.
	WeightSumTolerance = 1e-6

	// volatilityEpsilon guards the Sharpe ratio against division by a
	// near-zero volatility (degenerate zero-variance portfolios). Below this
	// the Sharpe ratio is defined as 0 - a deliberate clamp, not an error.
	volatilityEpsilon = 1e-9

	// radicandTolerance is how far below zero the portfolio variance may fall
	// before it is treated as a malformed covariance matrix rather than
	// floating-point noise.
	radicandTolerance = 1e-9
)

// PricePoint is a single (date, adjusted close) observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is the ordered price history of one asset, dates ascending.
type PriceSeries []PricePoint

// ReturnStatistics holds annualized return statistics derived from aligned
// price histories. It is immutable once built; the asset order fixes the
// positional meaning of every downstream weight vector.
type ReturnStatistics struct {
	Assets       []string
	MeanReturns  map[string]float64 // annualized mean log-return per asset
	Covariance   [][]float64        // annualized sample covariance, indexed by Assets order
	Observations int                // aligned daily return observations used
}

// MeanVector returns the mean returns ordered by the statistics' asset order.
func (s *ReturnStatistics) MeanVector() []float64 {
	mu := make([]float64, len(s.Assets))
	for i, asset := range s.Assets {
		mu[i] = s.MeanReturns[asset]
	}
	return mu
}

// PortfolioMetrics are the evaluation results for one weight vector.
type PortfolioMetrics struct {
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

// FrontierPoint is one solved point on the efficient frontier.
type FrontierPoint struct {
	TargetReturn float64   `json:"target_return"`
	Return       float64   `json:"return"`
	Volatility   float64   `json:"volatility"`
	Sharpe       float64   `json:"sharpe"`
	Weights      []float64 `json:"weights"`
}

// FrontierCurve is an ordered set of frontier points, ascending target return.
// Infeasible targets are omitted, so the curve may be shorter than the number
// of requested points.
type FrontierCurve []FrontierPoint

// Population holds the (return, volatility, sharpe) triples of every Monte
// Carlo sample, in draw order, for scatter plotting.
type Population struct {
	Returns      []float64 `json:"returns"`
	Volatilities []float64 `json:"volatilities"`
	Sharpes      []float64 `json:"sharpes"`
}

// RiskReport holds auxiliary risk metrics for one weight vector.
type RiskReport struct {
	Confidence           float64 `json:"confidence"`
	ValueAtRisk          float64 `json:"value_at_risk"`
	DiversificationScore float64 `json:"diversification_score"`
	MaxPosition          float64 `json:"max_position"`
	Herfindahl           float64 `json:"herfindahl"`
	ExpectedReturn       float64 `json:"expected_return"`
	Volatility           float64 `json:"volatility"`
}
