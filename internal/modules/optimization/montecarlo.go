package optimization

import (
	"math/rand"
)

// DefaultSimulations is the sample count used when a request does not
// specify one.
const DefaultSimulations = 10000

// MonteCarloResult holds the best sampled portfolio and the full population
// of sampled metrics for downstream rendering.
type MonteCarloResult struct {
	Weights    []float64
	Population Population
}

// MonteCarlo samples numSamples random long-only portfolios and returns the
// one with the highest Sharpe ratio. Weights are drawn by normalizing
// independent uniforms, which concentrates samples toward the interior of the
// simplex rather than sampling it uniformly. That bias is intentional and the
// results depend on it.
//
// The RNG is supplied by the caller so runs are reproducible under a fixed
// seed.
func MonteCarlo(stats *ReturnStatistics, riskFreeRate float64, numSamples int, rng *rand.Rand) (*MonteCarloResult, error) {
	n := len(stats.Assets)
	if n == 0 {
		return nil, &OptimizationError{Diagnostic: "no assets supplied"}
	}
	if numSamples <= 0 {
		numSamples = DefaultSimulations
	}

	result := &MonteCarloResult{
		Population: Population{
			Returns:      make([]float64, 0, numSamples),
			Volatilities: make([]float64, 0, numSamples),
			Sharpes:      make([]float64, 0, numSamples),
		},
	}

	bestSharpe := 0.0
	weights := make([]float64, n)

	for s := 0; s < numSamples; s++ {
		sum := 0.0
		for i := range weights {
			weights[i] = rng.Float64()
			sum += weights[i]
		}
		for i := range weights {
			weights[i] /= sum
		}

		metrics, err := Evaluate(weights, stats, riskFreeRate)
		if err != nil {
			return nil, err
		}

		result.Population.Returns = append(result.Population.Returns, metrics.ExpectedReturn)
		result.Population.Volatilities = append(result.Population.Volatilities, metrics.Volatility)
		result.Population.Sharpes = append(result.Population.Sharpes, metrics.SharpeRatio)

		if result.Weights == nil || metrics.SharpeRatio > bestSharpe {
			bestSharpe = metrics.SharpeRatio
			result.Weights = append([]float64(nil), weights...)
		}
	}

	return result, nil
}
