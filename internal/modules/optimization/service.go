package optimization

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Strategy selects the allocation algorithm for an optimization run.
type Strategy string

const (
	StrategyMaxSharpe     Strategy = "max_sharpe"
	StrategyMinVolatility Strategy = "min_volatility"
	StrategyMonteCarlo    Strategy = "monte_carlo"
)

// ParseStrategy validates a strategy name from a request.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMaxSharpe, StrategyMinVolatility, StrategyMonteCarlo:
		return Strategy(s), nil
	case "":
		return StrategyMaxSharpe, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// Options carry per-run parameters. Zero values select the defaults.
type Options struct {
	RiskFreeRate   float64
	TargetReturn   *float64 // min_volatility only
	NumSimulations int      // monte_carlo only
	Seed           *int64   // monte_carlo only, for reproducible runs
}

// Result is the outcome of a single optimization run.
type Result struct {
	Strategy   Strategy
	Weights    []float64
	Metrics    PortfolioMetrics
	Converged  bool
	Population *Population // monte_carlo only
	Elapsed    time.Duration
}

// Service runs portfolio optimizations. It holds no market state; statistics
// are built by the caller and passed in per run.
type Service struct {
	log zerolog.Logger
}

func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "optimization").Logger()}
}

// Optimize dispatches to the requested strategy and evaluates the winning
// weights. Single-asset inputs short-circuit to a full allocation without
// touching the solver.
func (s *Service) Optimize(ctx context.Context, stats *ReturnStatistics, strategy Strategy, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	result := &Result{Strategy: strategy, Converged: true}

	switch strategy {
	case StrategyMaxSharpe:
		solved, err := MaxSharpe(stats, opts.RiskFreeRate)
		if err != nil {
			return nil, err
		}
		result.Weights = solved.Weights
		result.Converged = solved.Converged

	case StrategyMinVolatility:
		solved, err := MinVolatility(stats, opts.TargetReturn)
		if err != nil {
			return nil, err
		}
		result.Weights = solved.Weights
		result.Converged = solved.Converged

	case StrategyMonteCarlo:
		seed := time.Now().UnixNano()
		if opts.Seed != nil {
			seed = *opts.Seed
		}
		mc, err := MonteCarlo(stats, opts.RiskFreeRate, opts.NumSimulations, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		result.Weights = mc.Weights
		result.Population = &mc.Population

	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	metrics, err := Evaluate(result.Weights, stats, opts.RiskFreeRate)
	if err != nil {
		return nil, err
	}
	result.Metrics = metrics
	result.Elapsed = time.Since(start)

	s.log.Debug().
		Str("strategy", string(strategy)).
		Int("assets", len(stats.Assets)).
		Bool("converged", result.Converged).
		Float64("sharpe", metrics.SharpeRatio).
		Dur("elapsed", result.Elapsed).
		Msg("Optimization complete")

	return result, nil
}

// Frontier traces the efficient frontier for the given statistics.
func (s *Service) Frontier(ctx context.Context, stats *ReturnStatistics, riskFreeRate float64, numPoints int) (FrontierCurve, error) {
	start := time.Now()
	curve, err := EfficientFrontier(ctx, stats, riskFreeRate, numPoints)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Int("requested", numPoints).
		Int("solved", len(curve)).
		Dur("elapsed", time.Since(start)).
		Msg("Frontier traced")
	return curve, nil
}
