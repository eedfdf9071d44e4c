package optimization

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultFrontierPoints is the number of target returns swept when a request
// does not specify one.
const DefaultFrontierPoints = 100

// EfficientFrontier traces the efficient frontier by solving a
// minimum-volatility problem at each of numPoints target returns spaced
// evenly between the global minimum-volatility portfolio's return and the
// highest individual asset mean. Targets the solver cannot reach are dropped,
// so the curve may have gaps. Points are solved concurrently; the returned
// curve is ordered by target return.
func EfficientFrontier(ctx context.Context, stats *ReturnStatistics, riskFreeRate float64, numPoints int) (FrontierCurve, error) {
	if len(stats.Assets) == 0 {
		return nil, &OptimizationError{Diagnostic: "no assets supplied"}
	}
	if numPoints <= 0 {
		numPoints = DefaultFrontierPoints
	}

	// The sweep's lower bound is the return of the unconstrained global
	// minimum-volatility portfolio. Anything below it is dominated.
	minVol, err := MinVolatility(stats, nil)
	if err != nil {
		return nil, err
	}
	minMetrics, err := Evaluate(minVol.Weights, stats, riskFreeRate)
	if err != nil {
		return nil, err
	}

	mu := stats.MeanVector()
	maxReturn := mu[0]
	for _, m := range mu[1:] {
		if m > maxReturn {
			maxReturn = m
		}
	}

	lo := minMetrics.ExpectedReturn
	if maxReturn <= lo || numPoints == 1 {
		return FrontierCurve{{
			TargetReturn: lo,
			Return:       minMetrics.ExpectedReturn,
			Volatility:   minMetrics.Volatility,
			Sharpe:       minMetrics.SharpeRatio,
			Weights:      minVol.Weights,
		}}, nil
	}

	points := make([]*FrontierPoint, numPoints)
	step := (maxReturn - lo) / float64(numPoints-1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := 0; i < numPoints; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			target := lo + step*float64(i)

			res, err := MinVolatility(stats, &target)
			if err != nil {
				if errors.Is(err, ErrInfeasibleTarget) {
					return nil // gap in the curve
				}
				return err
			}

			metrics, err := Evaluate(res.Weights, stats, riskFreeRate)
			if err != nil {
				return err
			}
			points[i] = &FrontierPoint{
				TargetReturn: target,
				Return:       metrics.ExpectedReturn,
				Volatility:   metrics.Volatility,
				Sharpe:       metrics.SharpeRatio,
				Weights:      res.Weights,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	curve := make(FrontierCurve, 0, numPoints)
	for _, p := range points {
		if p != nil {
			curve = append(curve, *p)
		}
	}
	sort.Slice(curve, func(i, j int) bool { return curve[i].TargetReturn < curve[j].TargetReturn })
	return curve, nil
}
