package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// penaltyWeight scales the quadratic penalties that enforce the sum-to-one
// and target-return equality constraints.
const penaltyWeight = 1000.0

// targetReturnTolerance is the accepted residual between the achieved and the
// requested return for a target-constrained solve. Larger residuals mean the
// solver could not reach the target, which is treated as infeasibility. The
// penalty method leaves a residual proportional to asset variance over the
// penalty weight, so the tolerance carries headroom for volatile universes.
const targetReturnTolerance = 2.5e-3

// SolveResult is the outcome of a constrained solve. When the solver fails to
// converge, Weights holds the best iterate visited and Converged is false.
type SolveResult struct {
	Weights   []float64
	Converged bool
}

// MaxSharpe solves the constrained program
//
//	minimize   -(mu'w - r_f) / sqrt(w' Sigma w)
//	subject to sum(w) = 1, 0 <= w_i <= 1
//
// starting from the equal-weight vector. Long-only, no leverage. On
// non-convergence the best iterate visited (highest Sharpe ratio observed) is
// returned with Converged=false instead of failing the request.
func MaxSharpe(stats *ReturnStatistics, riskFreeRate float64) (*SolveResult, error) {
	n := len(stats.Assets)
	if n == 0 {
		return nil, &OptimizationError{Diagnostic: "no assets supplied"}
	}
	if n == 1 {
		// Trivial unique solution, no solver needed.
		return &SolveResult{Weights: []float64{1.0}, Converged: true}, nil
	}

	mu := stats.MeanVector()
	sigma := covarianceMatrix(stats)

	tracker := newBestTracker(func(x []float64) float64 {
		ret, vol := portfolioMoments(mu, sigma, x)
		if vol <= volatilityEpsilon {
			return math.Inf(-1)
		}
		return (ret - riskFreeRate) / vol
	})

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToUnitBounds(x)
			tracker.observe(xProj)

			ret, vol := portfolioMoments(mu, sigma, xProj)
			stdDev := math.Max(vol, 1e-10)

			obj := -(ret - riskFreeRate) / stdDev
			obj += penaltyWeight * sumPenalty(xProj)
			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := projectToUnitBounds(x)

			ret, vol := portfolioMoments(mu, sigma, xProj)
			stdDev := math.Max(vol, 1e-10)
			excess := ret - riskFreeRate

			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * sigma.At(i, j) * xProj[j]
				}
				grad[i] = -mu[i]/stdDev + excess*dVariance/(2*stdDev*stdDev*stdDev)
			}
			addSumPenaltyGradient(grad, xProj)
		},
	}

	weights, converged, err := runSolve(problem, n)
	if err != nil {
		return nil, err
	}
	if !converged {
		// Tie-break for convergence-less runs: highest Sharpe ratio observed.
		if best := tracker.best(); best != nil {
			weights = best
		}
	}

	return &SolveResult{Weights: normalizeWeights(weights), Converged: converged}, nil
}

// MinVolatility solves the constrained program
//
//	minimize   w' Sigma w
//	subject to sum(w) = 1, 0 <= w_i <= 1
//
// with an optional equality constraint mu'w = targetReturn (used by the
// efficient-frontier sweep). Targets outside the long-only achievable range
// [min mu_i, max mu_i] fail with ErrInfeasibleTarget, as do solves whose
// achieved return misses the target beyond tolerance.
func MinVolatility(stats *ReturnStatistics, targetReturn *float64) (*SolveResult, error) {
	n := len(stats.Assets)
	if n == 0 {
		return nil, &OptimizationError{Diagnostic: "no assets supplied"}
	}
	if n == 1 {
		return &SolveResult{Weights: []float64{1.0}, Converged: true}, nil
	}

	mu := stats.MeanVector()
	sigma := covarianceMatrix(stats)

	if targetReturn != nil {
		lo, hi := mu[0], mu[0]
		for _, m := range mu[1:] {
			lo = math.Min(lo, m)
			hi = math.Max(hi, m)
		}
		if *targetReturn < lo-targetReturnTolerance || *targetReturn > hi+targetReturnTolerance {
			return nil, fmt.Errorf("%w: target %.4f outside achievable range [%.4f, %.4f]", ErrInfeasibleTarget, *targetReturn, lo, hi)
		}
	}

	tracker := newBestTracker(func(x []float64) float64 {
		_, vol := portfolioMoments(mu, sigma, x)
		return -vol // tracker maximizes; lowest volatility wins
	})

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToUnitBounds(x)
			tracker.observe(xProj)

			ret, vol := portfolioMoments(mu, sigma, xProj)

			obj := vol * vol
			obj += penaltyWeight * sumPenalty(xProj)
			if targetReturn != nil {
				d := ret - *targetReturn
				obj += penaltyWeight * d * d
			}
			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := projectToUnitBounds(x)

			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * sigma.At(i, j) * xProj[j]
				}
			}
			addSumPenaltyGradient(grad, xProj)
			if targetReturn != nil {
				ret, _ := portfolioMoments(mu, sigma, xProj)
				for i := 0; i < n; i++ {
					grad[i] += 2 * penaltyWeight * (ret - *targetReturn) * mu[i]
				}
			}
		},
	}

	weights, converged, err := runSolve(problem, n)
	if err != nil {
		return nil, err
	}
	if !converged {
		if best := tracker.best(); best != nil {
			weights = best
		}
	}

	weights = normalizeWeights(weights)

	if targetReturn != nil {
		achieved := 0.0
		for i := range weights {
			achieved += mu[i] * weights[i]
		}
		if math.Abs(achieved-*targetReturn) > targetReturnTolerance {
			return nil, fmt.Errorf("%w: solver reached %.4f for target %.4f", ErrInfeasibleTarget, achieved, *targetReturn)
		}
	}

	return &SolveResult{Weights: weights, Converged: converged}, nil
}

// runSolve runs the problem from the equal-weight start with BFGS, retrying
// with Nelder-Mead when the gradient-based method errors out. The returned
// bool reports whether the solver reached a convergence status.
func runSolve(problem optimize.Problem, n int) ([]float64, bool, error) {
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, false, &OptimizationError{Diagnostic: "solver failed", Err: err}
		}
	}

	converged := result.Status == optimize.Success ||
		result.Status == optimize.GradientThreshold ||
		result.Status == optimize.FunctionConvergence

	return projectToUnitBounds(result.X), converged, nil
}

// covarianceMatrix converts the statistics' covariance slice to a gonum matrix.
func covarianceMatrix(stats *ReturnStatistics) *mat.Dense {
	n := len(stats.Assets)
	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, stats.Covariance[i][j])
		}
	}
	return sigma
}

// portfolioMoments computes mu'x and sqrt(x' Sigma x) for an iterate.
func portfolioMoments(mu []float64, sigma *mat.Dense, x []float64) (ret, vol float64) {
	n := len(mu)
	var variance float64
	for i := 0; i < n; i++ {
		ret += mu[i] * x[i]
		for j := 0; j < n; j++ {
			variance += x[i] * x[j] * sigma.At(i, j)
		}
	}
	return ret, math.Sqrt(math.Max(variance, 0))
}

// projectToUnitBounds clamps every coordinate to [0, 1].
func projectToUnitBounds(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0.0, math.Min(1.0, x[i]))
	}
	return proj
}

func sumPenalty(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return (sum - 1.0) * (sum - 1.0)
}

func addSumPenaltyGradient(grad, x []float64) {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	for i := range grad {
		grad[i] += 2 * penaltyWeight * (sum - 1.0)
	}
}

// normalizeWeights rescales a projected iterate to sum exactly to 1, clamping
// tiny negatives introduced by floating-point arithmetic.
func normalizeWeights(x []float64) []float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(0.0, v/math.Max(sum, 1e-10))
	}
	// Renormalize after clamping.
	sum = 0.0
	for _, v := range out {
		sum += v
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

// bestTracker records the best normalized iterate seen during a solve, scored
// by a caller-supplied objective (higher is better). The solver runs
// iterations serially, so no locking is needed.
type bestTracker struct {
	score     func(x []float64) float64
	bestScore float64
	bestX     []float64
}

func newBestTracker(score func(x []float64) float64) *bestTracker {
	return &bestTracker{score: score, bestScore: math.Inf(-1)}
}

func (t *bestTracker) observe(xProj []float64) {
	x := normalizeWeights(xProj)
	s := t.score(x)
	if s > t.bestScore {
		t.bestScore = s
		t.bestX = x
	}
}

func (t *bestTracker) best() []float64 {
	return t.bestX
}
