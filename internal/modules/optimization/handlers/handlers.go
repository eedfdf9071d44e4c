// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/charts"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/history"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/marketdata"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/optimization"
)

// Defaults holds the request parameters applied when a field is omitted.
type Defaults struct {
	RiskFreeRate   float64
	Period         string
	NumSimulations int
	FrontierPoints int
}

// Handler handles optimization HTTP requests.
type Handler struct {
	optimizer   *optimization.Service
	marketData  *marketdata.Service
	historyRepo *history.Repository
	defaults    Defaults
	log         zerolog.Logger
}

// NewHandler creates a new optimization handler.
func NewHandler(
	optimizer *optimization.Service,
	marketData *marketdata.Service,
	historyRepo *history.Repository,
	defaults Defaults,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		optimizer:   optimizer,
		marketData:  marketData,
		historyRepo: historyRepo,
		defaults:    defaults,
		log:         log.With().Str("handler", "optimization").Logger(),
	}
}

// OptimizeRequest represents a request to run a portfolio optimization.
type OptimizeRequest struct {
	Tickers        []string `json:"tickers"`
	Strategy       string   `json:"strategy"`
	RiskFreeRate   *float64 `json:"risk_free_rate,omitempty"`
	TargetReturn   *float64 `json:"target_return,omitempty"`
	NumSimulations int      `json:"num_simulations,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	IncludeChart   bool     `json:"include_chart,omitempty"`
	Period         string   `json:"period,omitempty"`
}

// PortfolioStatsRequest represents a request to evaluate a given allocation.
type PortfolioStatsRequest struct {
	Tickers      []string  `json:"tickers"`
	Weights      []float64 `json:"weights"`
	RiskFreeRate *float64  `json:"risk_free_rate,omitempty"`
	Confidence   *float64  `json:"confidence,omitempty"`
	Period       string    `json:"period,omitempty"`
}

// FrontierRequest represents a request to trace the efficient frontier.
type FrontierRequest struct {
	Tickers      []string `json:"tickers"`
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`
	NumPoints    int      `json:"num_points,omitempty"`
	IncludeChart bool     `json:"include_chart,omitempty"`
	Period       string   `json:"period,omitempty"`
}

// CorrelationRequest represents a request for a correlation matrix.
type CorrelationRequest struct {
	Tickers      []string `json:"tickers"`
	IncludeChart bool     `json:"include_chart,omitempty"`
	Period       string   `json:"period,omitempty"`
}

// HandleTickers handles GET /api/tickers.
func (h *Handler) HandleTickers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tickers": marketdata.DefaultTickers,
	})
}

// HandleOptimize handles POST /api/optimize.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Tickers) == 0 {
		http.Error(w, "At least one ticker is required", http.StatusBadRequest)
		return
	}

	strategy, err := optimization.ParseStrategy(req.Strategy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := h.buildStatistics(r, req.Tickers, req.Period)
	if err != nil {
		h.writeError(w, err)
		return
	}

	riskFreeRate := h.defaults.RiskFreeRate
	if req.RiskFreeRate != nil {
		riskFreeRate = *req.RiskFreeRate
	}
	numSimulations := req.NumSimulations
	if numSimulations <= 0 {
		numSimulations = h.defaults.NumSimulations
	}

	result, err := h.optimizer.Optimize(r.Context(), stats, strategy, optimization.Options{
		RiskFreeRate:   riskFreeRate,
		TargetReturn:   req.TargetReturn,
		NumSimulations: numSimulations,
		Seed:           req.Seed,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	runID, err := h.historyRepo.Save(history.Record{
		Tickers:        stats.Assets,
		Strategy:       string(strategy),
		OptimalWeights: result.Weights,
		ExpectedReturn: result.Metrics.ExpectedReturn,
		Volatility:     result.Metrics.Volatility,
		SharpeRatio:    result.Metrics.SharpeRatio,
		RiskFreeRate:   riskFreeRate,
	})
	if err != nil {
		// A failed history write does not invalidate the optimization itself.
		h.log.Error().Err(err).Msg("Failed to persist optimization run")
	}

	report, err := optimization.RiskMetrics(result.Weights, stats, riskFreeRate, optimization.DefaultVaRConfidence)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"run_id":          runID,
			"strategy":        string(strategy),
			"tickers":         stats.Assets,
			"optimal_weights": weightsByTicker(stats.Assets, result.Weights),
			"weights":         result.Weights,
			"metrics":         result.Metrics,
			"risk":            report,
			"converged":       result.Converged,
			"observations":    stats.Observations,
		},
		"metadata": map[string]interface{}{
			"risk_free_rate": riskFreeRate,
			"elapsed_ms":     result.Elapsed.Milliseconds(),
			"timestamp":      time.Now().Format(time.RFC3339),
		},
	}
	if result.Population != nil {
		response["data"].(map[string]interface{})["population"] = result.Population
	}
	if req.IncludeChart && len(stats.Assets) > 1 {
		curve, err := h.optimizer.Frontier(r.Context(), stats, riskFreeRate, h.defaults.FrontierPoints)
		if err != nil || len(curve) == 0 {
			h.log.Error().Err(err).Msg("Failed to trace frontier for chart")
		} else if encoded, err := charts.RenderFrontierBase64(curve, riskFreeRate); err != nil {
			h.log.Error().Err(err).Msg("Failed to render frontier chart")
		} else {
			response["data"].(map[string]interface{})["chart_png_base64"] = encoded
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleEfficientFrontier handles POST /api/efficient-frontier.
func (h *Handler) HandleEfficientFrontier(w http.ResponseWriter, r *http.Request) {
	var req FrontierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Tickers) < 2 {
		http.Error(w, "At least two tickers are required", http.StatusBadRequest)
		return
	}

	stats, err := h.buildStatistics(r, req.Tickers, req.Period)
	if err != nil {
		h.writeError(w, err)
		return
	}

	riskFreeRate := h.defaults.RiskFreeRate
	if req.RiskFreeRate != nil {
		riskFreeRate = *req.RiskFreeRate
	}
	numPoints := req.NumPoints
	if numPoints <= 0 {
		numPoints = h.defaults.FrontierPoints
	}

	curve, err := h.optimizer.Frontier(r.Context(), stats, riskFreeRate, numPoints)
	if err != nil {
		h.writeError(w, err)
		return
	}

	data := map[string]interface{}{
		"tickers":          stats.Assets,
		"points":           curve,
		"points_requested": numPoints,
	}
	if req.IncludeChart && len(curve) > 0 {
		encoded, err := charts.RenderFrontierBase64(curve, riskFreeRate)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to render frontier chart")
		} else {
			data["chart_png_base64"] = encoded
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"risk_free_rate": riskFreeRate,
			"timestamp":      time.Now().Format(time.RFC3339),
		},
	})
}

// HandlePortfolioStats handles POST /api/portfolio-stats.
func (h *Handler) HandlePortfolioStats(w http.ResponseWriter, r *http.Request) {
	var req PortfolioStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Tickers) == 0 {
		http.Error(w, "At least one ticker is required", http.StatusBadRequest)
		return
	}
	if len(req.Weights) != len(req.Tickers) {
		http.Error(w, "Weights and tickers length mismatch", http.StatusBadRequest)
		return
	}
	sum := 0.0
	for _, wgt := range req.Weights {
		if wgt < 0 {
			http.Error(w, "Weights must be non-negative", http.StatusBadRequest)
			return
		}
		sum += wgt
	}
	if math.Abs(sum-1.0) > 0.01 {
		http.Error(w, "Weights must sum to 1", http.StatusBadRequest)
		return
	}

	stats, err := h.buildStatistics(r, req.Tickers, req.Period)
	if err != nil {
		h.writeError(w, err)
		return
	}

	riskFreeRate := h.defaults.RiskFreeRate
	if req.RiskFreeRate != nil {
		riskFreeRate = *req.RiskFreeRate
	}
	confidence := optimization.DefaultVaRConfidence
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	report, err := optimization.RiskMetrics(req.Weights, stats, riskFreeRate, confidence)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"tickers": stats.Assets,
			"weights": weightsByTicker(stats.Assets, req.Weights),
			"risk":    report,
		},
		"metadata": map[string]interface{}{
			"risk_free_rate": riskFreeRate,
			"timestamp":      time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCorrelation handles POST /api/correlation.
func (h *Handler) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	var req CorrelationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Tickers) < 2 {
		http.Error(w, "At least two tickers are required", http.StatusBadRequest)
		return
	}

	stats, err := h.buildStatistics(r, req.Tickers, req.Period)
	if err != nil {
		h.writeError(w, err)
		return
	}

	corr := optimization.CorrelationMatrix(stats)
	data := map[string]interface{}{
		"tickers":     stats.Assets,
		"correlation": corr,
	}
	if req.IncludeChart {
		encoded, err := charts.RenderCorrelationBase64(stats.Assets, corr)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to render correlation chart")
		} else {
			data["chart_png_base64"] = encoded
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"observations": stats.Observations,
			"timestamp":    time.Now().Format(time.RFC3339),
		},
	})
}

// HandleHistory handles GET /api/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.historyRepo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list optimization history")
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"history": records,
			"count":   len(records),
		},
	})
}

// buildStatistics fetches price histories and turns them into return
// statistics, applying the default period when the request omits one.
// Tickers are canonicalized first so responses, cache keys, and history
// records all carry the same form regardless of request casing.
func (h *Handler) buildStatistics(r *http.Request, tickers []string, period string) (*optimization.ReturnStatistics, error) {
	tickers = marketdata.NormalizeSymbols(tickers)
	if period == "" {
		period = h.defaults.Period
	}
	histories, err := h.marketData.GetHistories(r.Context(), tickers, period)
	if err != nil {
		return nil, err
	}
	return optimization.BuildStatistics(tickers, histories)
}

// writeError maps domain errors to HTTP status codes. Caller mistakes
// (insufficient data, unreachable targets) are 422s; everything else is a 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var optErr *optimization.OptimizationError

	status := http.StatusInternalServerError
	kind := "internal_error"
	switch {
	case errors.Is(err, optimization.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
		kind = "insufficient_data"
	case errors.Is(err, optimization.ErrInfeasibleTarget):
		status = http.StatusUnprocessableEntity
		kind = "infeasible_target"
	case errors.Is(err, optimization.ErrNumeric):
		kind = "numeric_error"
	case errors.As(err, &optErr):
		kind = "optimization_error"
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Optimization request failed")
	} else {
		h.log.Warn().Err(err).Msg("Optimization request rejected")
	}

	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    kind,
			"message": err.Error(),
		},
	})
}

func weightsByTicker(tickers []string, weights []float64) map[string]float64 {
	out := make(map[string]float64, len(tickers))
	for i, t := range tickers {
		out[t] = weights[i]
	}
	return out
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
