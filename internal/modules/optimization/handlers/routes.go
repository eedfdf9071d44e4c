package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all optimization routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tickers", h.HandleTickers)
	r.Post("/optimize", h.HandleOptimize)
	r.Post("/efficient-frontier", h.HandleEfficientFrontier)
	r.Post("/portfolio-stats", h.HandlePortfolioStats)
	r.Post("/correlation", h.HandleCorrelation)
	r.Get("/history", h.HandleHistory)
}
