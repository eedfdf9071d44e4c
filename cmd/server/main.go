// Package main is the entry point for the portfolio optimization service.
// The service fetches market data, builds return statistics, and exposes
// mean-variance optimization, Monte Carlo sampling, and efficient-frontier
// tracing over a REST API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/clients/yahoo"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/config"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/database"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/history"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/marketdata"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/optimization"
	optimizationhandlers "github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/optimization/handlers"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/scheduler"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/server"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting portfolio optimizer")

	// history.db holds durable optimization runs; cache.db holds ephemeral
	// price series and can be deleted at any time.
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	priceCache, err := marketdata.NewCache(cacheDB.Conn(), cfg.PriceCacheTTL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize price cache")
	}
	historyRepo, err := history.NewRepository(historyDB.Conn(), cfg.HistoryRetention, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history repository")
	}

	marketData := marketdata.NewService(yahoo.NewClient(log), priceCache, log)
	optimizer := optimization.NewService(log)

	handlers := optimizationhandlers.NewHandler(
		optimizer,
		marketData,
		historyRepo,
		optimizationhandlers.Defaults{
			RiskFreeRate:   cfg.RiskFreeRate,
			Period:         cfg.PricePeriod,
			NumSimulations: cfg.NumSimulations,
			FrontierPoints: cfg.FrontierPoints,
		},
		log,
	)

	// Periodic maintenance: expire stale price series and trim old runs.
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.CachePruneSpec, scheduler.JobFunc{
		JobName: "prune-price-cache",
		Fn: func() error {
			_, err := priceCache.Prune()
			return err
		},
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache pruning")
	}
	if err := sched.AddJob("@hourly", scheduler.JobFunc{
		JobName: "trim-history",
		Fn: func() error {
			_, err := historyRepo.Trim()
			return err
		},
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule history trimming")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		HistoryDB: historyDB,
		CacheDB:   cacheDB,
		Handlers:  handlers,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	if err := historyDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Failed to checkpoint history database")
	}

	log.Info().Msg("Shutdown complete")
}
