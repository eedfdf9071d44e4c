package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/config"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/database"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/history"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/marketdata"
	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/optimization"
	optimizationhandlers "github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/optimization/handlers"
)

type noopProvider struct{}

func (noopProvider) GetDailyCloses(context.Context, string, string) (optimization.PriceSeries, error) {
	return nil, optimization.ErrInsufficientData
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dataDir := t.TempDir()

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { historyDB.Close() })

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { cacheDB.Close() })

	cache, err := marketdata.NewCache(cacheDB.Conn(), 30*time.Minute, zerolog.Nop())
	require.NoError(t, err)
	repo, err := history.NewRepository(historyDB.Conn(), 50, zerolog.Nop())
	require.NoError(t, err)

	handler := optimizationhandlers.NewHandler(
		optimization.NewService(zerolog.Nop()),
		marketdata.NewService(noopProvider{}, cache, zerolog.Nop()),
		repo,
		optimizationhandlers.Defaults{RiskFreeRate: 0.02, Period: "5y", NumSimulations: 100, FrontierPoints: 10},
		zerolog.Nop(),
	)

	return New(Config{
		Log:       zerolog.Nop(),
		Config:    &config.Config{DataDir: dataDir, Port: 0},
		HistoryDB: historyDB,
		CacheDB:   cacheDB,
		Handlers:  handler,
		Port:      0,
		DevMode:   true,
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status    string            `json:"status"`
		Databases map[string]string `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Databases["history"])
	assert.Equal(t, "ok", resp.Databases["cache"])
}

func TestSystemStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Contains(t, resp, "goroutines")
	assert.Contains(t, resp, "memory_percent")
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
