package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Record is one persisted optimization run.
type Record struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Tickers        []string  `json:"tickers"`
	Strategy       string    `json:"strategy"`
	OptimalWeights []float64 `json:"optimal_weights"`
	ExpectedReturn float64   `json:"expected_return"`
	Volatility     float64   `json:"volatility"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	RiskFreeRate   float64   `json:"risk_free_rate"`
}

// Repository persists optimization runs to SQLite. Ticker lists and weight
// vectors are stored as JSON columns; their order is significant and
// preserved as written.
type Repository struct {
	db        *sql.DB
	retention int
	log       zerolog.Logger
}

// NewRepository creates the repository and its schema. retention caps how
// many recent records List returns and how many Trim keeps.
func NewRepository(db *sql.DB, retention int, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		db:        db,
		retention: retention,
		log:       log.With().Str("component", "history").Logger(),
	}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return r, nil
}

func (r *Repository) migrate() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS optimizations (
			id              TEXT PRIMARY KEY,
			timestamp       TEXT NOT NULL,
			tickers         TEXT NOT NULL,
			strategy        TEXT NOT NULL,
			optimal_weights TEXT NOT NULL,
			expected_return REAL NOT NULL,
			volatility      REAL NOT NULL,
			sharpe_ratio    REAL NOT NULL,
			risk_free_rate  REAL NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_optimizations_timestamp ON optimizations(timestamp DESC)`)
	return err
}

// Save persists a run and returns its generated ID.
func (r *Repository) Save(rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	tickers, err := json.Marshal(rec.Tickers)
	if err != nil {
		return "", fmt.Errorf("failed to encode tickers: %w", err)
	}
	weights, err := json.Marshal(rec.OptimalWeights)
	if err != nil {
		return "", fmt.Errorf("failed to encode weights: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO optimizations
			(id, timestamp, tickers, strategy, optimal_weights, expected_return, volatility, sharpe_ratio, risk_free_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.Format(time.RFC3339),
		string(tickers),
		rec.Strategy,
		string(weights),
		rec.ExpectedReturn,
		rec.Volatility,
		rec.SharpeRatio,
		rec.RiskFreeRate,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save optimization record: %w", err)
	}
	return rec.ID, nil
}

// List returns the most recent runs, newest first, capped at the retention
// limit.
func (r *Repository) List() ([]Record, error) {
	rows, err := r.db.Query(`
		SELECT id, timestamp, tickers, strategy, optimal_weights, expected_return, volatility, sharpe_ratio, risk_free_rate
		FROM optimizations
		ORDER BY timestamp DESC
		LIMIT ?`, r.retention)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts, tickers, weights string
		if err := rows.Scan(&rec.ID, &ts, &tickers, &rec.Strategy, &weights,
			&rec.ExpectedReturn, &rec.Volatility, &rec.SharpeRatio, &rec.RiskFreeRate); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("malformed timestamp in history row %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(tickers), &rec.Tickers); err != nil {
			return nil, fmt.Errorf("malformed tickers in history row %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(weights), &rec.OptimalWeights); err != nil {
			return nil, fmt.Errorf("malformed weights in history row %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Trim deletes records beyond the retention limit, oldest first.
func (r *Repository) Trim() (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM optimizations WHERE id NOT IN (
			SELECT id FROM optimizations ORDER BY timestamp DESC LIMIT ?
		)`, r.retention)
	if err != nil {
		return 0, fmt.Errorf("failed to trim history: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		r.log.Debug().Int64("removed", removed).Msg("Trimmed optimization history")
	}
	return removed, nil
}
