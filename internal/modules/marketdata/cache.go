package marketdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/optimization"
)

// ErrCacheMiss is returned when no fresh entry exists for a (symbol, period).
var ErrCacheMiss = errors.New("price cache miss")

// cachedSeries is the msgpack payload stored per cache row. Timestamps are
// stored as unix seconds to keep the payload compact.
type cachedSeries struct {
	Timestamps []int64   `msgpack:"ts"`
	Closes     []float64 `msgpack:"c"`
}

// Cache is a SQLite-backed price history cache with a fixed TTL. Entries are
// keyed by (symbol, period); a fetch for a different period never satisfies a
// lookup.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

func NewCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) (*Cache, error) {
	c := &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "price_cache").Logger(),
	}
	if err := c.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate price cache: %w", err)
	}
	return c, nil
}

func (c *Cache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS price_cache (
			symbol     TEXT NOT NULL,
			period     TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			payload    BLOB NOT NULL,
			PRIMARY KEY (symbol, period)
		)
	`)
	return err
}

// Get returns the cached series for (symbol, period), or ErrCacheMiss when
// the entry is absent or older than the TTL. Stale entries are left in place
// for the prune job.
func (c *Cache) Get(symbol, period string) (optimization.PriceSeries, error) {
	var fetchedAt int64
	var payload []byte
	err := c.db.QueryRow(
		`SELECT fetched_at, payload FROM price_cache WHERE symbol = ? AND period = ?`,
		symbol, period,
	).Scan(&fetchedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read price cache: %w", err)
	}

	if time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		return nil, ErrCacheMiss
	}

	var cached cachedSeries
	if err := msgpack.Unmarshal(payload, &cached); err != nil {
		// A corrupt payload is treated as a miss so the entry gets refetched.
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Corrupt cache payload")
		return nil, ErrCacheMiss
	}

	series := make(optimization.PriceSeries, len(cached.Timestamps))
	for i, ts := range cached.Timestamps {
		series[i] = optimization.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: cached.Closes[i],
		}
	}
	return series, nil
}

// Put stores a series, replacing any previous entry for the same key.
func (c *Cache) Put(symbol, period string, series optimization.PriceSeries) error {
	cached := cachedSeries{
		Timestamps: make([]int64, len(series)),
		Closes:     make([]float64, len(series)),
	}
	for i, p := range series {
		cached.Timestamps[i] = p.Date.Unix()
		cached.Closes[i] = p.Close
	}

	payload, err := msgpack.Marshal(&cached)
	if err != nil {
		return fmt.Errorf("failed to encode price cache payload: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT INTO price_cache (symbol, period, fetched_at, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol, period) DO UPDATE SET fetched_at = excluded.fetched_at, payload = excluded.payload`,
		symbol, period, time.Now().Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to write price cache: %w", err)
	}
	return nil
}

// Prune deletes entries older than the TTL and reports how many were removed.
// Scheduled periodically by the server's cron runner.
func (c *Cache) Prune() (int64, error) {
	cutoff := time.Now().Add(-c.ttl).Unix()
	res, err := c.db.Exec(`DELETE FROM price_cache WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune price cache: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		c.log.Debug().Int64("removed", removed).Msg("Pruned stale price cache entries")
	}
	return removed, nil
}
