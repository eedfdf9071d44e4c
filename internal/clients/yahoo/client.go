package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/optimization"
)

// validPeriods are the range values the chart API accepts.
var validPeriods = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// Client fetches daily price history from the Yahoo Finance chart API.
type Client struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host, used by tests to point at a local server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a new Yahoo Finance chart client.
func NewClient(log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://query1.finance.yahoo.com",
		log:     log.With().Str("client", "yahoo").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chartResponse mirrors the chart API JSON envelope.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyCloses fetches the daily adjusted close history for one symbol over
// the given period (1mo, 6mo, 1y, 5y, max, ...). Null rows are skipped.
// Adjusted closes are preferred; plain closes are the fallback when the API
// omits the adjclose indicator.
func (c *Client) GetDailyCloses(ctx context.Context, symbol, period string) (optimization.PriceSeries, error) {
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol")
	}
	if !validPeriods[period] {
		return nil, fmt.Errorf("invalid period %q", period)
	}

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", period)
	reqURL := c.baseURL + "/v8/finance/chart/" + url.QueryEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Yahoo rejects requests without a browser-like user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price history: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s (%s)", symbol, result.Chart.Error.Description, result.Chart.Error.Code)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No price data returned")
		return optimization.PriceSeries{}, nil
	}

	chartData := result.Chart.Result[0]
	closes := chartData.Indicators.Quote[0].Close

	var adjCloses []float64
	if len(chartData.Indicators.AdjClose) > 0 {
		adjCloses = chartData.Indicators.AdjClose[0].AdjClose
	}

	series := make(optimization.PriceSeries, 0, len(chartData.Timestamp))
	for i, ts := range chartData.Timestamp {
		if i >= len(closes) || closes[i] == 0 {
			continue
		}
		price := closes[i]
		if i < len(adjCloses) && adjCloses[i] != 0 {
			price = adjCloses[i]
		}
		series = append(series, optimization.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: price,
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Int("points", len(series)).
		Msg("Fetched price history")

	return series, nil
}
