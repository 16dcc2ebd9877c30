package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DATA API - Trade history for watched wallets
// ═══════════════════════════════════════════════════════════════════════════════

const (
	DefaultDataAPIURL = "https://data-api.polymarket.com"
	DefaultTimeout    = 10 * time.Second
	DefaultRPS        = 5.0
)

// DataAPIClient fetches a wallet's recent trades over HTTP
type DataAPIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewDataAPIClient creates a rate-limited trade history client
func NewDataAPIClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *DataAPIClient {
	if baseURL == "" {
		baseURL = DefaultDataAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRPS
	}

	return &DataAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// FetchTrades returns up to limit recent trades for wallet
func (c *DataAPIClient) FetchTrades(ctx context.Context, wallet string, limit int) ([]RawTrade, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("user", strings.ToLower(wallet))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := fmt.Sprintf("%s/trades?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	trades, err := decodeTrades(body)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	log.Debug().
		Str("wallet", wallet).
		Int("count", len(trades)).
		Msg("Fetched wallet trades")

	return trades, nil
}

// decodeTrades accepts either a bare array or {"data": [...]}
func decodeTrades(body []byte) ([]RawTrade, error) {
	var trades []RawTrade
	if err := json.Unmarshal(body, &trades); err == nil {
		return trades, nil
	}

	var wrapped struct {
		Data       []RawTrade `json:"data"`
		NextCursor string     `json:"next_cursor"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
