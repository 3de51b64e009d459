// Package bybit implements the Bybit v5 API surface the monitor needs: the
// REST endpoints for instruments, fee schedules and wallet balances, and the
// public WebSocket stream for top-of-book data.
package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

const (
	// recvWindow is the signature validity window in milliseconds.
	recvWindow = "5000"

	// spotCategory scopes every market and account query.
	spotCategory = "spot"
)

// Client is the REST client for the Bybit v5 API. Public endpoints work
// without credentials; account endpoints require an API key and secret.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a REST client.
//
// baseURL is the API root, e.g. "https://api.bybit.com". Key and secret may
// be empty for public-only use.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// HasCredentials reports whether account endpoints can be called.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// Instruments fetches every spot instrument currently open for trading.
func (c *Client) Instruments(ctx context.Context) ([]domain.Instrument, error) {
	query := "category=" + spotCategory + "&limit=1000"
	respBody, err := c.doGet(ctx, "/v5/market/instruments-info", query, false)
	if err != nil {
		return nil, fmt.Errorf("bybit: instruments: %w", err)
	}

	var result struct {
		List []APIInstrument `json:"list"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("bybit: decode instruments: %w", err)
	}

	instruments := make([]domain.Instrument, 0, len(result.List))
	for _, in := range result.List {
		if in.Status != "Trading" {
			continue
		}
		instruments = append(instruments, in.ToDomainInstrument())
	}
	return instruments, nil
}

// FeeRates fetches the account's spot fee schedule, keyed by symbol.
func (c *Client) FeeRates(ctx context.Context) (domain.StaticFees, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("bybit: fee rates: %w", domain.ErrNoCredential)
	}

	query := "category=" + spotCategory
	respBody, err := c.doGet(ctx, "/v5/account/fee-rate", query, true)
	if err != nil {
		return nil, fmt.Errorf("bybit: fee rates: %w", err)
	}

	var result struct {
		List []APIFeeRate `json:"list"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("bybit: decode fee rates: %w", err)
	}

	fees := make(domain.StaticFees, len(result.List))
	for _, f := range result.List {
		fees[f.Symbol] = f.ToDomainFeeRate()
	}
	return fees, nil
}

// WalletBalances fetches the unified-account balance per coin.
func (c *Client) WalletBalances(ctx context.Context) ([]CoinBalance, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("bybit: wallet balances: %w", domain.ErrNoCredential)
	}

	respBody, err := c.doGet(ctx, "/v5/account/wallet-balance", "accountType=UNIFIED", true)
	if err != nil {
		return nil, fmt.Errorf("bybit: wallet balances: %w", err)
	}

	var result struct {
		List []struct {
			Coin []APICoinBalance `json:"coin"`
		} `json:"list"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("bybit: decode wallet balances: %w", err)
	}

	var balances []CoinBalance
	for _, acct := range result.List {
		for _, coin := range acct.Coin {
			balances = append(balances, coin.ToCoinBalance())
		}
	}
	return balances, nil
}

// doGet performs one GET request and unwraps the v5 envelope, returning the
// raw result payload. Signed requests carry the X-BAPI headers.
func (c *Client) doGet(ctx context.Context, path, query string, signed bool) (json.RawMessage, error) {
	url := c.baseURL + path
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if signed {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		req.Header.Set("X-BAPI-API-KEY", c.apiKey)
		req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
		req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
		req.Header.Set("X-BAPI-SIGN", c.sign(timestamp, query))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.RetCode != 0 {
		return nil, fmt.Errorf("API error %d: %s", envelope.RetCode, envelope.RetMsg)
	}
	return envelope.Result, nil
}

// sign computes the v5 request signature: hex-encoded HMAC-SHA256 of
// timestamp + apiKey + recvWindow + queryString under the API secret.
func (c *Client) sign(timestamp, query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp + c.apiKey + recvWindow + query))
	return hex.EncodeToString(mac.Sum(nil))
}
