package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// DefaultTimeout bounds each signal request.
const DefaultTimeout = 5 * time.Second

// Client reads market signals from the data provider's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a market data client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type volatilityResponse struct {
	Volatility float64 `json:"volatility"`
}

type liquidityResponse struct {
	Liquidity float64 `json:"liquidity"`
}

type trendResponse struct {
	Trend string `json:"trend"`
}

type gasResponse struct {
	BaseFee     float64 `json:"base_fee"`
	PriorityFee float64 `json:"priority_fee"`
	Congestion  float64 `json:"congestion"`
}

// Volatility returns the normalized volatility estimate for a token.
func (c *Client) Volatility(ctx context.Context, token string) (float64, error) {
	var out volatilityResponse
	if err := c.get(ctx, "/v1/volatility", url.Values{"token": {token}}, &out); err != nil {
		return 0, err
	}
	return clamp01(out.Volatility), nil
}

// Liquidity returns the normalized liquidity estimate for a token.
func (c *Client) Liquidity(ctx context.Context, token string) (float64, error) {
	var out liquidityResponse
	if err := c.get(ctx, "/v1/liquidity", url.Values{"token": {token}}, &out); err != nil {
		return 0, err
	}
	return clamp01(out.Liquidity), nil
}

// Trend returns the directional market trend for a token.
func (c *Client) Trend(ctx context.Context, token string) (model.MarketTrend, error) {
	var out trendResponse
	if err := c.get(ctx, "/v1/trend", url.Values{"token": {token}}, &out); err != nil {
		return "", err
	}
	switch model.MarketTrend(out.Trend) {
	case model.TrendBullish, model.TrendBearish, model.TrendNeutral:
		return model.MarketTrend(out.Trend), nil
	default:
		return "", fmt.Errorf("unknown trend %q", out.Trend)
	}
}

// GasSignals returns fee-market observations for a chain.
func (c *Client) GasSignals(ctx context.Context, chainID uint64) (model.GasSignals, error) {
	var out gasResponse
	query := url.Values{"chain_id": {fmt.Sprintf("%d", chainID)}}
	if err := c.get(ctx, "/v1/gas", query, &out); err != nil {
		return model.GasSignals{}, err
	}
	return model.GasSignals{
		BaseFee:     out.BaseFee,
		PriorityFee: out.PriorityFee,
		Congestion:  clamp01(out.Congestion),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &model.GatewayError{Gateway: "market", Kind: model.GatewayNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.GatewayError{
			Gateway: "market",
			Kind:    model.GatewayServer,
			Message: fmt.Sprintf("%s returned %d", path, resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
