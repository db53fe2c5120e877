package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// DefaultTimeout bounds each aggregator request.
const DefaultTimeout = 10 * time.Second

// Client talks to the DEX-aggregation API for quotes and public swap
// submission.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds an aggregator client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type quoteResponse struct {
	ToAmount     float64          `json:"to_amount"`
	EstimatedGas uint64           `json:"estimated_gas"`
	Route        []model.RouteHop `json:"route"`
}

type swapResponse struct {
	TxHash   string  `json:"tx_hash"`
	ToAmount float64 `json:"to_amount"`
}

// GetQuote fetches a price quote for the request. The returned Quote is a
// snapshot; callers must not mutate it.
func (c *Client) GetQuote(ctx context.Context, req model.SwapRequest) (model.Quote, error) {
	payload := map[string]interface{}{
		"from_token":   req.FromToken,
		"to_token":     req.ToToken,
		"amount":       req.Amount,
		"chain_id":     req.ChainID,
		"from_address": req.UserAddress,
	}

	var out quoteResponse
	if err := c.post(ctx, "/v1/quote", payload, &out); err != nil {
		return model.Quote{}, err
	}

	c.logger.Debug("quote fetched",
		zap.String("from", req.FromToken),
		zap.String("to", req.ToToken),
		zap.Float64("to_amount", out.ToAmount),
		zap.Int("hops", len(out.Route)))

	return model.Quote{
		ToAmount:     out.ToAmount,
		EstimatedGas: out.EstimatedGas,
		Route:        out.Route,
		FetchedAt:    time.Now().UTC(),
	}, nil
}

// SubmitSwap executes the swap on the public path against the quoted route.
func (c *Client) SubmitSwap(ctx context.Context, req model.SwapRequest, q model.Quote) (model.SwapResult, error) {
	payload := map[string]interface{}{
		"from_token":   req.FromToken,
		"to_token":     req.ToToken,
		"amount":       req.Amount,
		"chain_id":     req.ChainID,
		"from_address": req.UserAddress,
		"slippage":     req.Slippage,
		"gas_price":    req.GasPrice,
		"min_out":      q.ToAmount,
	}
	if req.Permit != "" {
		payload["permit"] = req.Permit
	}

	var out swapResponse
	if err := c.post(ctx, "/v1/swap", payload, &out); err != nil {
		return model.SwapResult{}, err
	}

	c.logger.Info("swap submitted",
		zap.String("tx_hash", out.TxHash),
		zap.Float64("to_amount", out.ToAmount))

	return model.SwapResult{TxHash: out.TxHash, ToAmount: out.ToAmount}, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		kind := model.GatewayNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			kind = model.GatewayTimeout
		}
		return &model.GatewayError{Gateway: "aggregator", Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.GatewayError{
			Gateway: "aggregator",
			Kind:    classifyStatus(resp.StatusCode),
			Message: fmt.Sprintf("%s returned %d", path, resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func classifyStatus(status int) model.GatewayKind {
	switch {
	case status == http.StatusBadRequest:
		return model.GatewayInvalidParams
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.GatewayAuth
	case status == http.StatusTooManyRequests:
		return model.GatewayRateLimited
	case status == http.StatusNotFound:
		return model.GatewayNoRoute
	default:
		return model.GatewayServer
	}
}
