package relay

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
)

// Client speaks the flashbots bundle JSON-RPC surface over a relay
// endpoint.
type Client struct {
	rpcClient *rpc.Client
}

// NewClient dials the relay endpoint.
func NewClient(ctx context.Context, relayURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, relayURL)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	return &Client{rpcClient: rpcClient}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

type callBundleArgs struct {
	Txs              []string `json:"txs"`
	BlockNumber      string   `json:"blockNumber"`
	StateBlockNumber string   `json:"stateBlockNumber"`
}

type callBundleResult struct {
	TotalGasUsed     uint64 `json:"totalGasUsed"`
	CoinbaseDiff     string `json:"coinbaseDiff"`
	BundleGasPrice   string `json:"bundleGasPrice"`
	StateBlockNumber uint64 `json:"stateBlockNumber"`
}

type sendBundleArgs struct {
	Txs             []string `json:"txs"`
	BlockNumber     string   `json:"blockNumber"`
	RefundRecipient string   `json:"refundRecipient,omitempty"`
	RefundPercent   int      `json:"refundPercent,omitempty"`
}

type sendBundleResult struct {
	BundleHash string `json:"bundleHash"`
}

// SimulateBundle dry-runs the bundle against the target block's state.
func (c *Client) SimulateBundle(ctx context.Context, txs []string, targetBlock uint64) (model.BundleSimulation, error) {
	args := callBundleArgs{
		Txs:              txs,
		BlockNumber:      hexutil.EncodeUint64(targetBlock),
		StateBlockNumber: "latest",
	}

	var result callBundleResult
	if err := c.rpcClient.CallContext(ctx, &result, "eth_callBundle", args); err != nil {
		return model.BundleSimulation{}, &model.GatewayError{Gateway: "relay", Kind: model.GatewayServer, Err: err}
	}

	return model.BundleSimulation{
		GasUsed: result.TotalGasUsed,
		Profit:  parseWeiFloat(result.CoinbaseDiff),
	}, nil
}

// SubmitBundle sends the bundle for inclusion in the target block.
func (c *Client) SubmitBundle(ctx context.Context, txs []string, targetBlock uint64, refund *model.RefundConfig) (string, error) {
	args := sendBundleArgs{
		Txs:         txs,
		BlockNumber: hexutil.EncodeUint64(targetBlock),
	}
	if refund != nil {
		args.RefundRecipient = refund.Recipient
		args.RefundPercent = refund.Percent
	}

	var result sendBundleResult
	if err := c.rpcClient.CallContext(ctx, &result, "eth_sendBundle", args); err != nil {
		return "", &model.GatewayError{Gateway: "relay", Kind: model.GatewayServer, Err: err}
	}
	if result.BundleHash == "" {
		return "", &model.GatewayError{Gateway: "relay", Kind: model.GatewayServer, Message: "relay returned no bundle hash"}
	}
	return result.BundleHash, nil
}

// BlockNumber returns the relay's view of the current chain height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.rpcClient.CallContext(ctx, &result, "eth_blockNumber"); err != nil {
		return 0, &model.GatewayError{Gateway: "relay", Kind: model.GatewayNetwork, Err: err}
	}
	return uint64(result), nil
}

// parseWeiFloat converts a decimal wei string into ether units. Malformed
// values read as zero profit.
func parseWeiFloat(value string) float64 {
	if value == "" {
		return 0
	}
	wei, ok := new(big.Int).SetString(value, 10)
	if !ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed / 1e18
		}
		return 0
	}
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18)).Float64()
	return out
}
