package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SweetieBirdX/CipherSwap-sub000/internal/bundle"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/config"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/executor"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/market"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/model"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/quote"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/relay"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/risk"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/storage"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/storage/postgres"
	"github.com/SweetieBirdX/CipherSwap-sub000/internal/tolerance"
)

func main() {
	root := &cobra.Command{
		Use:          "cipherswap",
		Short:        "Swap risk analysis and MEV-protected execution",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("aggregator-url", "", "DEX aggregator base URL")
	root.PersistentFlags().String("aggregator-key", "", "DEX aggregator API key")
	root.PersistentFlags().String("market-url", "", "market data gateway base URL (empty uses synthetic signals)")
	root.PersistentFlags().String("relay-url", "", "MEV relay RPC URL")
	root.PersistentFlags().String("postgres-dsn", "", "Postgres DSN (empty uses in-memory history)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the risk pipeline for a swap without executing it",
		RunE:  runAnalyze,
	}
	addSwapFlags(analyzeCmd)
	analyzeCmd.Flags().Float64("expected-out", 0, "expected output amount when no aggregator is configured")
	root.AddCommand(analyzeCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Analyze and execute a swap through the aggregator",
		RunE:  runSwap,
	}
	addSwapFlags(swapCmd)
	root.AddCommand(swapCmd)

	protectCmd := &cobra.Command{
		Use:   "protect",
		Short: "Submit signed transactions as an MEV-protected bundle",
		RunE:  runProtect,
	}
	addSwapFlags(protectCmd)
	protectCmd.Flags().StringSlice("tx", nil, "signed raw transactions, 0x-prefixed (comma-separated)")
	protectCmd.Flags().Uint64("target-block", 0, "target block (0 means current height + 1)")
	protectCmd.Flags().String("refund-recipient", "", "refund recipient address")
	protectCmd.Flags().Int("refund-percent", 90, "refund share percent")
	protectCmd.Flags().Int("max-retries", 3, "maximum bundle resubmissions")
	protectCmd.Flags().Duration("retry-base-delay", 2*time.Second, "initial resubmission backoff")
	protectCmd.Flags().Duration("retry-max-delay", 30*time.Second, "resubmission backoff ceiling")
	protectCmd.Flags().Float64("backoff-multiplier", 2.0, "resubmission backoff multiplier")
	protectCmd.Flags().Bool("fallback-enabled", true, "fall back to public submission when the relay path is exhausted")
	root.AddCommand(protectCmd)

	retryCmd := &cobra.Command{
		Use:   "bundle-retry <bundle-id>",
		Short: "Retry a failed or expired bundle",
		Args:  cobra.ExactArgs(1),
		RunE:  runBundleRetry,
	}
	retryCmd.Flags().Uint64("target-block", 0, "target block (0 means original target + 1)")
	root.AddCommand(retryCmd)

	statusCmd := &cobra.Command{
		Use:   "bundle-status <bundle-id>",
		Short: "Show the current status of a bundle",
		Args:  cobra.ExactArgs(1),
		RunE:  runBundleStatus,
	}
	root.AddCommand(statusCmd)

	swapStatusCmd := &cobra.Command{
		Use:   "swap-status <swap-id>",
		Short: "Show the current status of a swap",
		Args:  cobra.ExactArgs(1),
		RunE:  runSwapStatus,
	}
	root.AddCommand(swapStatusCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSwapFlags(cmd *cobra.Command) {
	cmd.Flags().String("from-token", "", "token to sell")
	cmd.Flags().String("to-token", "", "token to buy")
	cmd.Flags().Float64("amount", 0, "amount to sell, in quote-currency units")
	cmd.Flags().Uint64("chain", 1, "chain id")
	cmd.Flags().String("user-address", "", "originating user address")
	cmd.Flags().Float64("slippage", 0, "base slippage tolerance percent (0 uses the model default)")
	cmd.Flags().Float64("gas-price", 0, "gas price in gwei (0 lets the engine choose)")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := swapRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	pipeline := newPipeline(cfg, logger)

	var q model.Quote
	if cfg.AggregatorURL != "" {
		quotes := quote.NewClient(cfg.AggregatorURL, cfg.AggregatorKey, cfg.AggregatorTimeout, logger)
		q, err = quotes.GetQuote(ctx, req)
		if err != nil {
			return fmt.Errorf("fetch quote: %w", err)
		}
	} else {
		expectedOut, _ := cmd.Flags().GetFloat64("expected-out")
		if expectedOut <= 0 {
			return fmt.Errorf("either aggregator-url or expected-out is required")
		}
		q = model.Quote{ToAmount: expectedOut, FetchedAt: time.Now().UTC()}
	}

	report, err := pipeline.Simulate(ctx, req, q)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runSwap(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.AggregatorURL == "" {
		return fmt.Errorf("aggregator-url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := swapRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	quotes := quote.NewClient(cfg.AggregatorURL, cfg.AggregatorKey, cfg.AggregatorTimeout, logger)
	orch := executor.NewOrchestrator(quotes, quotes, newPipeline(cfg, logger), store, logger)

	record, err := orch.ExecuteWithOptimization(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(record)
}

func runProtect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RelayURL == "" {
		return fmt.Errorf("relay-url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rawTxs, _ := cmd.Flags().GetStringSlice("tx")
	userAddress, _ := cmd.Flags().GetString("user-address")
	targetBlock, _ := cmd.Flags().GetUint64("target-block")
	if userAddress == "" {
		return fmt.Errorf("user-address is required")
	}

	// A fully described swap enables public fallback after relay retries
	// are exhausted.
	var fallbackReq *model.SwapRequest
	if fromToken, _ := cmd.Flags().GetString("from-token"); fromToken != "" {
		req, err := swapRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		fallbackReq = &req
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	orch, closeRelay, err := newBundleOrchestrator(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeRelay()

	record, err := orch.CreateBundleWithRetry(ctx, rawTxs, userAddress, bundle.SubmitOptions{
		TargetBlock:     targetBlock,
		FallbackRequest: fallbackReq,
	})
	if err != nil {
		return err
	}
	return printJSON(record)
}

func runBundleRetry(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RelayURL == "" {
		return fmt.Errorf("relay-url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targetBlock, _ := cmd.Flags().GetUint64("target-block")

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	orch, closeRelay, err := newBundleOrchestrator(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeRelay()

	record, err := orch.RetryBundle(ctx, args[0], targetBlock)
	if err != nil {
		return err
	}
	return printJSON(record)
}

func runBundleStatus(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	orch, closeRelay, err := newBundleOrchestrator(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeRelay()

	record, ok, err := orch.GetBundleStatus(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown bundle %s", args[0])
	}
	return printJSON(record)
}

func runSwapStatus(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Only the read surface is used here, so no gateways are wired.
	orch := executor.NewOrchestrator(nil, nil, nil, store, logger)
	record, ok, err := orch.GetSwap(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown swap %s", args[0])
	}
	return printJSON(record)
}

func swapRequestFromFlags(cmd *cobra.Command) (model.SwapRequest, error) {
	fromToken, _ := cmd.Flags().GetString("from-token")
	toToken, _ := cmd.Flags().GetString("to-token")
	amount, _ := cmd.Flags().GetFloat64("amount")
	chainID, _ := cmd.Flags().GetUint64("chain")
	userAddress, _ := cmd.Flags().GetString("user-address")
	slippage, _ := cmd.Flags().GetFloat64("slippage")
	gasPrice, _ := cmd.Flags().GetFloat64("gas-price")

	req := model.SwapRequest{
		FromToken:   fromToken,
		ToToken:     toToken,
		Amount:      amount,
		ChainID:     chainID,
		UserAddress: userAddress,
		Slippage:    slippage,
		GasPrice:    gasPrice,
	}
	if err := req.Validate(); err != nil {
		return model.SwapRequest{}, err
	}
	return req, nil
}

func newPipeline(cfg config.Config, logger *zap.Logger) *risk.Pipeline {
	var signals market.Gateway
	if cfg.MarketURL != "" {
		signals = market.NewClient(cfg.MarketURL, cfg.MarketTimeout)
	} else {
		signals = market.NewSynthetic()
	}

	tolCfg := tolerance.DefaultConfig()
	if cfg.SlippageDefault > 0 {
		tolCfg.DefaultTolerance = cfg.SlippageDefault
	}
	if cfg.SlippageMin > 0 {
		tolCfg.MinTolerance = cfg.SlippageMin
	}
	if cfg.SlippageMax > 0 {
		tolCfg.MaxTolerance = cfg.SlippageMax
	}
	if cfg.SlippageWarning > 0 {
		tolCfg.WarningThreshold = cfg.SlippageWarning
	}
	if cfg.SlippageCritical > 0 {
		tolCfg.CriticalThreshold = cfg.SlippageCritical
	}
	if cfg.HighVolatilityMultiplier > 0 {
		tolCfg.HighVolatilityMultiplier = cfg.HighVolatilityMultiplier
	}
	if cfg.LowLiquidityMultiplier > 0 {
		tolCfg.LowLiquidityMultiplier = cfg.LowLiquidityMultiplier
	}
	if cfg.PeakHoursMultiplier > 0 {
		tolCfg.PeakHoursMultiplier = cfg.PeakHoursMultiplier
	}
	if cfg.OffPeakMultiplier > 0 {
		tolCfg.OffPeakMultiplier = cfg.OffPeakMultiplier
	}
	if cfg.LargeTradeThreshold > 0 {
		tolCfg.LargeTradeThreshold = cfg.LargeTradeThreshold
	}
	if cfg.LargeTradeMultiplier > 0 {
		tolCfg.LargeTradeMultiplier = cfg.LargeTradeMultiplier
	}
	for chainID, mult := range cfg.ChainMultipliers {
		tolCfg.ChainMultipliers[chainID] = mult
	}

	return risk.NewPipeline(market.NewResilient(signals, logger), tolerance.NewModel(tolCfg, logger), logger)
}

func newStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		return storage.NewMemory(), func() {}, nil
	}
	pg, err := postgres.NewStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pg, pg.Close, nil
}

func newBundleOrchestrator(ctx context.Context, cfg config.Config, store storage.Store, logger *zap.Logger) (*bundle.Orchestrator, func(), error) {
	var relayGateway relay.Gateway
	closeRelay := func() {}
	if cfg.RelayURL != "" {
		client, err := relay.NewClient(ctx, cfg.RelayURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect relay: %w", err)
		}
		relayGateway = client
		closeRelay = client.Close
	}

	var fallback bundle.FallbackSubmitter
	if cfg.FallbackEnabled && cfg.AggregatorURL != "" {
		quotes := quote.NewClient(cfg.AggregatorURL, cfg.AggregatorKey, cfg.AggregatorTimeout, logger)
		fallback = executor.NewOrchestrator(quotes, quotes, newPipeline(cfg, logger), store, logger)
	}

	orch := bundle.NewOrchestrator(relayGateway, store, fallback, bundle.Config{
		MaxRetries:        cfg.MaxRetries,
		BaseDelay:         cfg.RetryBaseDelay,
		MaxDelay:          cfg.RetryMaxDelay,
		BackoffMultiplier: cfg.BackoffMultiplier,
		FallbackEnabled:   cfg.FallbackEnabled,
		FallbackGasPrice:  cfg.FallbackGasPrice,
		FallbackSlippage:  cfg.FallbackSlippage,
		RefundRecipient:   cfg.RefundRecipient,
		RefundPercent:     cfg.RefundPercent,
	}, logger)
	return orch, closeRelay, nil
}

func printJSON(value interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
