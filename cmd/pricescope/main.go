package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"priceScope/internal/chain"
	"priceScope/internal/config"
	"priceScope/internal/model"
	"priceScope/internal/price"
	"priceScope/internal/server"
	"priceScope/internal/service"
	"priceScope/internal/storage"
	"priceScope/internal/storage/postgres"
	"priceScope/internal/swap"
	"priceScope/internal/token"
	"priceScope/internal/wallet"
)

func main() {
	root := &cobra.Command{
		Use:          "pricescope",
		Short:        "Token pricing and swap quoting engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "Ethereum RPC URL")
	root.PersistentFlags().String("private-key", "", "hex private key enabling swaps")
	root.PersistentFlags().Uint64("chain-id", 1, "chain id")
	root.PersistentFlags().String("quoter", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e", "Uniswap V3 QuoterV2 address")
	root.PersistentFlags().String("router", "0xE592427A0AEce92De3Edee1F18E0157C05861564", "Uniswap V3 SwapRouter address")
	root.PersistentFlags().String("native-symbol", "ETH", "native asset symbol")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN for the audit trail")
	root.PersistentFlags().String("audit-out", "", "JSONL audit trail path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve JSON-RPC requests over stdio or HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", "", "HTTP listen address, empty serves stdio")
	root.AddCommand(serveCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Resolve a native or token balance",
		RunE:  runBalance,
	}
	balanceCmd.Flags().String("address", "", "holder address")
	balanceCmd.Flags().String("token", "", "token symbol or address, empty for native")
	root.AddCommand(balanceCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Resolve a token price",
		RunE:  runPrice,
	}
	priceCmd.Flags().String("base", "", "base token symbol or address")
	priceCmd.Flags().String("quote", "", "quote currency (USD or ETH)")
	root.AddCommand(priceCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Simulate a single-hop swap",
		RunE:  runSwap,
	}
	swapCmd.Flags().String("from", "", "input token symbol or address")
	swapCmd.Flags().String("to", "", "output token symbol or address")
	swapCmd.Flags().String("amount-in-wei", "", "input amount in base units")
	swapCmd.Flags().Uint32("slippage-bps", model.DefaultSlippageBps, "slippage tolerance in basis points")
	swapCmd.Flags().Uint32("fee", model.DefaultFee, "pool fee tier")
	swapCmd.Flags().String("recipient", "", "recipient address, defaults to the wallet")
	swapCmd.Flags().String("sqrt-price-limit", "", "sqrtPriceLimitX96 bound")
	root.AddCommand(swapCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg     config.Config
	logger  *zap.Logger
	service *service.Service
	close   func()
}

func buildApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Quoter) {
		return nil, fmt.Errorf("invalid quoter address: %s", cfg.Quoter)
	}
	if !common.IsHexAddress(cfg.Router) {
		return nil, fmt.Errorf("invalid router address: %s", cfg.Router)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	registry, err := token.NewRegistryWithDefaults()
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	signer, err := wallet.FromHexKey(cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		chainClient.Close()
		return nil, err
	}
	if signer != nil {
		logger.Info("wallet configured", zap.String("address", signer.Address().Hex()))
	}

	var audit storage.AuditSink = storage.NopSink{}
	var closeAudit func()
	switch {
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			chainClient.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		audit = store
		closeAudit = store.Close
	case cfg.AuditOut != "":
		audit = storage.NewJsonlSink(cfg.AuditOut)
	}

	quoter := common.HexToAddress(cfg.Quoter)
	resolver := price.NewResolver(chainClient, quoter, logger)
	svc := service.New(service.Config{
		Swap: swap.Config{
			Quoter: quoter,
			Router: common.HexToAddress(cfg.Router),
		},
		NativeSymbol: cfg.NativeSymbol,
	}, chainClient, registry, signer, resolver, audit, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		service: svc,
		close: func() {
			if closeAudit != nil {
				closeAudit()
			}
			chainClient.Close()
			logger.Sync()
		},
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer application.close()

	handler := server.NewHandler(application.service, application.logger)
	if application.cfg.Listen != "" {
		return server.ListenAndServe(ctx, application.cfg.Listen, handler, application.logger)
	}
	application.logger.Info("serving stdio")
	return server.ServeStdio(ctx, handler, os.Stdin, os.Stdout, application.logger)
}

func runBalance(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer application.close()

	address, _ := cmd.Flags().GetString("address")
	tokenRef, _ := cmd.Flags().GetString("token")
	out, err := application.service.GetBalance(ctx, model.BalanceParams{Address: address, Token: tokenRef})
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runPrice(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer application.close()

	base, _ := cmd.Flags().GetString("base")
	quote, _ := cmd.Flags().GetString("quote")
	out, err := application.service.GetTokenPrice(ctx, model.PriceParams{
		Base:  base,
		Quote: model.QuoteCurrency(quote),
	})
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runSwap(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer application.close()

	params := model.SwapParams{}
	params.FromToken, _ = cmd.Flags().GetString("from")
	params.ToToken, _ = cmd.Flags().GetString("to")
	params.AmountInWei, _ = cmd.Flags().GetString("amount-in-wei")
	params.Recipient, _ = cmd.Flags().GetString("recipient")
	params.SqrtPriceLimit, _ = cmd.Flags().GetString("sqrt-price-limit")
	if cmd.Flags().Changed("slippage-bps") {
		slippage, _ := cmd.Flags().GetUint32("slippage-bps")
		params.SlippageBps = &slippage
	}
	if cmd.Flags().Changed("fee") {
		fee, _ := cmd.Flags().GetUint32("fee")
		params.Fee = &fee
	}

	out, err := application.service.SwapTokens(ctx, params)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func printJSON(value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
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
