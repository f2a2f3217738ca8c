package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"priceScope/internal/amount"
	"priceScope/internal/apperr"
	"priceScope/internal/erc20"
	"priceScope/internal/model"
	"priceScope/internal/price"
	"priceScope/internal/storage"
	"priceScope/internal/swap"
	"priceScope/internal/token"
	"priceScope/internal/wallet"
)

// nativeDecimals is the precision of the chain's native asset.
const nativeDecimals = 18

// Backend provides the chain reads the service needs.
type Backend interface {
	NativeBalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Config carries the service's static settings.
type Config struct {
	Swap         swap.Config
	NativeSymbol string
}

// Service implements the balance, price, and swap operations behind the
// RPC surface. It owns no transport concerns.
type Service struct {
	cfg      Config
	backend  Backend
	registry *token.Registry
	signer   *wallet.Wallet
	resolver *price.Resolver
	audit    storage.AuditSink
	logger   *zap.Logger
}

// New wires a service. A nil signer disables swaps; a nil audit sink and
// logger default to no-ops.
func New(cfg Config, backend Backend, registry *token.Registry, signer *wallet.Wallet, resolver *price.Resolver, audit storage.AuditSink, logger *zap.Logger) *Service {
	if audit == nil {
		audit = storage.NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		backend:  backend,
		registry: registry,
		signer:   signer,
		resolver: resolver,
		audit:    audit,
		logger:   logger,
	}
}

// GetBalance reports the native balance of an address, or its balance of a
// specific token when one is referenced.
func (s *Service) GetBalance(ctx context.Context, params model.BalanceParams) (out model.BalanceOut, err error) {
	defer func() {
		s.recordAudit(ctx, "get_balance", fmt.Sprintf("address=%s token=%s", params.Address, params.Token), err)
	}()

	if !common.IsHexAddress(params.Address) {
		return model.BalanceOut{}, apperr.New(apperr.KindInvalidInput, "invalid address: %s", params.Address)
	}
	holder := common.HexToAddress(params.Address)

	if params.Token == "" {
		raw, nativeErr := s.backend.NativeBalanceAt(ctx, holder)
		if nativeErr != nil {
			err = apperr.Wrap(apperr.KindExternalRead, nativeErr, "failed to read native balance for %s", holder.Hex())
			return model.BalanceOut{}, err
		}
		out = model.BalanceOut{
			Symbol:    s.cfg.NativeSymbol,
			Raw:       raw.String(),
			Decimals:  nativeDecimals,
			Formatted: amount.FormatUnits(raw, nativeDecimals),
		}
		s.logger.Info("balance resolved",
			zap.String("address", holder.Hex()),
			zap.String("symbol", out.Symbol),
			zap.String("formatted", out.Formatted),
		)
		return out, nil
	}

	tokenAddr, err := s.resolveToken(ctx, params.Token)
	if err != nil {
		return model.BalanceOut{}, err
	}
	info, ok := s.registry.Snapshot().InfoByAddress(tokenAddr)
	if !ok {
		err = apperr.New(apperr.KindUnsupportedToken, "unsupported token: %s", tokenAddr.Hex())
		return model.BalanceOut{}, err
	}

	raw, err := erc20.FetchBalanceOf(ctx, s.backend, tokenAddr, holder)
	if err != nil {
		return model.BalanceOut{}, err
	}
	out = model.BalanceOut{
		Symbol:    info.Symbol,
		Raw:       raw.String(),
		Decimals:  uint32(info.Decimals),
		Formatted: amount.FormatUnits(raw, info.Decimals),
	}
	s.logger.Info("balance resolved",
		zap.String("address", holder.Hex()),
		zap.String("symbol", out.Symbol),
		zap.String("formatted", out.Formatted),
	)
	return out, nil
}

// GetTokenPrice prices one unit of the base token in the requested quote
// currency.
func (s *Service) GetTokenPrice(ctx context.Context, params model.PriceParams) (out model.PriceOut, err error) {
	defer func() {
		s.recordAudit(ctx, "get_token_price", fmt.Sprintf("base=%s quote=%s", params.Base, params.Quote), err)
	}()

	quote, err := model.ParseQuoteCurrency(string(params.Quote))
	if err != nil {
		return model.PriceOut{}, err
	}

	baseAddr, err := s.resolveToken(ctx, params.Base)
	if err != nil {
		return model.PriceOut{}, err
	}

	out, err = s.resolver.Resolve(ctx, s.registry.Snapshot(), baseAddr, quote)
	if err != nil {
		return model.PriceOut{}, err
	}
	s.logger.Info("price resolved",
		zap.String("base", out.Base),
		zap.String("quote", out.Quote),
		zap.String("price", out.Price),
		zap.String("source", out.Source),
	)
	return out, nil
}

// SwapTokens simulates a single-hop swap on behalf of the configured signer.
func (s *Service) SwapTokens(ctx context.Context, params model.SwapParams) (out model.SwapSimOut, err error) {
	defer func() {
		s.recordAudit(ctx, "swap_tokens",
			fmt.Sprintf("from=%s to=%s amount=%s", params.FromToken, params.ToToken, params.AmountInWei), err)
	}()

	if s.signer == nil {
		err = apperr.New(apperr.KindWallet, "no wallet configured, set a private key to enable swaps")
		return model.SwapSimOut{}, err
	}

	fromAddr, err := s.resolveToken(ctx, params.FromToken)
	if err != nil {
		return model.SwapSimOut{}, err
	}
	toAddr, err := s.resolveToken(ctx, params.ToToken)
	if err != nil {
		return model.SwapSimOut{}, err
	}

	out, err = swap.Simulate(ctx, s.backend, s.cfg.Swap, swap.Request{
		FromToken:      fromAddr,
		ToToken:        toAddr,
		AmountInWei:    params.AmountInWei,
		SlippageBps:    params.SlippageOrDefault(),
		Fee:            params.FeeOrDefault(),
		Recipient:      params.Recipient,
		SqrtPriceLimit: params.SqrtPriceLimit,
		Sender:         s.signer.Address(),
	})
	if err != nil {
		return model.SwapSimOut{}, err
	}
	s.logger.Info("swap simulated",
		zap.String("from", fromAddr.Hex()),
		zap.String("to", toAddr.Hex()),
		zap.String("amount_in_wei", out.AmountInWei),
		zap.String("amount_out_min_wei", out.AmountOutMinWei),
		zap.String("gas_estimate", out.GasEstimate),
	)
	return out, nil
}

// resolveToken maps a token reference to an address. Hex input is taken as
// an address and enriched into the registry; anything else must match a
// registered symbol.
func (s *Service) resolveToken(ctx context.Context, input string) (common.Address, error) {
	if common.IsHexAddress(input) {
		address := common.HexToAddress(input)
		if err := s.registry.Ensure(ctx, s.backend, address); err != nil {
			return common.Address{}, err
		}
		return address, nil
	}
	if address, ok := s.registry.Snapshot().ResolveSymbol(input); ok {
		return address, nil
	}
	return common.Address{}, apperr.New(apperr.KindInvalidInput, "unknown token symbol or address: %s", input)
}

func (s *Service) recordAudit(ctx context.Context, method, detail string, opErr error) {
	record := storage.AuditRecord{
		Method:     method,
		Detail:     detail,
		OK:         opErr == nil,
		RecordedAt: time.Now().UTC(),
	}
	if opErr != nil {
		record.Error = opErr.Error()
	}
	if err := s.audit.PutAudit(ctx, record); err != nil {
		s.logger.Warn("audit write failed", zap.String("method", method), zap.Error(err))
	}
}
