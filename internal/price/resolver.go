package price

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"priceScope/internal/amount"
	"priceScope/internal/apperr"
	"priceScope/internal/model"
	"priceScope/internal/token"
	"priceScope/internal/uniswap"
)

// wrappedNativeSymbol is the registry entry the pivot strategies route
// through when no direct feed exists.
const wrappedNativeSymbol = "WETH"

// pivotDivisionScale bounds the fractional digits a pivot division keeps.
const pivotDivisionScale = 18

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Resolver applies the price source policy: direct Chainlink feed first,
// then a Chainlink pivot through the shared USD or ETH reference, then a
// Uniswap V3 quote as the last resort. Strategies run in order and the
// first one that applies wins; a strategy that applies but fails ends the
// resolution, it is never retried against later sources.
type Resolver struct {
	caller Caller
	quoter common.Address
	logger *zap.Logger
}

// NewResolver builds a resolver that quotes DEX fallbacks against the given
// quoter contract.
func NewResolver(caller Caller, quoter common.Address, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{caller: caller, quoter: quoter, logger: logger}
}

type strategy func(ctx context.Context, snap token.Snapshot, base token.Record, quote model.QuoteCurrency) (model.PriceOut, bool, error)

// Resolve prices one unit of the base token in the requested quote currency
// against a registry snapshot.
func (r *Resolver) Resolve(ctx context.Context, snap token.Snapshot, base common.Address, quote model.QuoteCurrency) (model.PriceOut, error) {
	info, ok := snap.InfoByAddress(base)
	if !ok {
		return model.PriceOut{}, apperr.New(apperr.KindUnsupportedToken, "unsupported token: %s", base.Hex())
	}

	strategies := []strategy{r.direct, r.viaUSDPivot, r.viaETHPivot, r.uniswapFallback}
	for _, attempt := range strategies {
		out, applied, err := attempt(ctx, snap, info, quote)
		if err != nil {
			return model.PriceOut{}, err
		}
		if applied {
			return out, nil
		}
	}

	return model.PriceOut{}, apperr.New(apperr.KindPriceUnavailable, "no price source available for %s/%s", info.Symbol, quote)
}

// direct reads the feed registered for the requested quote currency.
func (r *Resolver) direct(ctx context.Context, _ token.Snapshot, base token.Record, quote model.QuoteCurrency) (model.PriceOut, bool, error) {
	feed, ok := base.Feed(quote)
	if !ok {
		return model.PriceOut{}, false, nil
	}
	price, err := fetchChainlinkPrice(ctx, r.caller, feed)
	if err != nil {
		return model.PriceOut{}, false, err
	}
	return priceOut(base.Symbol, quote, price, "chainlink"), true, nil
}

// viaUSDPivot derives an ETH price from the base USD feed and the wrapped
// native asset's USD feed. Skipped silently when either feed (or the
// wrapped native record itself) is absent.
func (r *Resolver) viaUSDPivot(ctx context.Context, snap token.Snapshot, base token.Record, quote model.QuoteCurrency) (model.PriceOut, bool, error) {
	if quote != model.QuoteETH {
		return model.PriceOut{}, false, nil
	}
	baseUSDFeed, ok := base.Feed(model.QuoteUSD)
	if !ok {
		return model.PriceOut{}, false, nil
	}
	native, ok := snap.InfoBySymbol(wrappedNativeSymbol)
	if !ok {
		r.logger.Debug("usd pivot skipped, wrapped native token not registered", zap.String("base", base.Symbol))
		return model.PriceOut{}, false, nil
	}
	nativeUSDFeed, ok := native.Feed(model.QuoteUSD)
	if !ok {
		r.logger.Debug("usd pivot skipped, wrapped native token has no usd feed", zap.String("base", base.Symbol))
		return model.PriceOut{}, false, nil
	}

	baseUSD, err := fetchChainlinkPrice(ctx, r.caller, baseUSDFeed)
	if err != nil {
		return model.PriceOut{}, false, err
	}
	nativeUSD, err := fetchChainlinkPrice(ctx, r.caller, nativeUSDFeed)
	if err != nil {
		return model.PriceOut{}, false, err
	}
	if nativeUSD.IsZero() {
		return model.PriceOut{}, false, apperr.New(apperr.KindPriceUnavailable, "received zero ETH/USD price from chainlink")
	}

	price := baseUSD.DivRound(nativeUSD, pivotDivisionScale)
	return priceOut(base.Symbol, quote, price, "chainlink (via USD)"), true, nil
}

// viaETHPivot derives a USD price from the base ETH feed and the wrapped
// native asset's USD feed.
func (r *Resolver) viaETHPivot(ctx context.Context, snap token.Snapshot, base token.Record, quote model.QuoteCurrency) (model.PriceOut, bool, error) {
	if quote != model.QuoteUSD {
		return model.PriceOut{}, false, nil
	}
	baseETHFeed, ok := base.Feed(model.QuoteETH)
	if !ok {
		return model.PriceOut{}, false, nil
	}
	native, ok := snap.InfoBySymbol(wrappedNativeSymbol)
	if !ok {
		r.logger.Debug("eth pivot skipped, wrapped native token not registered", zap.String("base", base.Symbol))
		return model.PriceOut{}, false, nil
	}
	nativeUSDFeed, ok := native.Feed(model.QuoteUSD)
	if !ok {
		r.logger.Debug("eth pivot skipped, wrapped native token has no usd feed", zap.String("base", base.Symbol))
		return model.PriceOut{}, false, nil
	}

	baseETH, err := fetchChainlinkPrice(ctx, r.caller, baseETHFeed)
	if err != nil {
		return model.PriceOut{}, false, err
	}
	nativeUSD, err := fetchChainlinkPrice(ctx, r.caller, nativeUSDFeed)
	if err != nil {
		return model.PriceOut{}, false, err
	}

	price := baseETH.Mul(nativeUSD)
	return priceOut(base.Symbol, quote, price, "chainlink (via ETH)"), true, nil
}

// uniswapFallback quotes one whole unit of the base token into the quote
// currency's reference token. The raw output is formatted with the quote
// token's decimals and re-parsed so the reported price string can never
// disagree with a balance formatted from the same integer.
func (r *Resolver) uniswapFallback(ctx context.Context, snap token.Snapshot, base token.Record, quote model.QuoteCurrency) (model.PriceOut, bool, error) {
	quoteToken, ok := snap.QuoteToken(quote)
	if !ok {
		return model.PriceOut{}, false, apperr.New(apperr.KindPriceUnavailable, "missing quote token configuration for %s", quote)
	}

	amountIn := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(base.Decimals)), nil)
	result, err := uniswap.QuoteExactInputSingle(ctx, r.caller, r.quoter, uniswap.QuoteParams{
		TokenIn:  base.Address,
		TokenOut: quoteToken.Address,
		AmountIn: amountIn,
		Fee:      base.DefaultFee,
	})
	if err != nil {
		return model.PriceOut{}, false, apperr.Wrap(apperr.KindPriceUnavailable, err, "uniswap quote failed for %s/%s", base.Symbol, quoteToken.Symbol)
	}
	if result.AmountOut.Sign() == 0 {
		return model.PriceOut{}, false, apperr.New(apperr.KindPriceUnavailable, "uniswap returned zero amount out for %s/%s", base.Symbol, quoteToken.Symbol)
	}

	formatted := amount.FormatUnits(result.AmountOut, quoteToken.Decimals)
	price, err := decimal.NewFromString(formatted)
	if err != nil {
		return model.PriceOut{}, false, apperr.Wrap(apperr.KindPriceUnavailable, err, "failed to parse uniswap result")
	}

	source := fmt.Sprintf("uniswap_v3 (fee %d)", base.DefaultFee)
	return priceOut(base.Symbol, quote, price, source), true, nil
}

func priceOut(baseSymbol string, quote model.QuoteCurrency, price decimal.Decimal, source string) model.PriceOut {
	rendered := price.String()
	return model.PriceOut{
		Base:     baseSymbol,
		Quote:    quote.String(),
		Price:    rendered,
		Source:   source,
		Decimals: amount.FractionDigits(rendered),
	}
}
