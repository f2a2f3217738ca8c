package swap

import (
	"context"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"priceScope/internal/amount"
	"priceScope/internal/apperr"
	"priceScope/internal/erc20"
	"priceScope/internal/model"
	"priceScope/internal/uniswap"
)

const (
	// maxSlippageBps is 100%: a larger tolerance would allow a zero output.
	maxSlippageBps = 10000

	// deadlineWindow bounds how long the built calldata stays valid. The
	// window is fixed rather than caller-supplied so stale calldata cannot
	// be replayed far in the future.
	deadlineWindow = 15 * time.Minute
)

// Backend provides the chain reads a simulation needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Config carries the DEX contract addresses simulations target.
type Config struct {
	Quoter common.Address
	Router common.Address
}

// Request is a fully resolved simulation request: token references have
// already been mapped to addresses and the sender is the signer's address.
type Request struct {
	FromToken      common.Address
	ToToken        common.Address
	AmountInWei    string
	SlippageBps    uint32
	Fee            uint32
	Recipient      string
	SqrtPriceLimit string
	Sender         common.Address
}

// Simulate quotes a single-hop swap, applies the slippage bound, builds the
// router calldata from the exact same parameters, and runs a read-only
// execution to surface reverts before anything is broadcast.
func Simulate(ctx context.Context, backend Backend, cfg Config, req Request) (model.SwapSimOut, error) {
	if req.SlippageBps > maxSlippageBps {
		return model.SwapSimOut{}, apperr.New(apperr.KindSwapUnavailable, "slippage cannot exceed 100%% (%d bps)", maxSlippageBps)
	}

	amountIn, err := amount.ParseUint(req.AmountInWei)
	if err != nil {
		return model.SwapSimOut{}, err
	}
	if amountIn.Sign() == 0 {
		return model.SwapSimOut{}, apperr.New(apperr.KindSwapUnavailable, "amount_in_wei must be greater than zero")
	}

	sqrtPriceLimit := big.NewInt(0)
	if req.SqrtPriceLimit != "" {
		if sqrtPriceLimit, err = amount.ParseUint(req.SqrtPriceLimit); err != nil {
			return model.SwapSimOut{}, err
		}
	}

	toMeta, err := erc20.FetchMetadata(ctx, backend, req.ToToken)
	if err != nil {
		return model.SwapSimOut{}, err
	}

	quote, err := uniswap.QuoteExactInputSingle(ctx, backend, cfg.Quoter, uniswap.QuoteParams{
		TokenIn:           req.FromToken,
		TokenOut:          req.ToToken,
		AmountIn:          amountIn,
		Fee:               req.Fee,
		SqrtPriceLimitX96: sqrtPriceLimit,
	})
	if err != nil {
		return model.SwapSimOut{}, apperr.Wrap(apperr.KindSwapUnavailable, err, "uniswap quoter call failed")
	}
	if quote.AmountOut.Sign() == 0 {
		return model.SwapSimOut{}, apperr.New(apperr.KindSwapUnavailable, "quote returned zero output amount")
	}

	amountOutMin := ApplySlippage(quote.AmountOut, req.SlippageBps)

	recipient := req.Sender
	if req.Recipient != "" && common.IsHexAddress(req.Recipient) {
		recipient = common.HexToAddress(req.Recipient)
	}

	deadline := big.NewInt(time.Now().Add(deadlineWindow).Unix())
	calldata, err := uniswap.EncodeExactInputSingle(uniswap.ExactInputSingleParams{
		TokenIn:           req.FromToken,
		TokenOut:          req.ToToken,
		Fee:               req.Fee,
		Recipient:         recipient,
		Deadline:          deadline,
		AmountIn:          amountIn,
		AmountOutMinimum:  amountOutMin,
		SqrtPriceLimitX96: sqrtPriceLimit,
	})
	if err != nil {
		return model.SwapSimOut{}, apperr.Wrap(apperr.KindInternal, err, "failed to build swap calldata")
	}

	msg := ethereum.CallMsg{
		From:  req.Sender,
		To:    &cfg.Router,
		Data:  calldata,
		Value: big.NewInt(0),
	}
	gasEstimate, err := backend.EstimateGas(ctx, msg)
	if err != nil {
		return model.SwapSimOut{}, apperr.Wrap(apperr.KindSwapUnavailable, err, "gas estimation failed")
	}
	if _, err := backend.CallContract(ctx, msg, nil); err != nil {
		return model.SwapSimOut{}, apperr.Wrap(apperr.KindSwapUnavailable, err, "eth_call simulation failed")
	}

	return model.SwapSimOut{
		AmountInWei:       amountIn.String(),
		AmountOutWei:      quote.AmountOut.String(),
		AmountOutMinWei:   amountOutMin.String(),
		AmountOutEstimate: amount.FormatUnits(quote.AmountOut, toMeta.Decimals),
		AmountOutMin:      amount.FormatUnits(amountOutMin, toMeta.Decimals),
		GasEstimate:       new(big.Int).SetUint64(gasEstimate).String(),
		CalldataHex:       "0x" + hex.EncodeToString(calldata),
		Router:            cfg.Router.Hex(),
	}, nil
}

// ApplySlippage computes the minimum acceptable output for a slippage
// tolerance in basis points. Integer arithmetic, truncating: the bound is
// never rounded up, so the guaranteed minimum is never overstated.
func ApplySlippage(amountOut *big.Int, slippageBps uint32) *big.Int {
	numerator := new(big.Int).Mul(amountOut, big.NewInt(int64(maxSlippageBps-slippageBps)))
	return numerator.Div(numerator, big.NewInt(maxSlippageBps))
}
