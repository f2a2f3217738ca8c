package price

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"priceScope/internal/apperr"
)

const aggregatorABIJSON = `[
  {
    "inputs": [],
    "name": "latestRoundData",
    "outputs": [
      {"internalType": "uint80", "name": "roundId", "type": "uint80"},
      {"internalType": "int256", "name": "answer", "type": "int256"},
      {"internalType": "uint256", "name": "startedAt", "type": "uint256"},
      {"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
      {"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "decimals",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	aggregatorABI     abi.ABI
	aggregatorABIOnce sync.Once
	aggregatorABIErr  error
)

// AggregatorABI returns the parsed Chainlink aggregator ABI.
func AggregatorABI() (abi.ABI, error) {
	aggregatorABIOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

// fetchChainlinkPrice reads a feed's latest round and renders the answer at
// the feed's own decimal precision. A non-positive answer is treated as an
// invalid reading, never clamped.
func fetchChainlinkPrice(ctx context.Context, caller Caller, feed common.Address) (decimal.Decimal, error) {
	parsed, err := AggregatorABI()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse aggregator abi: %w", err)
	}

	values, err := callFeed(ctx, caller, feed, parsed, "decimals")
	if err != nil {
		return decimal.Decimal{}, apperr.Wrap(apperr.KindPriceUnavailable, err, "failed to read feed decimals for %s", feed.Hex())
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return decimal.Decimal{}, apperr.New(apperr.KindPriceUnavailable, "unexpected feed decimals type %T", values[0])
	}

	values, err = callFeed(ctx, caller, feed, parsed, "latestRoundData")
	if err != nil {
		return decimal.Decimal{}, apperr.Wrap(apperr.KindPriceUnavailable, err, "failed to read latest round for %s", feed.Hex())
	}
	answer, ok := values[1].(*big.Int)
	if !ok {
		return decimal.Decimal{}, apperr.New(apperr.KindPriceUnavailable, "unexpected feed answer type %T", values[1])
	}
	if answer.Sign() <= 0 {
		return decimal.Decimal{}, apperr.New(apperr.KindPriceUnavailable, "chainlink feed %s returned non-positive price", feed.Hex())
	}

	return decimal.NewFromBigInt(answer, -int32(decimals)), nil
}

func callFeed(ctx context.Context, caller Caller, feed common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &feed, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
