package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const quoterV2ABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "tokenIn", "type": "address"},
          {"internalType": "address", "name": "tokenOut", "type": "address"},
          {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
          {"internalType": "uint24", "name": "fee", "type": "uint24"},
          {"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
        ],
        "internalType": "struct IQuoterV2.QuoteExactInputSingleParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "quoteExactInputSingle",
    "outputs": [
      {"internalType": "uint256", "name": "amountOut", "type": "uint256"},
      {"internalType": "uint160", "name": "sqrtPriceX96After", "type": "uint160"},
      {"internalType": "uint32", "name": "initializedTicksCrossed", "type": "uint32"},
      {"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	quoterV2ABI     abi.ABI
	quoterV2ABIOnce sync.Once
	quoterV2ABIErr  error
)

// QuoterV2ABI returns the parsed QuoterV2 ABI.
func QuoterV2ABI() (abi.ABI, error) {
	quoterV2ABIOnce.Do(func() {
		quoterV2ABI, quoterV2ABIErr = abi.JSON(strings.NewReader(quoterV2ABIJSON))
	})
	return quoterV2ABI, quoterV2ABIErr
}

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// QuoteParams describes a single-hop exact-input quote request.
type QuoteParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               uint32
	SqrtPriceLimitX96 *big.Int
}

// Quote is the decoded quoter response.
type Quote struct {
	AmountOut   *big.Int
	GasEstimate *big.Int
}

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// QuoteExactInputSingle asks the quoter what a single-hop exact-input swap
// would return, without executing it.
func QuoteExactInputSingle(ctx context.Context, caller Caller, quoter common.Address, params QuoteParams) (Quote, error) {
	parsed, err := QuoterV2ABI()
	if err != nil {
		return Quote{}, fmt.Errorf("parse quoter abi: %w", err)
	}

	limit := params.SqrtPriceLimitX96
	if limit == nil {
		limit = big.NewInt(0)
	}
	data, err := parsed.Pack("quoteExactInputSingle", quoteExactInputSingleParams{
		TokenIn:           params.TokenIn,
		TokenOut:          params.TokenOut,
		AmountIn:          params.AmountIn,
		Fee:               new(big.Int).SetUint64(uint64(params.Fee)),
		SqrtPriceLimitX96: limit,
	})
	if err != nil {
		return Quote{}, fmt.Errorf("pack quoteExactInputSingle: %w", err)
	}

	msg := ethereum.CallMsg{To: &quoter, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("call quoteExactInputSingle: %w", err)
	}

	values, err := parsed.Unpack("quoteExactInputSingle", resp)
	if err != nil {
		return Quote{}, fmt.Errorf("unpack quoteExactInputSingle: %w", err)
	}
	amountOut, ok := values[0].(*big.Int)
	if !ok {
		return Quote{}, fmt.Errorf("unexpected amountOut type %T", values[0])
	}
	gasEstimate, ok := values[3].(*big.Int)
	if !ok {
		return Quote{}, fmt.Errorf("unexpected gasEstimate type %T", values[3])
	}
	return Quote{
		AmountOut:   new(big.Int).Set(amountOut),
		GasEstimate: new(big.Int).Set(gasEstimate),
	}, nil
}
