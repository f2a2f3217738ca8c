package erc20

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"priceScope/internal/apperr"
)

// FallbackSymbol labels tokens whose symbol read failed or reverted.
const FallbackSymbol = "ERC20"

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Metadata captures the ERC-20 fields token records need.
type Metadata struct {
	Symbol   string
	Decimals uint8
}

// FetchMetadata reads decimals and symbol from a token contract. A failed
// decimals read fails the call; a failed symbol read falls back to
// FallbackSymbol after trying the bytes32 variant some older tokens use.
func FetchMetadata(ctx context.Context, caller Caller, token common.Address) (Metadata, error) {
	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return Metadata{}, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := call(ctx, caller, token, stringABI, "decimals")
	if err != nil {
		return Metadata{}, apperr.Wrap(apperr.KindExternalRead, err, "failed to fetch ERC-20 decimals for %s", token.Hex())
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return Metadata{}, apperr.Wrap(apperr.KindExternalRead, err, "decode ERC-20 decimals for %s", token.Hex())
	}

	meta := Metadata{Symbol: FallbackSymbol, Decimals: decimals}
	if values, err := call(ctx, caller, token, stringABI, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok && symbol != "" {
			meta.Symbol = symbol
			return meta, nil
		}
	}
	if bytes32ABI, err := erc20ABIBytes32Instance(); err == nil {
		if values, err := call(ctx, caller, token, bytes32ABI, "symbol"); err == nil {
			if symbol, ok := bytes32ToString(values[0]); ok && symbol != "" {
				meta.Symbol = symbol
			}
		}
	}
	return meta, nil
}

// FetchBalanceOf reads the token balance held by owner.
func FetchBalanceOf(ctx context.Context, caller Caller, token, owner common.Address) (*big.Int, error) {
	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := call(ctx, caller, token, stringABI, "balanceOf", owner)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalRead, err, "failed to fetch token balance for %s", token.Hex())
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, apperr.New(apperr.KindExternalRead, "unexpected balanceOf type %T", values[0])
	}
	return new(big.Int).Set(balance), nil
}

func call(ctx context.Context, caller Caller, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &contract, Data: data}
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

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
