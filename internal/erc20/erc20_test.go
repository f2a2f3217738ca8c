package erc20

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"priceScope/internal/apperr"
)

const (
	selDecimals  = "313ce567"
	selSymbol    = "95d89b41"
	selBalanceOf = "70a08231"
)

type fakeCaller struct {
	responses map[string][]byte
	errs      map[string]error
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	sel := hex.EncodeToString(msg.Data[:4])
	if err := f.errs[sel]; err != nil {
		return nil, err
	}
	resp, ok := f.responses[sel]
	if !ok {
		return nil, fmt.Errorf("unexpected call %s", sel)
	}
	return resp, nil
}

func packOutputs(t *testing.T, method string, values ...interface{}) []byte {
	t.Helper()
	parsed, err := erc20ABIStringInstance()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	data, err := parsed.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s outputs: %v", method, err)
	}
	return data
}

func TestFetchMetadata(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{
		selDecimals: packOutputs(t, "decimals", uint8(6)),
		selSymbol:   packOutputs(t, "symbol", "USDC"),
	}}

	meta, err := FetchMetadata(context.Background(), caller, common.HexToAddress("0x1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Symbol != "USDC" || meta.Decimals != 6 {
		t.Fatalf("metadata mismatch: %+v", meta)
	}
}

func TestFetchMetadataSymbolFallback(t *testing.T) {
	caller := &fakeCaller{
		responses: map[string][]byte{
			selDecimals: packOutputs(t, "decimals", uint8(18)),
		},
		errs: map[string]error{selSymbol: errors.New("execution reverted")},
	}

	meta, err := FetchMetadata(context.Background(), caller, common.HexToAddress("0x2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Symbol != FallbackSymbol {
		t.Fatalf("expected fallback symbol, got %q", meta.Symbol)
	}
	if meta.Decimals != 18 {
		t.Fatalf("decimals mismatch: %d", meta.Decimals)
	}
}

func TestFetchMetadataDecimalsFailureIsFatal(t *testing.T) {
	caller := &fakeCaller{errs: map[string]error{selDecimals: errors.New("boom")}}

	_, err := FetchMetadata(context.Background(), caller, common.HexToAddress("0x3"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !apperr.Is(err, apperr.KindExternalRead) {
		t.Fatalf("expected external read error, got %v", err)
	}
}

func TestFetchBalanceOf(t *testing.T) {
	want := new(big.Int)
	want.SetString("1500000", 10)
	caller := &fakeCaller{responses: map[string][]byte{
		selBalanceOf: packOutputs(t, "balanceOf", want),
	}}

	got, err := FetchBalanceOf(context.Background(), caller, common.HexToAddress("0x4"), common.HexToAddress("0x5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(want) != 0 {
		t.Fatalf("balance mismatch: %s", got)
	}
}
