package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"priceScope/internal/apperr"
	"priceScope/internal/model"
	"priceScope/internal/price"
	"priceScope/internal/storage"
	"priceScope/internal/swap"
	"priceScope/internal/token"
	"priceScope/internal/wallet"
)

var (
	holderAddr = common.HexToAddress("0x0000000000000000000000000000000000000d01")
	tokenAddr  = common.HexToAddress("0x0000000000000000000000000000000000000d02")
	usdFeed    = common.HexToAddress("0x0000000000000000000000000000000000000d03")
	quoterAddr = common.HexToAddress("0x0000000000000000000000000000000000000901")
	routerAddr = common.HexToAddress("0x0000000000000000000000000000000000000902")
)

type fakeBackend struct {
	responses map[string][]byte
	balances  map[common.Address]*big.Int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses: make(map[string][]byte),
		balances:  make(map[common.Address]*big.Int),
	}
}

func (f *fakeBackend) NativeBalanceAt(_ context.Context, address common.Address) (*big.Int, error) {
	balance, ok := f.balances[address]
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	key := strings.ToLower(msg.To.Hex()) + ":" + hex.EncodeToString(msg.Data[:4])
	resp, ok := f.responses[key]
	if !ok {
		return nil, fmt.Errorf("unexpected call %s", key)
	}
	return resp, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeBackend) stub(t *testing.T, to common.Address, selector string, typeName string, value interface{}) {
	t.Helper()
	typ, err := abi.NewType(typeName, "", nil)
	if err != nil {
		t.Fatalf("new type: %v", err)
	}
	data, err := abi.Arguments{{Type: typ}}.Pack(value)
	if err != nil {
		t.Fatalf("pack %s: %v", typeName, err)
	}
	f.responses[strings.ToLower(to.Hex())+":"+selector] = data
}

func (f *fakeBackend) stubFeed(t *testing.T, feed common.Address, decimals uint8, answer *big.Int) {
	t.Helper()
	parsed, err := price.AggregatorABI()
	if err != nil {
		t.Fatalf("parse aggregator abi: %v", err)
	}
	decData, err := parsed.Methods["decimals"].Outputs.Pack(decimals)
	if err != nil {
		t.Fatalf("pack decimals: %v", err)
	}
	roundData, err := parsed.Methods["latestRoundData"].Outputs.Pack(
		big.NewInt(1), answer, big.NewInt(0), big.NewInt(0), big.NewInt(1),
	)
	if err != nil {
		t.Fatalf("pack latestRoundData: %v", err)
	}
	prefix := strings.ToLower(feed.Hex()) + ":"
	f.responses[prefix+hex.EncodeToString(parsed.Methods["decimals"].ID)] = decData
	f.responses[prefix+hex.EncodeToString(parsed.Methods["latestRoundData"].ID)] = roundData
}

type collectingSink struct {
	records []storage.AuditRecord
}

func (c *collectingSink) PutAudit(_ context.Context, record storage.AuditRecord) error {
	c.records = append(c.records, record)
	return nil
}

func newTestService(t *testing.T, backend *fakeBackend, signer *wallet.Wallet, sink storage.AuditSink) (*Service, *token.Registry) {
	t.Helper()
	registry := token.NewRegistry()
	registry.Add(token.NewRecord("FOO", tokenAddr, 6).WithFeed(model.QuoteUSD, usdFeed))
	resolver := price.NewResolver(backend, quoterAddr, nil)
	cfg := Config{
		Swap:         swap.Config{Quoter: quoterAddr, Router: routerAddr},
		NativeSymbol: "ETH",
	}
	return New(cfg, backend, registry, signer, resolver, sink, nil), registry
}

func TestGetBalanceNative(t *testing.T) {
	backend := newFakeBackend()
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)
	backend.balances[holderAddr] = raw

	svc, _ := newTestService(t, backend, nil, nil)
	out, err := svc.GetBalance(context.Background(), model.BalanceParams{Address: holderAddr.Hex()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Symbol != "ETH" {
		t.Fatalf("symbol mismatch: %q", out.Symbol)
	}
	if out.Raw != "1500000000000000000" || out.Formatted != "1.5" {
		t.Fatalf("amounts mismatch: %+v", out)
	}
	if out.Decimals != 18 {
		t.Fatalf("decimals mismatch: %d", out.Decimals)
	}
}

func TestGetBalanceInvalidAddress(t *testing.T) {
	svc, _ := newTestService(t, newFakeBackend(), nil, nil)
	_, err := svc.GetBalance(context.Background(), model.BalanceParams{Address: "not-an-address"})
	if err == nil {
		t.Fatalf("expected error for malformed address")
	}
	if !apperr.Is(err, apperr.KindInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestGetBalanceTokenBySymbol(t *testing.T) {
	backend := newFakeBackend()
	backend.stub(t, tokenAddr, "70a08231", "uint256", big.NewInt(2500000))

	svc, _ := newTestService(t, backend, nil, nil)
	out, err := svc.GetBalance(context.Background(), model.BalanceParams{
		Address: holderAddr.Hex(),
		Token:   "foo",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Symbol != "FOO" || out.Formatted != "2.5" || out.Decimals != 6 {
		t.Fatalf("output mismatch: %+v", out)
	}
}

func TestGetBalanceUnknownSymbol(t *testing.T) {
	svc, _ := newTestService(t, newFakeBackend(), nil, nil)
	_, err := svc.GetBalance(context.Background(), model.BalanceParams{
		Address: holderAddr.Hex(),
		Token:   "NOPE",
	})
	if err == nil {
		t.Fatalf("expected error for unknown symbol")
	}
	if !apperr.Is(err, apperr.KindInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if !strings.Contains(err.Error(), "NOPE") {
		t.Fatalf("message should name the input: %v", err)
	}
}

func TestGetBalanceEnrichesUnknownTokenAddress(t *testing.T) {
	backend := newFakeBackend()
	other := common.HexToAddress("0x0000000000000000000000000000000000000d09")
	backend.stub(t, other, "313ce567", "uint8", uint8(9))
	backend.stub(t, other, "95d89b41", "string", "bar")
	backend.stub(t, other, "70a08231", "uint256", big.NewInt(3000000000))

	svc, registry := newTestService(t, backend, nil, nil)
	out, err := svc.GetBalance(context.Background(), model.BalanceParams{
		Address: holderAddr.Hex(),
		Token:   other.Hex(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Symbol != "BAR" || out.Formatted != "3" {
		t.Fatalf("output mismatch: %+v", out)
	}
	if _, ok := registry.Snapshot().ResolveSymbol("BAR"); !ok {
		t.Fatalf("token should be registered after enrichment")
	}
}

func TestGetTokenPriceDefaultsToUSD(t *testing.T) {
	backend := newFakeBackend()
	backend.stubFeed(t, usdFeed, 8, big.NewInt(250000000))

	svc, _ := newTestService(t, backend, nil, nil)
	out, err := svc.GetTokenPrice(context.Background(), model.PriceParams{Base: "FOO"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Quote != "USD" {
		t.Fatalf("quote should default to USD: %q", out.Quote)
	}
	if out.Price != "2.5" || out.Source != "chainlink" {
		t.Fatalf("output mismatch: %+v", out)
	}
}

func TestSwapTokensRequiresWallet(t *testing.T) {
	svc, _ := newTestService(t, newFakeBackend(), nil, nil)
	_, err := svc.SwapTokens(context.Background(), model.SwapParams{
		FromToken:   "FOO",
		ToToken:     tokenAddr.Hex(),
		AmountInWei: "1000000",
	})
	if err == nil {
		t.Fatalf("expected error without wallet")
	}
	if !apperr.Is(err, apperr.KindWallet) {
		t.Fatalf("expected wallet error, got %v", err)
	}
}

func TestAuditTrail(t *testing.T) {
	backend := newFakeBackend()
	backend.balances[holderAddr] = big.NewInt(0)
	sink := &collectingSink{}

	svc, _ := newTestService(t, backend, nil, sink)
	if _, err := svc.GetBalance(context.Background(), model.BalanceParams{Address: holderAddr.Hex()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetBalance(context.Background(), model.BalanceParams{Address: "bad"}); err == nil {
		t.Fatalf("expected error for malformed address")
	}

	if len(sink.records) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(sink.records))
	}
	if !sink.records[0].OK || sink.records[0].Method != "get_balance" {
		t.Fatalf("first record mismatch: %+v", sink.records[0])
	}
	if sink.records[1].OK || sink.records[1].Error == "" {
		t.Fatalf("second record should capture the failure: %+v", sink.records[1])
	}
	if sink.records[1].RecordedAt.IsZero() {
		t.Fatalf("recorded_at should be set")
	}
}
