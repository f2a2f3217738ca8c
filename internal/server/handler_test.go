package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"priceScope/internal/apperr"
	"priceScope/internal/model"
)

type stubOps struct {
	balance    model.BalanceOut
	balanceErr error
	price      model.PriceOut
	priceErr   error
	swapOut    model.SwapSimOut
	swapErr    error

	lastBalance model.BalanceParams
	lastPrice   model.PriceParams
	lastSwap    model.SwapParams
}

func (s *stubOps) GetBalance(_ context.Context, params model.BalanceParams) (model.BalanceOut, error) {
	s.lastBalance = params
	return s.balance, s.balanceErr
}

func (s *stubOps) GetTokenPrice(_ context.Context, params model.PriceParams) (model.PriceOut, error) {
	s.lastPrice = params
	return s.price, s.priceErr
}

func (s *stubOps) SwapTokens(_ context.Context, params model.SwapParams) (model.SwapSimOut, error) {
	s.lastSwap = params
	return s.swapOut, s.swapErr
}

func handle(t *testing.T, handler *Handler, raw string) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(handler.Handle(context.Background(), []byte(raw)), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestHandleGetBalance(t *testing.T) {
	ops := &stubOps{balance: model.BalanceOut{Symbol: "ETH", Raw: "1000", Decimals: 18, Formatted: "0.000000000000001"}}
	handler := NewHandler(ops, nil)

	resp := handle(t, handler,
		`{"jsonrpc":"2.0","method":"get_balance","params":{"address":"0x1","token":"WETH"},"id":7}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if string(resp.ID) != "7" {
		t.Fatalf("id mismatch: %s", resp.ID)
	}
	if ops.lastBalance.Address != "0x1" || ops.lastBalance.Token != "WETH" {
		t.Fatalf("params mismatch: %+v", ops.lastBalance)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result["symbol"] != "ETH" || result["raw"] != "1000" {
		t.Fatalf("result mismatch: %+v", result)
	}
}

func TestHandleParseError(t *testing.T) {
	handler := NewHandler(&stubOps{}, nil)
	resp := handle(t, handler, `{not json`)
	if resp.Error == nil || resp.Error.Code != codeParse {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
	if string(resp.ID) != "null" {
		t.Fatalf("id should be null: %s", resp.ID)
	}
}

func TestHandleMethodNotFound(t *testing.T) {
	handler := NewHandler(&stubOps{}, nil)
	resp := handle(t, handler, `{"jsonrpc":"2.0","method":"no_such_method","id":1}`)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestHandleInvalidVersion(t *testing.T) {
	handler := NewHandler(&stubOps{}, nil)
	resp := handle(t, handler, `{"jsonrpc":"1.0","method":"get_balance","id":1}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", resp.Error)
	}
}

func TestHandleInvalidParams(t *testing.T) {
	handler := NewHandler(&stubOps{}, nil)
	resp := handle(t, handler, `{"jsonrpc":"2.0","method":"get_balance","params":{"address":7},"id":1}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp.Error)
	}
}

func TestHandleInvalidQuoteCurrency(t *testing.T) {
	handler := NewHandler(&stubOps{}, nil)
	resp := handle(t, handler, `{"jsonrpc":"2.0","method":"get_token_price","params":{"base":"WETH","quote":"JPY"},"id":1}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params for bad quote, got %+v", resp.Error)
	}
}

func TestHandleOperationErrorCode(t *testing.T) {
	ops := &stubOps{priceErr: apperr.New(apperr.KindPriceUnavailable, "no source")}
	handler := NewHandler(ops, nil)

	resp := handle(t, handler, `{"jsonrpc":"2.0","method":"get_token_price","params":{"base":"WETH"},"id":2}`)
	if resp.Error == nil {
		t.Fatalf("expected error response")
	}
	if resp.Error.Code != -32010 {
		t.Fatalf("code mismatch: %d", resp.Error.Code)
	}
	if !strings.Contains(resp.Error.Message, "no source") {
		t.Fatalf("message mismatch: %q", resp.Error.Message)
	}
}

func TestHandleSwapDefaultsOmitted(t *testing.T) {
	ops := &stubOps{swapOut: model.SwapSimOut{AmountInWei: "1"}}
	handler := NewHandler(ops, nil)

	resp := handle(t, handler,
		`{"jsonrpc":"2.0","method":"swap_tokens","params":{"from_token":"WETH","to_token":"USDC","amount_in_wei":"1"},"id":3}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if ops.lastSwap.SlippageBps != nil || ops.lastSwap.Fee != nil {
		t.Fatalf("omitted optionals should stay nil: %+v", ops.lastSwap)
	}
	if ops.lastSwap.SlippageOrDefault() != 100 || ops.lastSwap.FeeOrDefault() != 3000 {
		t.Fatalf("defaults mismatch: %d %d", ops.lastSwap.SlippageOrDefault(), ops.lastSwap.FeeOrDefault())
	}
}

func TestServeStdio(t *testing.T) {
	handler := NewHandler(&stubOps{balance: model.BalanceOut{Symbol: "ETH"}}, nil)

	in := strings.NewReader(
		`{"jsonrpc":"2.0","method":"get_balance","params":{"address":"0x1"},"id":1}` + "\n" +
			"\n" +
			`{"jsonrpc":"2.0","method":"nope","id":2}` + "\n")
	var out bytes.Buffer

	if err := ServeStdio(context.Background(), handler, in, &out, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 response lines, got %d: %q", len(lines), out.String())
	}
	var first, second Response
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second: %v", err)
	}
	if first.Error != nil || string(first.ID) != "1" {
		t.Fatalf("first response mismatch: %+v", first)
	}
	if second.Error == nil || second.Error.Code != codeMethodNotFound {
		t.Fatalf("second response mismatch: %+v", second)
	}
}

func TestHTTPHandler(t *testing.T) {
	handler := NewHandler(&stubOps{balance: model.BalanceOut{Symbol: "ETH"}}, nil)
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Post(server.URL, "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","method":"get_balance","params":{"address":"0x1"},"id":9}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type mismatch: %q", ct)
	}
	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Error != nil || string(decoded.ID) != "9" {
		t.Fatalf("response mismatch: %+v", decoded)
	}
}

func TestHTTPHandlerRejectsGet(t *testing.T) {
	handler := NewHandler(&stubOps{}, nil)
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
}
