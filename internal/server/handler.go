package server

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"priceScope/internal/apperr"
	"priceScope/internal/model"
)

// JSON-RPC protocol errors. Operation failures map through apperr.Code.
const (
	codeParse          = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *ErrorObj       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// ErrorObj is a JSON-RPC 2.0 error object.
type ErrorObj struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Operations is the service surface the handler dispatches to.
type Operations interface {
	GetBalance(ctx context.Context, params model.BalanceParams) (model.BalanceOut, error)
	GetTokenPrice(ctx context.Context, params model.PriceParams) (model.PriceOut, error)
	SwapTokens(ctx context.Context, params model.SwapParams) (model.SwapSimOut, error)
}

// Handler dispatches JSON-RPC requests to the service. The same handler
// backs both the stdio loop and the HTTP listener.
type Handler struct {
	ops    Operations
	logger *zap.Logger
}

// NewHandler builds a handler. A nil logger defaults to a no-op.
func NewHandler(ops Operations, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ops: ops, logger: logger}
}

// Handle processes one raw JSON-RPC request and returns the marshaled
// response. Every input produces a response, including malformed ones.
func (h *Handler) Handle(ctx context.Context, raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return marshalResponse(errorResponse(nil, codeParse, "parse error: "+err.Error()))
	}
	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		return marshalResponse(errorResponse(req.ID, codeInvalidRequest, "unsupported jsonrpc version"))
	}
	return marshalResponse(h.dispatch(ctx, req))
}

func (h *Handler) dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case "get_balance":
		var params model.BalanceParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return errorResponse(req.ID, codeInvalidParams, err.Error())
		}
		out, err := h.ops.GetBalance(ctx, params)
		if err != nil {
			return h.operationError(req, err)
		}
		return resultResponse(req.ID, out)

	case "get_token_price":
		var params model.PriceParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return errorResponse(req.ID, codeInvalidParams, err.Error())
		}
		out, err := h.ops.GetTokenPrice(ctx, params)
		if err != nil {
			return h.operationError(req, err)
		}
		return resultResponse(req.ID, out)

	case "swap_tokens":
		var params model.SwapParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return errorResponse(req.ID, codeInvalidParams, err.Error())
		}
		out, err := h.ops.SwapTokens(ctx, params)
		if err != nil {
			return h.operationError(req, err)
		}
		return resultResponse(req.ID, out)

	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (h *Handler) operationError(req Request, err error) Response {
	h.logger.Warn("request failed", zap.String("method", req.Method), zap.Error(err))
	return errorResponse(req.ID, apperr.Code(err), err.Error())
}

func unmarshalParams(raw json.RawMessage, target interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

func resultResponse(id json.RawMessage, result interface{}) Response {
	return Response{JSONRPC: "2.0", Result: result, ID: normalizeID(id)}
}

func errorResponse(id json.RawMessage, code int, message string) Response {
	return Response{JSONRPC: "2.0", Error: &ErrorObj{Code: code, Message: message}, ID: normalizeID(id)}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func marshalResponse(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// The envelope only carries marshalable fields, so this is
		// unreachable in practice.
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"internal error"},"id":null}`)
	}
	return data
}
