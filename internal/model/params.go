package model

// BalanceParams requests a native or ERC-20 balance lookup.
type BalanceParams struct {
	Address string `json:"address"`
	Token   string `json:"token,omitempty"`
}

// PriceParams requests a price lookup for a base token.
type PriceParams struct {
	Base  string        `json:"base"`
	Quote QuoteCurrency `json:"quote,omitempty"`
}

const (
	// DefaultSlippageBps is applied when a swap request omits slippage (1%).
	DefaultSlippageBps uint32 = 100
	// DefaultFee is the 0.3% pool fee tier.
	DefaultFee uint32 = 3000
)

// SwapParams requests a swap simulation. Optional fields keep pointer types
// so an explicit zero can be told apart from an omitted value.
type SwapParams struct {
	FromToken      string  `json:"from_token"`
	ToToken        string  `json:"to_token"`
	AmountInWei    string  `json:"amount_in_wei"`
	SlippageBps    *uint32 `json:"slippage_bps,omitempty"`
	Fee            *uint32 `json:"fee,omitempty"`
	Recipient      string  `json:"recipient,omitempty"`
	SqrtPriceLimit string  `json:"sqrt_price_limit,omitempty"`
}

// SlippageOrDefault returns the requested slippage tolerance in basis points.
func (p SwapParams) SlippageOrDefault() uint32 {
	if p.SlippageBps == nil {
		return DefaultSlippageBps
	}
	return *p.SlippageBps
}

// FeeOrDefault returns the requested pool fee tier.
func (p SwapParams) FeeOrDefault() uint32 {
	if p.Fee == nil {
		return DefaultFee
	}
	return *p.Fee
}
