package model

// BalanceOut reports a resolved balance in raw and formatted form.
type BalanceOut struct {
	Symbol    string `json:"symbol"`
	Raw       string `json:"raw"`
	Decimals  uint32 `json:"decimals"`
	Formatted string `json:"formatted"`
}

// PriceOut reports a resolved price and the source that produced it.
type PriceOut struct {
	Base     string `json:"base"`
	Quote    string `json:"quote"`
	Price    string `json:"price"`
	Source   string `json:"source"`
	Decimals uint32 `json:"decimals"`
}

// SwapSimOut reports a simulated swap: quoted amounts, the slippage-bounded
// minimum, the gas estimate, and the calldata an external builder submits.
type SwapSimOut struct {
	AmountInWei       string `json:"amount_in_wei"`
	AmountOutWei      string `json:"amount_out_wei"`
	AmountOutMinWei   string `json:"amount_out_min_wei"`
	AmountOutEstimate string `json:"amount_out_estimate"`
	AmountOutMin      string `json:"amount_out_min"`
	GasEstimate       string `json:"gas_estimate"`
	CalldataHex       string `json:"calldata_hex"`
	Router            string `json:"router"`
}
