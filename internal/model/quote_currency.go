package model

import (
	"encoding/json"
	"strings"

	"priceScope/internal/apperr"
)

// QuoteCurrency enumerates the currencies a price can be quoted in.
type QuoteCurrency string

const (
	QuoteUSD QuoteCurrency = "USD"
	QuoteETH QuoteCurrency = "ETH"
)

// ParseQuoteCurrency normalizes a user-supplied quote currency. An empty
// input defaults to USD.
func ParseQuoteCurrency(input string) (QuoteCurrency, error) {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case "", string(QuoteUSD):
		return QuoteUSD, nil
	case string(QuoteETH):
		return QuoteETH, nil
	default:
		return "", apperr.New(apperr.KindInvalidInput, "unsupported quote currency: %s", input)
	}
}

func (q QuoteCurrency) String() string {
	return string(q)
}

func (q *QuoteCurrency) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseQuoteCurrency(raw)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
