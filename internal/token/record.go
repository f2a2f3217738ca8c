package token

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"priceScope/internal/model"
)

// Record describes a known token together with its pricing hooks: the
// Chainlink feeds available per quote currency and the default pool fee
// tier used for DEX quotes.
type Record struct {
	Symbol     string
	Address    common.Address
	Decimals   uint8
	Feeds      map[model.QuoteCurrency]common.Address
	DefaultFee uint32
}

// NewRecord builds a record with an uppercased symbol, no feeds, and the
// protocol-default fee tier.
func NewRecord(symbol string, address common.Address, decimals uint8) Record {
	return Record{
		Symbol:     strings.ToUpper(symbol),
		Address:    address,
		Decimals:   decimals,
		Feeds:      make(map[model.QuoteCurrency]common.Address),
		DefaultFee: model.DefaultFee,
	}
}

// WithFeed registers a Chainlink feed for the given quote currency.
func (r Record) WithFeed(quote model.QuoteCurrency, feed common.Address) Record {
	r.Feeds[quote] = feed
	return r
}

// WithFee overrides the default pool fee tier.
func (r Record) WithFee(fee uint32) Record {
	r.DefaultFee = fee
	return r
}

// Feed returns the feed address for a quote currency, if one is known.
func (r Record) Feed(quote model.QuoteCurrency) (common.Address, bool) {
	feed, ok := r.Feeds[quote]
	return feed, ok
}

func (r Record) clone() Record {
	feeds := make(map[model.QuoteCurrency]common.Address, len(r.Feeds))
	for quote, feed := range r.Feeds {
		feeds[quote] = feed
	}
	r.Feeds = feeds
	return r
}
