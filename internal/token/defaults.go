package token

import (
	_ "embed"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"priceScope/internal/apperr"
	"priceScope/internal/model"
)

//go:embed defaults.json
var defaultsJSON []byte

type defaultsEntry struct {
	Symbol         string            `json:"symbol"`
	Address        string            `json:"address"`
	Decimals       uint8             `json:"decimals"`
	ChainlinkFeeds map[string]string `json:"chainlink_feeds"`
	DefaultFee     uint32            `json:"default_fee"`
}

func loadDefaults(raw []byte) ([]Record, error) {
	var entries []defaultsEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, err, "parse token defaults")
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if !common.IsHexAddress(entry.Address) {
			return nil, apperr.New(apperr.KindConfig, "invalid token address for %s: %s", entry.Symbol, entry.Address)
		}
		record := NewRecord(entry.Symbol, common.HexToAddress(entry.Address), entry.Decimals)

		for quoteStr, feedStr := range entry.ChainlinkFeeds {
			quote, err := model.ParseQuoteCurrency(quoteStr)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindConfig, err, "invalid feed currency for %s", entry.Symbol)
			}
			if !common.IsHexAddress(feedStr) {
				return nil, apperr.New(apperr.KindConfig, "invalid feed address for %s/%s: %s", entry.Symbol, quote, feedStr)
			}
			record = record.WithFeed(quote, common.HexToAddress(feedStr))
		}

		if entry.DefaultFee != 0 {
			record = record.WithFee(entry.DefaultFee)
		}
		records = append(records, record)
	}
	return records, nil
}
