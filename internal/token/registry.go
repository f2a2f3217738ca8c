package token

import (
	"context"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"priceScope/internal/erc20"
	"priceScope/internal/model"
)

// Registry is the in-memory token catalog. Records are reachable both by
// symbol and by address; the two indices are updated together under one
// write lock so they can never diverge.
type Registry struct {
	mu        sync.RWMutex
	bySymbol  map[string]Record
	byAddress map[common.Address]Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bySymbol:  make(map[string]Record),
		byAddress: make(map[common.Address]Record),
	}
}

// NewRegistryWithDefaults creates a registry populated from the embedded
// defaults table. A malformed defaults entry aborts startup.
func NewRegistryWithDefaults() (*Registry, error) {
	registry := NewRegistry()
	entries, err := loadDefaults(defaultsJSON)
	if err != nil {
		return nil, err
	}
	for _, record := range entries {
		registry.Add(record)
	}
	return registry, nil
}

// Add inserts a record into both indices.
func (r *Registry) Add(record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(record)
}

func (r *Registry) add(record Record) {
	r.bySymbol[record.Symbol] = record
	r.byAddress[record.Address] = record
}

// Ensure enriches the registry with an unknown token by reading its on-chain
// metadata. The external reads happen outside the lock; only the insert is
// exclusive, so a slow RPC never blocks concurrent lookups.
func (r *Registry) Ensure(ctx context.Context, caller erc20.Caller, address common.Address) error {
	r.mu.RLock()
	_, known := r.byAddress[address]
	r.mu.RUnlock()
	if known {
		return nil
	}

	meta, err := erc20.FetchMetadata(ctx, caller, address)
	if err != nil {
		return err
	}
	symbol := meta.Symbol
	if symbol == "" {
		symbol = "TOKEN_" + strings.ToLower(address.Hex())
	}
	record := NewRecord(symbol, address, meta.Decimals)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.byAddress[address]; known {
		return nil
	}
	r.add(record)
	return nil
}

// Snapshot returns a deep copy of the registry usable without locking.
// Enrichment running concurrently never mutates an already-taken snapshot.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		bySymbol:  make(map[string]Record, len(r.bySymbol)),
		byAddress: make(map[common.Address]Record, len(r.byAddress)),
	}
	for symbol, record := range r.bySymbol {
		snap.bySymbol[symbol] = record.clone()
	}
	for address, record := range r.byAddress {
		snap.byAddress[address] = record.clone()
	}
	return snap
}

// Snapshot is a point-in-time copy of the registry.
type Snapshot struct {
	bySymbol  map[string]Record
	byAddress map[common.Address]Record
}

// ResolveSymbol maps a symbol to its address, case-insensitively.
func (s Snapshot) ResolveSymbol(symbol string) (common.Address, bool) {
	record, ok := s.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return common.Address{}, false
	}
	return record.Address, true
}

// InfoByAddress looks up a record by address.
func (s Snapshot) InfoByAddress(address common.Address) (Record, bool) {
	record, ok := s.byAddress[address]
	return record, ok
}

// InfoBySymbol looks up a record by symbol, case-insensitively.
func (s Snapshot) InfoBySymbol(symbol string) (Record, bool) {
	record, ok := s.bySymbol[strings.ToUpper(symbol)]
	return record, ok
}

// QuoteToken maps a quote currency to its reference token: the USD-pegged
// stablecoin for USD, the wrapped native asset for ETH.
func (s Snapshot) QuoteToken(quote model.QuoteCurrency) (Record, bool) {
	switch quote {
	case model.QuoteUSD:
		return s.InfoBySymbol("USDC")
	case model.QuoteETH:
		return s.InfoBySymbol("WETH")
	default:
		return Record{}, false
	}
}
