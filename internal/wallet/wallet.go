package wallet

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"priceScope/internal/apperr"
)

// Wallet holds the signing key swaps are simulated for. A nil wallet is a
// valid state: read-only operations keep working and swap requests fail
// with a wallet error.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID uint64
}

// FromHexKey builds a wallet from a hex-encoded private key, with or
// without a 0x prefix. An empty key yields a nil wallet, not an error.
func FromHexKey(hexKey string, chainID uint64) (*Wallet, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindWallet, err, "invalid private key")
	}
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// Address returns the address derived from the key.
func (w *Wallet) Address() common.Address {
	return w.address
}

// ChainID returns the chain the wallet is configured for.
func (w *Wallet) ChainID() uint64 {
	return w.chainID
}
