package hdwallet

import (
	"context"
	"crypto/ed25519"

	"github/meridian/algo-wallet/internal/account"
	"github/meridian/algo-wallet/internal/txn"
	"github/meridian/algo-wallet/internal/util"
)

// Signer signs transactions with keys derived from HD wallet seeds.
type Signer struct {
	manager *Manager
}

// NewSigner creates a signer over the given seed manager.
func NewSigner(manager *Manager) *Signer {
	return &Signer{manager: manager}
}

// SignTransaction derives the key for the given HD detail and signs the
// unsigned transaction bytes. The caller supplies the detail of the
// *signing* account; for a rekeyed sender that is the authorizing account's
// detail, not the sender's.
func (s *Signer) SignTransaction(ctx context.Context, raw []byte, detail account.HDWalletDetail) ([]byte, error) {
	log := util.LogFromContext(ctx)

	seed, err := s.manager.Seed(detail.WalletID)
	if err != nil {
		return nil, err
	}

	key, err := DeriveKey(seed, detail)
	if err != nil {
		log.Error().Err(err).Str("wallet_id", detail.WalletID).Msg("Failed to derive signing key")
		return nil, err
	}

	// Clear key material after use
	defer func() {
		for i := range key {
			key[i] = 0
		}
		for i := range seed {
			seed[i] = 0
		}
	}()

	return ed25519.Sign(key, txn.BytesToSign(raw)), nil
}
