package signing

import (
	"context"

	"github.com/pkg/errors"
	"github/meridian/algo-wallet/internal/account"
	"github/meridian/algo-wallet/internal/hdwallet"
)

// HDSigner signs with keys derived from HD wallet seeds.
type HDSigner struct {
	signer *hdwallet.Signer
}

// NewHDSigner creates a signer over the given HD wallet signer.
func NewHDSigner(signer *hdwallet.Signer) *HDSigner {
	return &HDSigner{signer: signer}
}

// SignTransaction derives the identity's key and signs the unsigned bytes.
// The identity carries the derivation detail of the signing account, which
// for a rekeyed sender is the authorizing account's detail.
func (s *HDSigner) SignTransaction(ctx context.Context, raw []byte, identity account.SignerIdentity) ([]byte, error) {
	if identity.HDWallet == nil {
		return nil, errors.New("identity has no hd wallet detail")
	}

	sig, err := s.signer.SignTransaction(ctx, raw, *identity.HDWallet)
	if err != nil {
		return nil, err
	}

	return encodeEnvelope(raw, sig, identity)
}
