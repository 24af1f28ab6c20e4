package account

import (
	"context"

	"github.com/pkg/errors"
)

// SignerKind selects the signing backend for an account.
type SignerKind int

const (
	// SignerNone means no backend can produce a signature for the
	// account (key absent, or the authorizing account is unknown).
	SignerNone SignerKind = iota
	// SignerLocal signs with an in-process stored key.
	SignerLocal
	// SignerHDWallet derives the key from a wallet seed before signing.
	SignerHDWallet
	// SignerHardware signs on a Ledger device over Bluetooth.
	SignerHardware
)

// String returns the lowercase backend name.
func (k SignerKind) String() string {
	switch k {
	case SignerLocal:
		return "local"
	case SignerHDWallet:
		return "hd_wallet"
	case SignerHardware:
		return "hardware"
	default:
		return "none"
	}
}

// SignerIdentity is the resolved answer to "who signs for this sender, and
// how". For a rekeyed sender the Signer differs from the Sender.
type SignerIdentity struct {
	// Sender is the transaction's nominal sender address.
	Sender string
	// Signer is the address whose key produces the signature: the
	// authorizing account when rekeyed, the sender itself otherwise.
	Signer string
	Kind   SignerKind

	// Ledger and HDWallet carry the signing account's backend detail
	// when Kind requires it.
	Ledger   *LedgerDetail
	HDWallet *HDWalletDetail
}

// ResolveSignerIdentity selects the signing backend for an address,
// following the rekey authority chain: a rekeyed account is signed with the
// authorizing account's backend, never its own. Dispatch order matches the
// account metadata precedence: hardware first, then HD derivation, then a
// local key.
func ResolveSignerIdentity(ctx context.Context, store Store, address string) (SignerIdentity, error) {
	acc, err := store.Get(ctx, address)
	if err != nil {
		return SignerIdentity{}, errors.Wrapf(err, "failed to resolve account %q", address)
	}

	signer := acc
	if acc.IsRekeyed() {
		auth, err := store.Get(ctx, acc.AuthAddress)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// The authorizing account is not ours; nothing can
				// sign for this sender.
				return SignerIdentity{
					Sender: acc.Address,
					Signer: acc.AuthAddress,
					Kind:   SignerNone,
				}, nil
			}

			return SignerIdentity{}, errors.Wrapf(err, "failed to resolve authorizing account %q", acc.AuthAddress)
		}
		signer = auth
	}

	identity := SignerIdentity{
		Sender: acc.Address,
		Signer: signer.Address,
	}

	switch {
	case signer.Ledger != nil:
		identity.Kind = SignerHardware
		identity.Ledger = signer.Ledger
	case signer.HDWallet != nil:
		identity.Kind = SignerHDWallet
		identity.HDWallet = signer.HDWallet
	default:
		identity.Kind = SignerLocal
	}

	return identity, nil
}
