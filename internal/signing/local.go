package signing

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github/meridian/algo-wallet/internal/account"
	"github/meridian/algo-wallet/internal/keystore"
	"github/meridian/algo-wallet/internal/txn"
)

// Keyring resolves in-process private keys by address.
type Keyring interface {
	// PrivateKey returns the signing key for the address, or
	// ErrKeyUnavailable.
	PrivateKey(ctx context.Context, address string) (ed25519.PrivateKey, error)
}

// KeystoreKeyring is a Keyring over the encrypted keystore. The password is
// supplied once at unlock (construction) time.
type KeystoreKeyring struct {
	keystoreService keystore.Service
	password        string
}

// NewKeystoreKeyring creates a keyring reading from the given keystore.
func NewKeystoreKeyring(keystoreService keystore.Service, password string) *KeystoreKeyring {
	return &KeystoreKeyring{
		keystoreService: keystoreService,
		password:        password,
	}
}

// PrivateKey implements Keyring.
func (k *KeystoreKeyring) PrivateKey(ctx context.Context, address string) (ed25519.PrivateKey, error) {
	secret, err := k.keystoreService.GetSecret(ctx, address, k.password)
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return nil, errors.Wrap(ErrKeyUnavailable, address)
		}
		return nil, errors.Wrap(err, "failed to load signing key")
	}

	if len(secret) != ed25519.SeedSize {
		return nil, errors.Wrapf(ErrKeyUnavailable, "stored secret for %s has %d bytes", address, len(secret))
	}

	return ed25519.NewKeyFromSeed(secret), nil
}

// LocalSigner signs with in-process key material.
type LocalSigner struct {
	keyring Keyring
}

// NewLocalSigner creates a signer over the given keyring.
func NewLocalSigner(keyring Keyring) *LocalSigner {
	return &LocalSigner{keyring: keyring}
}

// SignTransaction signs the unsigned bytes with the identity's signer key
// and wraps them into the signed envelope.
func (s *LocalSigner) SignTransaction(ctx context.Context, raw []byte, identity account.SignerIdentity) ([]byte, error) {
	key, err := s.keyring.PrivateKey(ctx, identity.Signer)
	if err != nil {
		return nil, err
	}

	// Clear key material after use
	defer func() {
		for i := range key {
			key[i] = 0
		}
	}()

	sig := ed25519.Sign(key, txn.BytesToSign(raw))

	return encodeEnvelope(raw, sig, identity)
}

// encodeEnvelope wraps a signature into the signed transaction envelope,
// recording the authorizing address when the signer differs from the sender.
func encodeEnvelope(raw []byte, sig []byte, identity account.SignerIdentity) ([]byte, error) {
	sender, err := txn.ParseAddress(identity.Sender)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid sender address %q", identity.Sender)
	}

	signer := sender
	if identity.Signer != identity.Sender {
		signer, err = txn.ParseAddress(identity.Signer)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid signer address %q", identity.Signer)
		}
	}

	return txn.EncodeSigned(raw, sig, sender, signer)
}
