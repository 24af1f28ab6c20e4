package hdwallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"

	"github.com/pkg/errors"
	"github/meridian/algo-wallet/internal/account"
	"github/meridian/algo-wallet/internal/txn"
)

// ErrDerivationFailed indicates the key derivation could not complete.
var ErrDerivationFailed = errors.New("hd key derivation failed")

const (
	// Purpose and coin type of the derivation path, per BIP44:
	// m/44'/283'/account'/change'/index'. 283 is the registered ALGO coin
	// type.
	purposeBIP44 = 44
	coinTypeALGO = 283

	// hardenedOffset marks a path segment as hardened. Ed25519 derivation
	// supports hardened segments only.
	hardenedOffset = 0x80000000

	masterKeySalt = "ed25519 seed"
)

// DeriveKey derives the ed25519 signing key for an HD account detail from a
// wallet seed, using hardened-only HMAC-SHA512 chaining (SLIP-0010).
func DeriveKey(seed []byte, detail account.HDWalletDetail) (ed25519.PrivateKey, error) {
	if len(seed) == 0 {
		return nil, errors.Wrap(ErrDerivationFailed, "empty seed")
	}

	key, chainCode := masterKey(seed)

	path := []uint32{
		purposeBIP44 | hardenedOffset,
		coinTypeALGO | hardenedOffset,
		detail.Account | hardenedOffset,
		detail.Change | hardenedOffset,
		detail.KeyIndex | hardenedOffset,
	}

	for _, segment := range path {
		key, chainCode = childKey(key, chainCode, segment)
	}

	return ed25519.NewKeyFromSeed(key), nil
}

// masterKey derives the root key and chain code from the wallet seed.
func masterKey(seed []byte) ([]byte, []byte) {
	mac := hmac.New(sha512.New, []byte(masterKeySalt))
	mac.Write(seed)
	sum := mac.Sum(nil)

	return sum[:32], sum[32:]
}

// childKey derives one hardened child. Layout per SLIP-0010:
// HMAC-SHA512(chainCode, 0x00 || key || ser32(segment)).
func childKey(key []byte, chainCode []byte, segment uint32) ([]byte, []byte) {
	data := make([]byte, 0, 1+len(key)+4)
	data = append(data, 0x00)
	data = append(data, key...)
	data = binary.BigEndian.AppendUint32(data, segment)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)

	return sum[:32], sum[32:]
}

// DeriveAddress derives the canonical address for an HD account detail.
func DeriveAddress(seed []byte, detail account.HDWalletDetail) (string, error) {
	key, err := DeriveKey(seed, detail)
	if err != nil {
		return "", err
	}

	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return "", errors.Wrap(ErrDerivationFailed, "unexpected public key type")
	}

	var addr txn.Address
	copy(addr[:], pub)

	return addr.String(), nil
}
