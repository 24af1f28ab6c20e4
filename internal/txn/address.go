package txn

import (
	"crypto/sha512"
	"encoding/base32"

	"github.com/pkg/errors"
)

const (
	// AddressLength is the length of a raw address (an ed25519 public key).
	AddressLength = 32
	// addressChecksumLength is the number of trailing SHA-512/256 digest
	// bytes appended before base32 encoding.
	addressChecksumLength = 4
	// encodedAddressLength is the length of the canonical base32 form.
	encodedAddressLength = 58
)

var base32Encoder = base32.StdEncoding.WithPadding(base32.NoPadding)

// Address is a raw Algorand address: the 32-byte ed25519 public key of the
// account.
type Address [AddressLength]byte

// ParseAddress decodes and checksum-validates a canonical base32 address.
func ParseAddress(s string) (Address, error) {
	var a Address

	if len(s) != encodedAddressLength {
		return a, errors.Wrapf(ErrInvalidAddress, "expected %d characters, got %d", encodedAddressLength, len(s))
	}

	decoded, err := base32Encoder.DecodeString(s)
	if err != nil {
		return a, errors.Wrap(ErrInvalidAddress, err.Error())
	}

	if len(decoded) != AddressLength+addressChecksumLength {
		return a, errors.Wrapf(ErrInvalidAddress, "unexpected decoded length %d", len(decoded))
	}

	copy(a[:], decoded[:AddressLength])

	digest := sha512.Sum512_256(a[:])
	checksum := digest[len(digest)-addressChecksumLength:]
	for i := 0; i < addressChecksumLength; i++ {
		if checksum[i] != decoded[AddressLength+i] {
			return Address{}, errors.Wrap(ErrInvalidAddress, "checksum mismatch")
		}
	}

	return a, nil
}

// String returns the canonical base32 form with checksum.
func (a Address) String() string {
	digest := sha512.Sum512_256(a[:])

	encoded := make([]byte, 0, AddressLength+addressChecksumLength)
	encoded = append(encoded, a[:]...)
	encoded = append(encoded, digest[len(digest)-addressChecksumLength:]...)

	return base32Encoder.EncodeToString(encoded)
}

// IsZero reports whether the address is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// bytesOrNil returns the raw key bytes, or nil for the zero address so that
// canonical encoding omits the field entirely.
func (a Address) bytesOrNil() []byte {
	if a.IsZero() {
		return nil
	}

	b := make([]byte, AddressLength)
	copy(b, a[:])

	return b
}
