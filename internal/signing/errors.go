package signing

import "github.com/pkg/errors"

var (
	// ErrKeyUnavailable indicates no stored secret exists for the signing
	// address.
	ErrKeyUnavailable = errors.New("no signing key available for address")

	// ErrNoSigner indicates no backend can sign for an entry and unsigned
	// placeholders are not allowed for the session.
	ErrNoSigner = errors.New("no signer available")

	// ErrSessionConsumed indicates the session has already reached a
	// terminal state; sessions are single-use.
	ErrSessionConsumed = errors.New("signing session already consumed")
)
