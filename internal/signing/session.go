package signing

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github/meridian/algo-wallet/internal/txn"
)

// Entry is one unsigned transaction of a signing session.
type Entry struct {
	// Index is the transaction's position in the original group; results
	// are returned in this order regardless of processing order.
	Index int
	// SignerAddress is the account expected to sign. Empty means the
	// entry has no signer (an unsigned placeholder slot in external
	// request flows).
	SignerAddress string
	Raw           []byte
}

// Session is one signing attempt over an ordered list of unsigned
// transactions. It is ephemeral: created when signing starts, never
// persisted, and single-use. A session is owned by exactly one orchestrator
// at a time and is not safe for concurrent mutation.
type Session struct {
	ID      string
	Entries []Entry

	consumed bool
}

// NewSession creates a session over the given entries.
func NewSession(entries []Entry) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Entries: entries,
	}
}

// NewSessionFromUnsigned creates a session from raw unsigned transactions,
// reading each sender out of its canonical encoding. Entry order follows
// slice order.
func NewSessionFromUnsigned(raws [][]byte) (*Session, error) {
	entries := make([]Entry, 0, len(raws))
	for i, raw := range raws {
		decoded, err := txn.DecodeUnsigned(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "transaction %d", i)
		}

		sender, err := decoded.SenderAddress()
		if err != nil {
			return nil, errors.Wrapf(err, "transaction %d", i)
		}

		entries = append(entries, Entry{
			Index:         i,
			SignerAddress: sender,
			Raw:           raw,
		})
	}

	return NewSession(entries), nil
}
