package signing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github/meridian/algo-wallet/internal/account"
	"github/meridian/algo-wallet/internal/ledger"
)

// LedgerSigner signs on a hardware device. One device serves one request at
// a time, so a batch of transactions for the same signing account shares a
// single operation (one scan, one connection, sequential approvals).
type LedgerSigner struct {
	transport ledger.Transport
	timeout   time.Duration
}

// NewLedgerSigner creates a signer over the given Bluetooth transport.
func NewLedgerSigner(transport ledger.Transport, timeout time.Duration) *LedgerSigner {
	return &LedgerSigner{
		transport: transport,
		timeout:   timeout,
	}
}

// SignBatch signs the given entries on the identity's device and returns the
// signed envelopes keyed by entry index. Signatures are correlated by
// explicit transaction index, never by arrival order.
func (s *LedgerSigner) SignBatch(ctx context.Context, entries []Entry, identity account.SignerIdentity) (map[int][]byte, error) {
	if identity.Ledger == nil {
		return nil, errors.New("identity has no ledger detail")
	}

	reqs := make([]ledger.SignRequest, 0, len(entries))
	rawByIndex := make(map[int][]byte, len(entries))
	for _, entry := range entries {
		reqs = append(reqs, ledger.SignRequest{
			Index:        entry.Index,
			Raw:          entry.Raw,
			AccountIndex: identity.Ledger.AccountIndex,
		})
		rawByIndex[entry.Index] = entry.Raw
	}

	op := ledger.NewOperation(s.transport, ledger.Options{
		DeviceID: identity.Ledger.DeviceID,
		Timeout:  s.timeout,
	})

	results, err := op.Sign(ctx, reqs)
	if err != nil {
		return nil, err
	}

	signed := make(map[int][]byte, len(results))
	for _, result := range results {
		raw, ok := rawByIndex[result.Index]
		if !ok {
			// A response for an index this operation never pushed
			// belongs to a stale session.
			return nil, errors.Wrapf(ledger.ErrFailedToSign, "signature for unknown transaction index %d", result.Index)
		}

		envelope, err := encodeEnvelope(raw, result.Signature, identity)
		if err != nil {
			return nil, err
		}
		signed[result.Index] = envelope
	}

	return signed, nil
}
