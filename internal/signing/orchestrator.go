package signing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/meridian/algo-wallet/internal/account"
)

// Signer is the common contract of the synchronous backends: sign these
// unsigned bytes for this identity and return the signed envelope.
type Signer interface {
	SignTransaction(ctx context.Context, raw []byte, identity account.SignerIdentity) ([]byte, error)
}

// Options configures one signing session.
type Options struct {
	// AllowUnsigned lets entries without an available signer pass through
	// as nil placeholders instead of failing the session. External
	// request flows allow this: a dApp group may contain transactions
	// that are not ours to sign.
	AllowUnsigned bool
}

// Orchestrator selects the signing backend per entry and processes a session
// strictly sequentially: hardware devices and local key stores are
// single-request resources, so entries of one session are never signed in
// parallel.
type Orchestrator struct {
	store  account.Store
	local  Signer
	hd     Signer
	ledger *LedgerSigner

	metrics *Metrics
}

// NewOrchestrator wires the backends.
func NewOrchestrator(store account.Store, local Signer, hd Signer, ledgerSigner *LedgerSigner, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		store:   store,
		local:   local,
		hd:      hd,
		ledger:  ledgerSigner,
		metrics: metrics,
	}
}

// SignSession signs every entry of the session and returns the signed
// envelopes in original entry order. A session is all-or-nothing: any
// failure discards every signature already gathered, since a partially
// signed group is invalid and must never be submitted.
func (o *Orchestrator) SignSession(ctx context.Context, session *Session, opts Options) ([][]byte, error) {
	if session.consumed {
		return nil, errors.WithStack(ErrSessionConsumed)
	}
	session.consumed = true

	start := time.Now()
	signed, err := o.signEntries(ctx, session, opts)
	o.metrics.observeSession(start, err)

	logger := log.With().Str("session_id", session.ID).Int("entries", len(session.Entries)).Logger()
	if err != nil {
		logger.Warn().Err(err).Msg("Signing session failed")
		return nil, err
	}

	logger.Info().Msg("Signing session completed")

	return signed, nil
}

func (o *Orchestrator) signEntries(ctx context.Context, session *Session, opts Options) ([][]byte, error) {
	identities, err := o.resolveIdentities(ctx, session, opts)
	if err != nil {
		return nil, err
	}

	results := make([][]byte, len(session.Entries))
	processed := make([]bool, len(session.Entries))
	signable := 0

	for i := 0; i < len(session.Entries); i++ {
		if processed[i] {
			continue
		}

		entry := session.Entries[i]
		identity := identities[i]

		switch identity.Kind {
		case account.SignerNone:
			// Unsigned placeholder; permitted by resolveIdentities
			// only when opts allow it.
			results[i] = nil

		case account.SignerHardware:
			if o.ledger == nil {
				return nil, errors.Wrapf(ErrNoSigner, "hardware backend not configured for %s", identity.Signer)
			}

			// Every entry of this signer in the session shares one
			// operation: one scan, one connection, approvals in
			// entry order. Results land back at their original
			// positions.
			var batch []Entry
			var positions []int
			for j := i; j < len(session.Entries); j++ {
				if identities[j].Kind == account.SignerHardware &&
					identities[j].Signer == identity.Signer {
					batch = append(batch, session.Entries[j])
					positions = append(positions, j)
					processed[j] = true
				}
			}

			byIndex, err := o.ledger.SignBatch(ctx, batch, identity)
			o.metrics.observeSignature(identity.Kind.String(), err)
			if err != nil {
				return nil, errors.Wrapf(err, "hardware signing failed for %s", identity.Signer)
			}

			for k, e := range batch {
				envelope, ok := byIndex[e.Index]
				if !ok {
					return nil, errors.Errorf("missing signature for transaction index %d", e.Index)
				}
				results[positions[k]] = envelope
			}
			signable += len(batch)

		case account.SignerHDWallet:
			if o.hd == nil {
				return nil, errors.Wrapf(ErrNoSigner, "hd wallet backend not configured for %s", identity.Signer)
			}

			envelope, err := o.hd.SignTransaction(ctx, entry.Raw, identity)
			o.metrics.observeSignature(identity.Kind.String(), err)
			if err != nil {
				return nil, errors.Wrapf(err, "hd wallet signing failed for %s", identity.Signer)
			}
			results[i] = envelope
			signable++

		case account.SignerLocal:
			if o.local == nil {
				return nil, errors.Wrapf(ErrNoSigner, "local backend not configured for %s", identity.Signer)
			}

			envelope, err := o.local.SignTransaction(ctx, entry.Raw, identity)
			o.metrics.observeSignature(identity.Kind.String(), err)
			if err != nil {
				return nil, errors.Wrapf(err, "local signing failed for %s", identity.Signer)
			}
			results[i] = envelope
			signable++
		}
	}

	if signable == 0 {
		return nil, errors.Wrap(ErrNoSigner, "no entry in the session is signable")
	}

	return results, nil
}

// resolveIdentities resolves the signing backend for every entry up front,
// following the rekey authority chain. Entries without an available signer
// fail the whole session unless unsigned placeholders are allowed.
func (o *Orchestrator) resolveIdentities(ctx context.Context, session *Session, opts Options) ([]account.SignerIdentity, error) {
	identities := make([]account.SignerIdentity, len(session.Entries))

	for i, entry := range session.Entries {
		if entry.SignerAddress == "" {
			identities[i] = account.SignerIdentity{Kind: account.SignerNone}
		} else {
			identity, err := account.ResolveSignerIdentity(ctx, o.store, entry.SignerAddress)
			if err != nil {
				if !errors.Is(err, account.ErrNotFound) {
					return nil, errors.Wrapf(err, "entry %d", entry.Index)
				}
				// Not our account; signable only as a
				// placeholder.
				identity = account.SignerIdentity{
					Sender: entry.SignerAddress,
					Kind:   account.SignerNone,
				}
			}
			identities[i] = identity
		}

		if identities[i].Kind == account.SignerNone && !opts.AllowUnsigned {
			return nil, errors.Wrapf(ErrNoSigner, "entry %d (%s)", entry.Index, entry.SignerAddress)
		}
	}

	return identities, nil
}
