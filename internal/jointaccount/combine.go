package jointaccount

import (
	"encoding/base64"

	"github.com/pkg/errors"
	"github/meridian/algo-wallet/internal/txn"
)

// ErrThresholdNotMet indicates the proposal holds fewer valid signatures
// than its threshold requires.
var ErrThresholdNotMet = errors.New("not enough signatures to meet threshold")

const multisigVersion = 1

// CombineSignatures assembles the multisig envelopes for a signed proposal.
// Subsignatures appear in participant-list order with an entry for every
// participant; non-signers keep an empty signature slot, as verifiers expect.
// txnList selects which transaction list of the proposal to combine.
func CombineSignatures(p *Proposal, txnList int) ([][]byte, error) {
	if txnList < 0 || txnList >= len(p.RawTransactionLists) {
		return nil, errors.Errorf("transaction list %d out of range", txnList)
	}
	rawList := p.RawTransactionLists[txnList]

	sigsByParticipant, err := decodeSignatures(p, len(rawList))
	if err != nil {
		return nil, err
	}
	if len(sigsByParticipant) < p.Threshold {
		return nil, errors.Wrapf(ErrThresholdNotMet, "%d of %d", len(sigsByParticipant), p.Threshold)
	}

	combined := make([][]byte, len(rawList))
	for i, rawB64 := range rawList {
		raw, err := base64.StdEncoding.DecodeString(rawB64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid raw transaction %d", i)
		}

		msig := txn.MultisigSig{
			Threshold: uint8(p.Threshold), //nolint:gosec
			Version:   multisigVersion,
		}
		for _, participant := range p.Participants {
			addr, err := txn.ParseAddress(participant)
			if err != nil {
				return nil, errors.Wrapf(err, "participant %s", participant)
			}
			sub := txn.MultisigSubsig{Key: addr[:]}
			if sigs, ok := sigsByParticipant[participant]; ok {
				sub.Sig = sigs[i]
			}
			msig.Subsigs = append(msig.Subsigs, sub)
		}

		envelope, err := txn.EncodeMultisigSigned(raw, &msig)
		if err != nil {
			return nil, errors.Wrapf(err, "transaction %d", i)
		}
		combined[i] = envelope
	}

	return combined, nil
}

// decodeSignatures collects the per-transaction signatures of every signing
// participant, rejecting malformed or short responses.
func decodeSignatures(p *Proposal, txnCount int) (map[string][][]byte, error) {
	out := make(map[string][][]byte)
	for _, r := range p.Responses {
		if r.Outcome != OutcomeSigned {
			continue
		}
		if len(r.Signatures) != txnCount {
			return nil, errors.Errorf("participant %s submitted %d signatures, want %d",
				r.Participant, len(r.Signatures), txnCount)
		}

		sigs := make([][]byte, txnCount)
		for i, s := range r.Signatures {
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, errors.Wrapf(err, "participant %s signature %d", r.Participant, i)
			}
			sigs[i] = decoded
		}
		out[r.Participant] = sigs
	}

	return out, nil
}
