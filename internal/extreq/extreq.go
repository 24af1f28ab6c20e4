// Package extreq turns external signing requests, as sent by connected
// dApps, into signing sessions. A request is a JSON array of transaction
// wrappers; each wrapper carries the unsigned transaction and optional
// signer hints that decide whether and with which account the wallet signs.
package extreq

import (
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/meridian/algo-wallet/internal/signing"
	"github/meridian/algo-wallet/internal/txn"
)

// ErrUnsignableRequest indicates the request asks for something the wallet
// cannot perform, such as delegating one transaction to multiple signers.
var ErrUnsignableRequest = errors.New("request cannot be signed")

// maxGroupSize bounds external requests; on-chain groups cannot exceed it.
const maxGroupSize = 16

// TxnRequest is one transaction wrapper of an external request.
type TxnRequest struct {
	// Txn is the canonical unsigned transaction, base64 encoded.
	Txn string `json:"txn"`
	// Signers overrides the signing account. nil means sign with the
	// sender; an empty list means the wallet must not sign this entry
	// (someone else holds the key); a single entry names the signer.
	Signers []string `json:"signers,omitempty"`
	// AuthAddr names the authorizing address of a rekeyed sender.
	AuthAddr string `json:"authAddr,omitempty"`
}

// Parse decodes a request payload into its transaction wrappers.
func Parse(payload []byte) ([]TxnRequest, error) {
	var reqs []TxnRequest
	if err := json.Unmarshal(payload, &reqs); err != nil {
		return nil, errors.Wrap(ErrUnsignableRequest, err.Error())
	}
	if len(reqs) == 0 {
		return nil, errors.Wrap(ErrUnsignableRequest, "empty transaction list")
	}
	if len(reqs) > maxGroupSize {
		return nil, errors.Wrapf(ErrUnsignableRequest, "%d transactions exceed the group limit", len(reqs))
	}

	return reqs, nil
}

// BuildSession maps the wrappers onto a signing session, resolving each
// entry's signer from its hints. Entries the wallet must not sign become
// placeholder slots; the orchestrator is expected to run the session with
// unsigned entries allowed.
func BuildSession(reqs []TxnRequest) (*signing.Session, error) {
	entries := make([]signing.Entry, 0, len(reqs))

	for i, req := range reqs {
		raw, err := base64.StdEncoding.DecodeString(req.Txn)
		if err != nil {
			return nil, errors.Wrapf(ErrUnsignableRequest, "transaction %d: %s", i, err)
		}

		signer, err := resolveSigner(raw, req)
		if err != nil {
			return nil, errors.Wrapf(err, "transaction %d", i)
		}

		entries = append(entries, signing.Entry{
			Index:         i,
			SignerAddress: signer,
			Raw:           raw,
		})
	}

	log.Debug().Int("entries", len(entries)).Msg("Built session from external request")

	return signing.NewSession(entries), nil
}

// resolveSigner picks the signing account for one wrapper. An empty result
// marks the entry as a placeholder.
func resolveSigner(raw []byte, req TxnRequest) (string, error) {
	if req.Signers != nil {
		if len(req.Signers) == 0 {
			return "", nil
		}
		if len(req.Signers) > 1 {
			return "", errors.Wrap(ErrUnsignableRequest, "multiple signers for one transaction")
		}
		if _, err := txn.ParseAddress(req.Signers[0]); err != nil {
			return "", errors.Wrap(ErrUnsignableRequest, err.Error())
		}

		return req.Signers[0], nil
	}

	if req.AuthAddr != "" {
		if _, err := txn.ParseAddress(req.AuthAddr); err != nil {
			return "", errors.Wrap(ErrUnsignableRequest, err.Error())
		}

		return req.AuthAddr, nil
	}

	decoded, err := txn.DecodeUnsigned(raw)
	if err != nil {
		return "", errors.Wrap(ErrUnsignableRequest, err.Error())
	}
	sender, err := decoded.SenderAddress()
	if err != nil {
		return "", errors.Wrap(ErrUnsignableRequest, err.Error())
	}

	return sender, nil
}

// EncodeResult renders the signed envelopes back into the reply format:
// base64 per signed entry, null for placeholder slots, in request order.
func EncodeResult(signed [][]byte) ([]byte, error) {
	out := make([]*string, len(signed))
	for i, envelope := range signed {
		if envelope == nil {
			continue
		}
		s := base64.StdEncoding.EncodeToString(envelope)
		out[i] = &s
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode result")
	}

	return encoded, nil
}
