package txn

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Transaction kind identifiers on the wire.
const (
	typePayment       = "pay"
	typeAssetTransfer = "axfer"
)

// signingPrefix domain-separates transaction signatures from other signed
// payloads.
var signingPrefix = []byte("TX")

// Transaction is the canonical unsigned transaction. Fields are declared in
// alphabetical tag order and encoded with omitempty so the msgpack map form
// is canonical: key-sorted, zero values absent.
type Transaction struct {
	AssetAmount      uint64 `msgpack:"aamt,omitempty"`
	AssetCloseTo     []byte `msgpack:"aclose,omitempty"`
	Amount           uint64 `msgpack:"amt,omitempty"`
	AssetReceiver    []byte `msgpack:"arcv,omitempty"`
	CloseRemainderTo []byte `msgpack:"close,omitempty"`
	Fee              uint64 `msgpack:"fee,omitempty"`
	FirstValid       uint64 `msgpack:"fv,omitempty"`
	GenesisID        string `msgpack:"gen,omitempty"`
	GenesisHash      []byte `msgpack:"gh,omitempty"`
	Group            []byte `msgpack:"grp,omitempty"`
	LastValid        uint64 `msgpack:"lv,omitempty"`
	Note             []byte `msgpack:"note,omitempty"`
	Receiver         []byte `msgpack:"rcv,omitempty"`
	RekeyTo          []byte `msgpack:"rekey,omitempty"`
	Sender           []byte `msgpack:"snd,omitempty"`
	Type             string `msgpack:"type,omitempty"`
	XferAsset        uint64 `msgpack:"xaid,omitempty"`
}

// Encode returns the canonical msgpack encoding.
func (t *Transaction) Encode() ([]byte, error) {
	raw, err := msgpack.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(ErrEncodingFailed, err.Error())
	}

	return raw, nil
}

// DecodeUnsigned decodes a canonical unsigned transaction, e.g. one received
// from an external request.
func DecodeUnsigned(raw []byte) (*Transaction, error) {
	var t Transaction
	if err := msgpack.Unmarshal(raw, &t); err != nil {
		return nil, errors.Wrap(ErrEncodingFailed, err.Error())
	}

	return &t, nil
}

// SenderAddress returns the sender in canonical base32 form.
func (t *Transaction) SenderAddress() (string, error) {
	if len(t.Sender) != AddressLength {
		return "", errors.Wrapf(ErrEncodingFailed, "sender has %d bytes", len(t.Sender))
	}

	var a Address
	copy(a[:], t.Sender)

	return a.String(), nil
}

// BytesToSign prepends the signing domain prefix to the canonical encoding.
// Signers sign exactly these bytes.
func BytesToSign(raw []byte) []byte {
	buf := make([]byte, 0, len(signingPrefix)+len(raw))
	buf = append(buf, signingPrefix...)
	buf = append(buf, raw...)

	return buf
}

// MultisigSubsig is one participant slot of a multisig signature. Slots of
// participants that have not signed carry the key only.
type MultisigSubsig struct {
	Key []byte `msgpack:"pk"`
	Sig []byte `msgpack:"s,omitempty"`
}

// MultisigSig is a threshold signature over the participant list, in fixed
// participant order.
type MultisigSig struct {
	Subsigs   []MultisigSubsig `msgpack:"subsig"`
	Threshold uint8            `msgpack:"thr"`
	Version   uint8            `msgpack:"v"`
}

// signedTxn is the signed transaction envelope. Exactly one of Msig and Sig
// is set; Sgnr carries the authorizing key when it differs from the sender.
type signedTxn struct {
	Msig *MultisigSig       `msgpack:"msig,omitempty"`
	Sgnr []byte             `msgpack:"sgnr,omitempty"`
	Sig  []byte             `msgpack:"sig,omitempty"`
	Txn  msgpack.RawMessage `msgpack:"txn"`
}

// EncodeSigned wraps an unsigned transaction and its ed25519 signature into
// the signed envelope. When signer differs from sender (a rekeyed account),
// the signer's key is recorded as the authorizing address.
func EncodeSigned(raw []byte, sig []byte, sender Address, signer Address) ([]byte, error) {
	env := signedTxn{
		Sig: sig,
		Txn: msgpack.RawMessage(raw),
	}
	if signer != sender && !signer.IsZero() {
		env.Sgnr = signer.bytesOrNil()
	}

	out, err := msgpack.Marshal(&env)
	if err != nil {
		return nil, errors.Wrap(ErrEncodingFailed, err.Error())
	}

	return out, nil
}

// EncodeMultisigSigned wraps an unsigned transaction and an assembled
// threshold signature into the signed envelope.
func EncodeMultisigSigned(raw []byte, msig *MultisigSig) ([]byte, error) {
	env := signedTxn{
		Msig: msig,
		Txn:  msgpack.RawMessage(raw),
	}

	out, err := msgpack.Marshal(&env)
	if err != nil {
		return nil, errors.Wrap(ErrEncodingFailed, err.Error())
	}

	return out, nil
}
