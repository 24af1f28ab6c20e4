package txn

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// maxFeeIterations caps the fee fixed-point loop. The fee is a monotonically
// non-decreasing function of the encoded size, so two passes settle it in
// practice; the cap turns a broken codec into an error instead of a spin.
const maxFeeIterations = 3

// ComposedTxn is the result of a successful composition: the canonical
// unsigned bytes plus the values the fixed-point loop settled on.
type ComposedTxn struct {
	Raw    []byte
	Fee    uint64
	Amount uint64
}

// Compose validates the draft and produces canonical unsigned transaction
// bytes with the calculated fee. The fee depends on the encoded size and the
// encoded size depends on the fee, so composition iterates: encode, project
// the fee from the resulting size, re-encode if the fee changed. It never
// returns partial bytes.
func Compose(d Draft, p Params) (*ComposedTxn, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := validateParams(p); err != nil {
		return nil, err
	}

	fee := p.MinFee
	for i := 0; i < maxFeeIterations; i++ {
		amount, err := effectiveAmount(d, fee)
		if err != nil {
			return nil, err
		}

		raw, err := buildTransaction(d, p, fee, amount).Encode()
		if err != nil {
			return nil, err
		}

		next := ProjectedFee(p, len(raw)+SignedTxnOverhead)
		if next == fee {
			return &ComposedTxn{Raw: raw, Fee: fee, Amount: amount}, nil
		}

		log.Debug().
			Str("kind", d.Kind.String()).
			Uint64("fee", fee).
			Uint64("next_fee", next).
			Int("encoded_size", len(raw)).
			Msg("Recomposing with corrected fee")

		fee = next
	}

	return nil, errors.Wrapf(ErrFeeUnstable, "no fixed point after %d iterations", maxFeeIterations)
}

func validateParams(p Params) error {
	if len(p.GenesisHash) == 0 {
		return errors.Wrap(ErrInvalidDraft, "params missing genesis hash")
	}
	if p.LastValid < p.FirstValid {
		return errors.Wrap(ErrInvalidDraft, "params round window is inverted")
	}

	return nil
}

// effectiveAmount resolves the draft amount for the given fee. For a max
// transaction the fee is deducted so the account empties exactly; a rekeyed
// account, or one still holding assets, additionally keeps its minimum
// balance reserve since it cannot be closed to zero.
func effectiveAmount(d Draft, fee uint64) (uint64, error) {
	if !d.MaxTransaction {
		return d.Amount, nil
	}

	reserve := fee
	if d.SenderInfo.Rekeyed || d.SenderInfo.HeldAssets > 0 {
		reserve += MinBalance(d.SenderInfo.HeldAssets)
	}

	if d.SenderInfo.Balance < reserve {
		return 0, errors.Wrapf(ErrInvalidDraft,
			"balance %d cannot cover max transaction reserve %d", d.SenderInfo.Balance, reserve)
	}

	return d.SenderInfo.Balance - reserve, nil
}

func buildTransaction(d Draft, p Params, fee uint64, amount uint64) *Transaction {
	t := &Transaction{
		Fee:         fee,
		FirstValid:  p.FirstValid,
		LastValid:   p.LastValid,
		GenesisID:   p.GenesisID,
		GenesisHash: p.GenesisHash,
		Note:        d.Note,
		Sender:      d.Sender.bytesOrNil(),
	}

	switch d.Kind {
	case KindPayment:
		t.Type = typePayment
		t.Amount = amount
		t.Receiver = d.Receiver.bytesOrNil()
		t.CloseRemainderTo = d.CloseTo.bytesOrNil()
	case KindAssetTransfer:
		t.Type = typeAssetTransfer
		t.AssetAmount = amount
		t.AssetReceiver = d.Receiver.bytesOrNil()
		t.XferAsset = d.AssetID
	case KindAssetOptIn:
		// A zero-amount transfer of the asset to the account itself.
		t.Type = typeAssetTransfer
		t.AssetReceiver = d.Sender.bytesOrNil()
		t.XferAsset = d.AssetID
	case KindAssetCloseOut:
		t.Type = typeAssetTransfer
		t.AssetAmount = amount
		t.XferAsset = d.AssetID
		t.AssetCloseTo = d.CloseTo.bytesOrNil()
		if !d.Receiver.IsZero() {
			t.AssetReceiver = d.Receiver.bytesOrNil()
		} else {
			t.AssetReceiver = d.CloseTo.bytesOrNil()
		}
	case KindRekey:
		// A zero-amount self payment carrying the new authorized address.
		t.Type = typePayment
		t.Receiver = d.Sender.bytesOrNil()
		t.RekeyTo = d.RekeyTo.bytesOrNil()
	}

	return t
}
