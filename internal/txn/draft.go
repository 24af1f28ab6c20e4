package txn

import "github.com/pkg/errors"

// Kind discriminates the supported transaction kinds.
type Kind int

const (
	KindPayment Kind = iota
	KindAssetTransfer
	KindAssetOptIn
	KindAssetCloseOut
	KindRekey
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPayment:
		return "payment"
	case KindAssetTransfer:
		return "asset_transfer"
	case KindAssetOptIn:
		return "asset_opt_in"
	case KindAssetCloseOut:
		return "asset_close_out"
	case KindRekey:
		return "rekey"
	default:
		return "unknown"
	}
}

// MaxNoteLength bounds the note field of a draft.
const MaxNoteLength = 1024

// SenderInfo carries the account state the composer needs to apply the
// max-transaction rules. It is a snapshot taken from the account store at
// draft creation.
type SenderInfo struct {
	// Balance is the spendable balance in microAlgos.
	Balance uint64
	// HeldAssets is the number of assets the account has opted into.
	HeldAssets int
	// Rekeyed reports whether spending authority has been delegated to a
	// different address. Rekeyed accounts cannot be emptied to zero.
	Rekeyed bool
}

// Draft is caller-supplied intent for a single transaction, before protocol
// encoding. Exactly the fields relevant to its Kind may be populated.
type Draft struct {
	Kind     Kind
	Sender   Address
	Receiver Address
	// Amount is in the smallest unit (microAlgos, or base asset units).
	Amount  uint64
	AssetID uint64
	Note    []byte
	// CloseTo receives the remainder when closing out an account or an
	// asset position.
	CloseTo Address
	// RekeyTo delegates future spending authority (KindRekey only).
	RekeyTo Address
	// MaxTransaction requests sending the entire spendable balance; the
	// composer deducts the fee (and, for rekeyed or asset-holding
	// accounts, the minimum balance reserve) from Amount.
	MaxTransaction bool

	SenderInfo SenderInfo
}

// Validate checks the draft invariants for its kind. It does not touch the
// network.
func (d *Draft) Validate() error {
	if d.Sender.IsZero() {
		return errors.Wrap(ErrInvalidDraft, "missing sender")
	}

	if len(d.Note) > MaxNoteLength {
		return errors.Wrapf(ErrInvalidDraft, "note exceeds %d bytes", MaxNoteLength)
	}

	switch d.Kind {
	case KindPayment:
		if d.Receiver.IsZero() && d.CloseTo.IsZero() {
			return errors.Wrap(ErrInvalidDraft, "payment requires a receiver")
		}
		if d.AssetID != 0 {
			return errors.Wrap(ErrInvalidDraft, "payment must not reference an asset")
		}
	case KindAssetTransfer:
		if d.Receiver.IsZero() {
			return errors.Wrap(ErrInvalidDraft, "asset transfer requires a receiver")
		}
		if d.AssetID == 0 {
			return errors.Wrap(ErrInvalidDraft, "asset transfer requires an asset id")
		}
	case KindAssetOptIn:
		if d.AssetID == 0 {
			return errors.Wrap(ErrInvalidDraft, "asset opt-in requires an asset id")
		}
		if d.Amount != 0 {
			return errors.Wrap(ErrInvalidDraft, "asset opt-in amount must be zero")
		}
	case KindAssetCloseOut:
		if d.AssetID == 0 {
			return errors.Wrap(ErrInvalidDraft, "asset close-out requires an asset id")
		}
		if d.CloseTo.IsZero() {
			return errors.Wrap(ErrInvalidDraft, "asset close-out requires a close-to address")
		}
	case KindRekey:
		if d.RekeyTo.IsZero() {
			return errors.Wrap(ErrInvalidDraft, "rekey requires a rekey-to address")
		}
		if d.Amount != 0 || d.AssetID != 0 {
			return errors.Wrap(ErrInvalidDraft, "rekey must not move funds")
		}
	default:
		return errors.Wrapf(ErrInvalidDraft, "unknown kind %d", d.Kind)
	}

	if d.MaxTransaction && d.Kind != KindPayment {
		return errors.Wrap(ErrInvalidDraft, "max transaction only applies to payments")
	}

	return nil
}
