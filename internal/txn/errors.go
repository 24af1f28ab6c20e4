package txn

import "github.com/pkg/errors"

// Composition errors. Callers match with errors.Is; the wrapped message
// carries the offending field or value.
var (
	// ErrInvalidDraft indicates the draft failed validation (missing or
	// malformed fields for its kind).
	ErrInvalidDraft = errors.New("invalid transaction draft")

	// ErrInvalidAddress indicates a malformed or checksum-invalid address.
	ErrInvalidAddress = errors.Wrap(ErrInvalidDraft, "invalid address")

	// ErrEncodingFailed indicates the canonical codec rejected the payload.
	ErrEncodingFailed = errors.New("transaction encoding failed")

	// ErrFeeUnstable indicates the fee fixed-point iteration did not
	// converge within the bounded number of attempts.
	ErrFeeUnstable = errors.New("transaction fee did not stabilize")
)
