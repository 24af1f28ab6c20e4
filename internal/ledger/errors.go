package ledger

import "github.com/pkg/errors"

// Terminal failure modes of a hardware signing operation. Callers must react
// differently: only ErrTimeout and ErrConnectionClosed are retryable by
// re-scanning; ErrRejected and ErrCancelled must surface to the user.
var (
	// ErrCancelled indicates the caller cancelled the operation.
	ErrCancelled = errors.New("ledger operation cancelled")

	// ErrTimeout indicates the device did not respond within the signing
	// timeout.
	ErrTimeout = errors.New("ledger operation timed out")

	// ErrRejected indicates the user declined the transaction on the
	// device.
	ErrRejected = errors.New("transaction rejected on ledger device")

	// ErrConnectionClosed indicates the app on the device was closed or
	// the transport dropped.
	ErrConnectionClosed = errors.New("ledger connection closed")

	// ErrFailedToSign indicates the device returned an unparseable
	// response.
	ErrFailedToSign = errors.New("ledger failed to sign transaction")

	// ErrOperationConsumed indicates Sign was called twice on the same
	// operation; a restarted session needs a fresh operation.
	ErrOperationConsumed = errors.New("ledger operation already consumed")
)

// Retryable reports whether the failure may be retried by re-scanning
// without user interaction having rejected anything.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionClosed)
}
