package ledger

import "context"

// Device is a discovered Bluetooth peripheral running the signing app.
type Device struct {
	ID   string
	Name string
}

// Transport is the Bluetooth boundary of the hardware signer. Implementations
// own the BLE session framing; the operation layer only sees whole APDUs.
//
// StopScan and Disconnect must be safe to call at any time, in any order, and
// more than once: the operation guarantees teardown on every exit path.
type Transport interface {
	// Scan starts device discovery and streams found devices until the
	// context is cancelled or StopScan is called.
	Scan(ctx context.Context) (<-chan Device, error)

	// Connect establishes a session with a discovered device.
	Connect(ctx context.Context, device Device) error

	// Exchange sends one APDU and blocks until the device responds. The
	// response includes the trailing status word.
	Exchange(ctx context.Context, apdu []byte) ([]byte, error)

	// StopScan stops device discovery.
	StopScan()

	// Disconnect closes the session with the connected device.
	Disconnect()
}
