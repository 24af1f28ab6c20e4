package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle state of a hardware signing operation.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnected
	StateAwaitingApproval
	StateSigned
	StateCancelled
	StateConnectionClosed
	StateTimeout
	StateRejected
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnected:
		return "connected"
	case StateAwaitingApproval:
		return "awaiting_approval"
	case StateSigned:
		return "signed"
	case StateCancelled:
		return "cancelled"
	case StateConnectionClosed:
		return "connection_closed"
	case StateTimeout:
		return "timeout"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	switch s {
	case StateSigned, StateCancelled, StateConnectionClosed, StateTimeout, StateRejected:
		return true
	default:
		return false
	}
}

// Event is emitted on every state transition. Index is the transaction index
// being processed when the transition happened, -1 outside the signing phase.
type Event struct {
	State  State
	Device Device
	Index  int
}

// SignRequest is one unsigned transaction to push to the device.
type SignRequest struct {
	// Index correlates the resulting signature with the session entry; a
	// response is matched by this index, never by arrival order.
	Index int
	Raw   []byte
	// AccountIndex selects the key slot on the device.
	AccountIndex uint32
}

// SignResult is one signature keyed by the request's transaction index.
type SignResult struct {
	Index     int
	Signature []byte
}

// Options configures a signing operation.
type Options struct {
	// DeviceID is the paired peripheral to connect to; empty accepts the
	// first device found.
	DeviceID string
	// Timeout bounds the whole operation, armed at scan start and stopped
	// only on success or explicit cancellation.
	Timeout time.Duration
}

// DefaultSignTimeout bounds a signing attempt when Options.Timeout is zero.
const DefaultSignTimeout = 15 * time.Second

const eventBufferSize = 16

// Operation drives one hardware signing attempt through its state machine:
//
//	Idle -> Scanning -> Connected -> AwaitingApproval -> Signed
//
// with terminal failures Cancelled, ConnectionClosed, Timeout and Rejected.
// An operation is single-use; a restarted session needs a fresh one. The
// Bluetooth transport is released on every exit path.
type Operation struct {
	transport Transport
	opts      Options
	log       zerolog.Logger

	mu       sync.Mutex
	state    State
	err      error
	timer    *time.Timer
	cancelFn context.CancelFunc
	consumed bool
	device   Device

	events chan Event
}

// NewOperation creates an idle operation over the given transport.
func NewOperation(transport Transport, opts Options) *Operation {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSignTimeout
	}

	return &Operation{
		transport: transport,
		opts:      opts,
		log:       log.With().Str("component", "ledger_operation").Logger(),
		state:     StateIdle,
		events:    make(chan Event, eventBufferSize),
	}
}

// Events returns the state transition stream. The channel is buffered; slow
// consumers miss intermediate transitions rather than blocking signing.
func (o *Operation) Events() <-chan Event {
	return o.events
}

// State returns the current state.
func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// Cancel aborts the operation and releases the transport. It is idempotent:
// cancelling an already-terminal operation is a no-op.
func (o *Operation) Cancel() {
	o.mu.Lock()
	if o.state.Terminal() {
		o.mu.Unlock()
		return
	}

	o.state = StateCancelled
	o.err = errors.WithStack(ErrCancelled)
	o.stopTimerLocked()

	cancelFn := o.cancelFn
	running := o.consumed
	o.emitLocked(-1)
	o.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
	}
	if !running {
		// Sign never started, so nobody else will release the
		// transport.
		o.teardown()
	}

	o.log.Info().Msg("Ledger operation cancelled")
}

// Sign scans for the device, pushes every request in order and collects the
// signatures keyed by request index. It blocks until the operation reaches a
// terminal state; Cancel from another goroutine aborts it.
func (o *Operation) Sign(ctx context.Context, reqs []SignRequest) ([]SignResult, error) {
	o.mu.Lock()
	if o.consumed {
		o.mu.Unlock()
		return nil, errors.WithStack(ErrOperationConsumed)
	}
	o.consumed = true

	if o.state.Terminal() {
		err := o.err
		o.mu.Unlock()
		return nil, err
	}

	ctx, cancelFn := context.WithCancel(ctx)
	o.cancelFn = cancelFn
	defer cancelFn()

	// The timeout timer runs from scan start until success or explicit
	// cancellation.
	o.timer = time.AfterFunc(o.opts.Timeout, func() {
		o.fail(StateTimeout, errors.WithStack(ErrTimeout))
		cancelFn()
	})

	o.state = StateScanning
	o.emitLocked(-1)
	o.mu.Unlock()

	defer o.teardown()

	device, err := o.discover(ctx)
	if err != nil {
		return nil, o.failFromContext(err)
	}

	if err := o.transport.Connect(ctx, device); err != nil {
		return nil, o.failFromContext(errors.Wrap(ErrConnectionClosed, err.Error()))
	}
	o.transition(StateConnected, device, -1)

	results := make([]SignResult, 0, len(reqs))
	for _, req := range reqs {
		sig, err := o.signOne(ctx, req)
		if err != nil {
			return nil, o.failFromContext(err)
		}

		results = append(results, SignResult{Index: req.Index, Signature: sig})
	}

	o.mu.Lock()
	if o.state.Terminal() {
		// Cancelled between the last response and here.
		err := o.err
		o.mu.Unlock()
		return nil, err
	}
	o.stopTimerLocked()
	o.state = StateSigned
	o.emitLocked(-1)
	o.mu.Unlock()

	return results, nil
}

// discover scans until the configured device (or any device, when none is
// pinned) is found.
func (o *Operation) discover(ctx context.Context) (Device, error) {
	devices, err := o.transport.Scan(ctx)
	if err != nil {
		return Device{}, errors.Wrap(ErrConnectionClosed, err.Error())
	}

	for {
		select {
		case <-ctx.Done():
			return Device{}, ctx.Err()
		case device, ok := <-devices:
			if !ok {
				return Device{}, errors.Wrap(ErrConnectionClosed, "scan ended without a match")
			}
			if o.opts.DeviceID != "" && device.ID != o.opts.DeviceID {
				continue
			}

			o.mu.Lock()
			o.device = device
			o.mu.Unlock()

			return device, nil
		}
	}
}

// signOne pushes one unsigned transaction chunk by chunk. The device shows
// its approval prompt on the final chunk; the exchange of that chunk blocks
// until the user approves or rejects.
func (o *Operation) signOne(ctx context.Context, req SignRequest) ([]byte, error) {
	chunks := signChunks(req.AccountIndex, req.Raw)

	for i, chunk := range chunks {
		last := i == len(chunks)-1
		if last {
			o.transition(StateAwaitingApproval, o.device, req.Index)
		}

		resp, err := o.transport.Exchange(ctx, chunk)
		if err != nil {
			return nil, errors.Wrap(ErrConnectionClosed, err.Error())
		}

		payload, err := parseResponse(resp)
		if err != nil {
			return nil, err
		}

		if last {
			if len(payload) == 0 {
				return nil, errors.Wrap(ErrFailedToSign, "empty signature payload")
			}
			return payload, nil
		}
	}

	return nil, errors.Wrap(ErrFailedToSign, "no chunks to send")
}

// failFromContext maps an error to a terminal state, preferring the verdict
// already recorded by Cancel or the timeout timer over the transport error
// their context cancellation caused.
func (o *Operation) failFromContext(err error) error {
	o.mu.Lock()
	if o.state.Terminal() {
		terminal := o.err
		o.mu.Unlock()
		return terminal
	}
	o.mu.Unlock()

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		o.fail(StateCancelled, errors.WithStack(ErrCancelled))
		return errors.WithStack(ErrCancelled)
	case errors.Is(err, ErrRejected):
		o.fail(StateRejected, err)
	case errors.Is(err, ErrTimeout):
		o.fail(StateTimeout, err)
	default:
		o.fail(StateConnectionClosed, err)
	}

	return err
}

// fail transitions to a terminal failure state. Idempotent: the first
// terminal transition wins, so a late timer firing after rejection does not
// rewrite history.
func (o *Operation) fail(state State, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Terminal() {
		return
	}

	o.state = state
	o.err = err
	o.emitLocked(-1)

	o.log.Warn().Str("state", state.String()).Err(err).Msg("Ledger operation failed")
}

func (o *Operation) transition(state State, device Device, index int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Terminal() {
		return
	}

	o.state = state
	o.device = device
	o.emitLocked(index)
}

// emitLocked sends an event without blocking; callers hold o.mu.
func (o *Operation) emitLocked(index int) {
	select {
	case o.events <- Event{State: o.state, Device: o.device, Index: index}:
	default:
	}
}

func (o *Operation) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
	}
}

// teardown releases the Bluetooth resource. Runs on every exit path.
func (o *Operation) teardown() {
	o.transport.StopScan()
	o.transport.Disconnect()
}
