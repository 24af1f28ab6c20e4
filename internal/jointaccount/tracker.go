package jointaccount

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/meridian/algo-wallet/internal/config"
)

// Tracker follows live proposals on behalf of a participant. It enforces the
// one-shot response rule locally so a retry after a network hiccup cannot
// record a second outcome, and it polls the backend until a proposal reaches
// a terminal status.
type Tracker struct {
	client *Client

	pollMin time.Duration
	pollMax time.Duration

	mu        sync.Mutex
	responded map[string]map[string]bool // proposal id -> participant -> responded
	log       zerolog.Logger
}

// NewTracker creates a tracker polling with the configured interval bounds.
func NewTracker(client *Client, cfg config.MobileAPIConfig) *Tracker {
	return &Tracker{
		client:    client,
		pollMin:   cfg.PollMinInterval,
		pollMax:   cfg.PollMaxInterval,
		responded: make(map[string]map[string]bool),
		log:       log.With().Str("component", "joint_account_tracker").Logger(),
	}
}

// Respond submits the participant's outcome exactly once. The local guard
// catches repeats that never reached the server; the server-side duplicate
// reply is mapped to the same error.
func (t *Tracker) Respond(ctx context.Context, proposal *Proposal, participant string, input SignResponseInput) (*Proposal, error) {
	if !contains(proposal.Participants, participant) {
		return nil, errors.Wrapf(ErrNotParticipant, "%s on %s", participant, proposal.ID)
	}
	if proposal.Status.Terminal() {
		return nil, errors.Wrapf(ErrProposalTerminal, "%s is %s", proposal.ID, proposal.Status)
	}
	if HasResponded(proposal, participant) {
		return nil, errors.Wrapf(ErrDuplicateResponse, "%s on %s", participant, proposal.ID)
	}

	t.mu.Lock()
	if t.responded[proposal.ID][participant] {
		t.mu.Unlock()
		return nil, errors.Wrapf(ErrDuplicateResponse, "%s on %s", participant, proposal.ID)
	}
	if t.responded[proposal.ID] == nil {
		t.responded[proposal.ID] = make(map[string]bool)
	}
	t.responded[proposal.ID][participant] = true
	t.mu.Unlock()

	updated, err := t.client.SubmitResponse(ctx, proposal.ID, participant, input)
	if err != nil {
		// The guard stays set on a duplicate reply: the server already
		// holds a response. Any other failure frees the slot for a
		// retry.
		if !errors.Is(err, ErrDuplicateResponse) {
			t.mu.Lock()
			delete(t.responded[proposal.ID], participant)
			t.mu.Unlock()
		}
		return nil, err
	}

	return updated, nil
}

// Await polls the proposal until it reaches a terminal status or the context
// ends. The backend's reported status wins; expiry is additionally evaluated
// locally so a proposal whose deadline passed between polls terminates
// without waiting for the server to notice.
func (t *Tracker) Await(ctx context.Context, id string) (*Proposal, error) {
	b := &backoff.Backoff{
		Min:    t.pollMin,
		Max:    t.pollMax,
		Factor: 1.5,
		Jitter: true,
	}

	for {
		proposal, err := t.client.GetSignRequest(ctx, id)
		if err != nil {
			if errors.Is(err, ErrProposalNotFound) || ctx.Err() != nil {
				return nil, err
			}
			// Transient fetch failure; keep polling.
			t.log.Warn().Err(err).Str("sign_request_id", id).Msg("Sign request poll failed")
		} else {
			status := proposal.Status
			if !status.Terminal() {
				status = EvaluateStatus(proposal, time.Now())
			}
			if status.Terminal() {
				proposal.Status = status
				t.log.Info().
					Str("sign_request_id", id).
					Str("status", string(status)).
					Msg("Sign request settled")
				return proposal, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "awaiting sign request")
		case <-time.After(b.Duration()):
		}
	}
}

func contains(addresses []string, address string) bool {
	for _, a := range addresses {
		if a == address {
			return true
		}
	}

	return false
}
