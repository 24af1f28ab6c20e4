package jointaccount

import (
	"time"

	"github.com/pkg/errors"
)

// Status of a sign request (proposal). Wire values match the mobile API.
type Status string

const (
	// StatusPending means the proposal is live and below threshold.
	StatusPending Status = "pending"
	// StatusSigned means the threshold has been met; the transaction set
	// is usable.
	StatusSigned Status = "signed"
	// StatusDeclined means the proposer withdrew or every participant
	// declined.
	StatusDeclined Status = "declined"
	// StatusExpired means the expiry passed before threshold was met.
	StatusExpired Status = "expired"
	// StatusFailed means threshold can no longer be reached: too many
	// participants declined.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusSigned, StatusDeclined, StatusExpired, StatusFailed:
		return true
	default:
		return false
	}
}

// Outcome of a single participant's response.
type Outcome string

const (
	OutcomeSigned   Outcome = "signed"
	OutcomeDeclined Outcome = "declined"
)

// Type distinguishes proposals whose signers are all available locally
// (one round trip) from proposals fanned out to remote participants.
type Type string

const (
	TypeSync  Type = "sync"
	TypeAsync Type = "async"
)

// SignResponse is one participant's recorded outcome. Append-only per
// proposal; the server rejects a second submission from the same
// participant.
type SignResponse struct {
	Participant string    `json:"participant_address"`
	Outcome     Outcome   `json:"outcome"`
	Signatures  []string  `json:"signatures,omitempty"` // base64, one per transaction
	SubmittedAt time.Time `json:"submitted_at"`
}

// Proposal is a joint-account sign request awaiting participant responses.
// It is mutated only by accumulating responses; everything else is fixed at
// creation.
type Proposal struct {
	ID           string   `json:"id"`
	JointAddress string   `json:"joint_account_address"`
	Proposer     string   `json:"proposer_address"`
	Type         Type     `json:"type"`
	Threshold    int      `json:"threshold"`
	Participants []string `json:"participant_addresses"`
	// RawTransactionLists holds the unsigned transaction groups, base64
	// encoded, as submitted by the proposer.
	RawTransactionLists [][]string     `json:"raw_transaction_lists"`
	Responses           []SignResponse `json:"responses"`
	Status              Status         `json:"status"`
	ExpiresAt           time.Time      `json:"expires_at"`
}

// Proposal errors.
var (
	// ErrDuplicateResponse indicates this participant has already
	// responded to the proposal.
	ErrDuplicateResponse = errors.New("participant has already responded")

	// ErrProposalNotFound indicates the sign request id is unknown.
	ErrProposalNotFound = errors.New("sign request not found")

	// ErrProposalTerminal indicates the proposal has already reached a
	// terminal status and accepts no further responses.
	ErrProposalTerminal = errors.New("sign request is terminal")

	// ErrNotParticipant indicates the responding address is not in the
	// proposal's participant list.
	ErrNotParticipant = errors.New("address is not a participant of this sign request")
)
