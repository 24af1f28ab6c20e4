package jointaccount

import "time"

// EvaluateStatus derives the proposal status from its responses and expiry.
// Pure: same proposal and clock always yield the same status.
//
// Rules, in order:
//   - threshold signatures recorded before expiry make the proposal signed,
//     regardless of arrival order, and regardless of any declines;
//   - past expiry, a proposal below threshold is expired for good — late
//     signatures do not count;
//   - before expiry, once the remaining possible signers cannot reach
//     threshold (participants − declines < threshold) the proposal has
//     failed; there is no point waiting for the clock.
func EvaluateStatus(p *Proposal, now time.Time) Status {
	signed := 0
	declined := 0
	for _, r := range p.Responses {
		switch r.Outcome {
		case OutcomeSigned:
			if p.ExpiresAt.IsZero() || r.SubmittedAt.Before(p.ExpiresAt) {
				signed++
			}
		case OutcomeDeclined:
			declined++
		}
	}

	if signed >= p.Threshold {
		return StatusSigned
	}

	if !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt) {
		return StatusExpired
	}

	if len(p.Participants)-declined < p.Threshold {
		if declined == len(p.Participants) {
			return StatusDeclined
		}
		return StatusFailed
	}

	return StatusPending
}

// HasResponded reports whether the participant has already recorded an
// outcome on the proposal.
func HasResponded(p *Proposal, participant string) bool {
	for _, r := range p.Responses {
		if r.Participant == participant {
			return true
		}
	}

	return false
}
