// Package gate implements the ordered anti-abuse pipeline every inbound
// write must pass before it reaches the verification ledger. Each stage
// yields one of three outcomes (admit, reject, degrade-and-admit) plus the
// decoy trap's silent discard; the first reject ends the pipeline.
package gate

import "fmt"

// Decision is a gate stage's verdict on a write.
type Decision int

const (
	// Admit lets the write proceed to the ledger.
	Admit Decision = iota
	// Reject stops the write with a machine-readable reason.
	Reject
	// Discard silently drops the write while reporting success to the
	// caller. Only the decoy trap produces it.
	Discard
)

// Rejection reasons surfaced to callers.
const (
	ReasonRateLimited    = "rate_limited"
	ReasonBotSuspected   = "bot_suspected"
	ReasonBotUnavailable = "bot_unavailable"
	ReasonMissingToken   = "missing_bot_token"
	ReasonDuplicateClaim = "duplicate_claim"
	ReasonDuplicateVote  = "duplicate_vote"
)

// Action classes for rate limiting.
const (
	ActionSubmitClaim = "submit-claim"
	ActionSubmitVote  = "submit-vote"
	ActionSearch      = "search"
)

// Outcome is the pipeline's combined verdict on one write.
type Outcome struct {
	Decision Decision
	// Reason is set on Reject.
	Reason string
	// RetryAfter is the rate-limit backoff hint in seconds.
	RetryAfter int
	// Degraded marks writes admitted under a fallback policy because a
	// dependency was unreachable.
	Degraded bool
	// VoteFlip marks an admitted vote that must update an existing record
	// in place instead of inserting.
	VoteFlip bool
	// BotScore carries the verifier's score when one was obtained.
	BotScore *float64
}

// Rejected reports whether the outcome stops the write.
func (o Outcome) Rejected() bool { return o.Decision == Reject }

// RejectionError converts a rejecting outcome into a typed error so services
// can propagate policy rejections without inventing parallel enums.
type RejectionError struct {
	Reason     string
	RetryAfter int
}

func (e *RejectionError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rejected by policy: %s (retry after %ds)", e.Reason, e.RetryAfter)
	}
	return "rejected by policy: " + e.Reason
}

// Err returns a RejectionError for a rejecting outcome, nil otherwise.
func (o Outcome) Err() error {
	if !o.Rejected() {
		return nil
	}
	return &RejectionError{Reason: o.Reason, RetryAfter: o.RetryAfter}
}
