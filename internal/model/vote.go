package model

import "time"

// VoteDirection is an up or down opinion on a claim.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ValidDirections are the allowed vote direction values.
var ValidDirections = map[VoteDirection]bool{
	VoteUp:   true,
	VoteDown: true,
}

// VoteRecord is one actor's opinion on a VerificationClaim. At most one row
// exists per (ClaimID, ActorFingerprint); a repeat vote flips Direction.
type VoteRecord struct {
	ID               int64         `json:"id"`
	ClaimID          string        `json:"claimId"`
	ActorFingerprint string        `json:"-"`
	Direction        VoteDirection `json:"direction"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// VoteRequest is the API request body for voting on a claim.
// Website is the same decoy field carried by claim submissions.
type VoteRequest struct {
	ClaimID   string `json:"claimId"`
	Direction string `json:"direction"`
	BotToken  string `json:"botToken,omitempty"`
	Website   string `json:"website,omitempty"`
}

// VoteResponse is the API response after voting on a claim.
type VoteResponse struct {
	Success         bool `json:"success"`
	Flipped         bool `json:"flipped,omitempty"`
	UpvoteCount     int  `json:"upvoteCount"`
	DownvoteCount   int  `json:"downvoteCount"`
	ConfidenceScore int  `json:"confidenceScore"`
	Degraded        bool `json:"degraded,omitempty"`
}
