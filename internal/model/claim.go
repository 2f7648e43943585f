package model

import "time"

// ClaimValue is the direction of a verification claim.
type ClaimValue string

const (
	ClaimAccepted    ClaimValue = "ACCEPTED"
	ClaimNotAccepted ClaimValue = "NOT_ACCEPTED"
)

// Source identifies where a verification claim came from.
type Source string

const (
	SourceCrowdsource      Source = "CROWDSOURCE"
	SourceOfficialRegistry Source = "OFFICIAL_REGISTRY"
	SourceCarrierFeed      Source = "CARRIER_FEED"
	SourceAutomated        Source = "AUTOMATED"
)

// ValidSources are the source values accepted on submission.
var ValidSources = map[Source]bool{
	SourceCrowdsource:      true,
	SourceOfficialRegistry: true,
	SourceCarrierFeed:      true,
	SourceAutomated:        true,
}

// VerificationClaim is one submitted opinion about a provider/plan tuple.
// LocationID is "" when the claim is not location-specific. ExpiresAt is nil
// for legacy rows written before TTLs existed; those never expire.
type VerificationClaim struct {
	ID               string     `json:"id"`
	ProviderID       string     `json:"providerId"`
	PlanID           string     `json:"planId"`
	LocationID       string     `json:"locationId,omitempty"`
	Claim            ClaimValue `json:"claim"`
	Source           Source     `json:"source"`
	ActorFingerprint string     `json:"-"`
	ActorContactHash string     `json:"-"`
	BotScore         *float64   `json:"-"`
	UpvoteCount      int        `json:"upvoteCount"`
	DownvoteCount    int        `json:"downvoteCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
}

// TupleKey identifies one acceptance aggregate.
type TupleKey struct {
	ProviderID string
	PlanID     string
	LocationID string
}

// Tuple returns the claim's aggregate key.
func (c *VerificationClaim) Tuple() TupleKey {
	return TupleKey{ProviderID: c.ProviderID, PlanID: c.PlanID, LocationID: c.LocationID}
}

// ClaimRequest is the API request body for submitting a claim.
// Website is a decoy field: legitimate clients never populate it.
type ClaimRequest struct {
	ProviderID   string `json:"providerId"`
	PlanID       string `json:"planId"`
	LocationID   string `json:"locationId,omitempty"`
	Claim        string `json:"claim"`
	Source       string `json:"source,omitempty"`
	ActorContact string `json:"actorContact,omitempty"`
	BotToken     string `json:"botToken,omitempty"`
	Website      string `json:"website,omitempty"`
}

// ClaimResponse is the API response after submitting a claim.
type ClaimResponse struct {
	Success         bool   `json:"success"`
	ClaimID         string `json:"claimId,omitempty"`
	Status          string `json:"status"`
	ConfidenceScore int    `json:"confidenceScore"`
	ConfidenceTier  string `json:"confidenceTier"`
	Degraded        bool   `json:"degraded,omitempty"`
}
