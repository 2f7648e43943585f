package model

import "time"

// AcceptanceStatus is the settled answer for one provider/plan tuple.
type AcceptanceStatus string

const (
	StatusPending     AcceptanceStatus = "PENDING"
	StatusAccepted    AcceptanceStatus = "ACCEPTED"
	StatusNotAccepted AcceptanceStatus = "NOT_ACCEPTED"
	StatusUnknown     AcceptanceStatus = "UNKNOWN"
)

// ConfidenceTier is the discretized band of a confidence score.
type ConfidenceTier string

const (
	TierVeryLow  ConfidenceTier = "VERY_LOW"
	TierLow      ConfidenceTier = "LOW"
	TierMedium   ConfidenceTier = "MEDIUM"
	TierHigh     ConfidenceTier = "HIGH"
	TierVeryHigh ConfidenceTier = "VERY_HIGH"
)

// AcceptanceAggregate is the system's current answer for one tuple.
type AcceptanceAggregate struct {
	ProviderID        string           `json:"providerId"`
	PlanID            string           `json:"planId"`
	LocationID        string           `json:"locationId,omitempty"`
	// SpecialtyClass selects the freshness threshold for recency decay.
	// Populated from provider reference data; "" uses the default.
	SpecialtyClass    string           `json:"specialtyClass,omitempty"`
	Status            AcceptanceStatus `json:"status"`
	ConfidenceScore   int              `json:"confidenceScore"`
	ConfidenceTier    ConfidenceTier   `json:"confidenceTier"`
	VerificationCount int              `json:"verificationCount"`
	LastVerifiedAt    time.Time        `json:"lastVerifiedAt"`
	ExpiresAt         *time.Time       `json:"expiresAt,omitempty"`
}

// Tuple returns the aggregate's key.
func (a *AcceptanceAggregate) Tuple() TupleKey {
	return TupleKey{ProviderID: a.ProviderID, PlanID: a.PlanID, LocationID: a.LocationID}
}

// StatsResponse is the API response for global statistics.
type StatsResponse struct {
	TotalClaims      int            `json:"totalClaims"`
	TotalVotes       int            `json:"totalVotes"`
	TotalAggregates  int            `json:"totalAggregates"`
	Claims24h        int            `json:"claims24h"`
	StatusBreakdown  map[string]int `json:"statusBreakdown"`
}

// JobReport is the API response for an admin-triggered maintenance job run.
type JobReport struct {
	DryRun            bool `json:"dryRun"`
	ClaimsDeleted     int  `json:"claimsDeleted,omitempty"`
	VotesDeleted      int  `json:"votesDeleted,omitempty"`
	AggregatesDeleted int  `json:"aggregatesDeleted,omitempty"`
	AggregatesScanned int  `json:"aggregatesScanned,omitempty"`
	AggregatesChanged int  `json:"aggregatesChanged,omitempty"`
}
