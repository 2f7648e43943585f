// Package scoring turns the ledger entries for one provider/plan tuple into
// a 0-100 confidence score and a discrete tier. Score is a pure function of
// its inputs so the live write path and the decay job always agree.
package scoring

import (
	"math"
	"time"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/config"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

// Vote weighting on individual claims. A well-upvoted claim counts for more
// in the agreement factor; a downvoted one counts for less, never zero.
const (
	votePointWeight = 0.25
	minClaimWeight  = 0.25
	maxClaimWeight  = 3.0
)

// Evidence is one ledger claim as seen by the scorer.
type Evidence struct {
	Claim     model.ClaimValue
	Source    model.Source
	CreatedAt time.Time
	Upvotes   int
	Downvotes int
}

// Result is the scorer output for one tuple.
type Result struct {
	Score         int
	Tier          model.ConfidenceTier
	AcceptedCount int
	RejectedCount int
}

// Score computes the confidence score for a tuple's claims at the given time.
//
//	score = source(0-25) + recency(0-30) + volume(0-25) + agreement(0-20)
func Score(claims []Evidence, now time.Time, specialtyClass string, th config.Thresholds) Result {
	if len(claims) == 0 {
		return Result{Score: 0, Tier: model.TierVeryLow}
	}

	var res Result
	for _, c := range claims {
		switch c.Claim {
		case model.ClaimAccepted:
			res.AcceptedCount++
		case model.ClaimNotAccepted:
			res.RejectedCount++
		}
	}

	total := sourceFactor(claims, th) +
		recencyFactor(claims, now, th.Freshness(specialtyClass), th) +
		volumeFactor(len(claims), th) +
		agreementFactor(claims, th)

	res.Score = clampScore(int(math.Round(total)))
	res.Tier = tierFor(res.Score, len(claims), th)
	return res
}

// sourceFactor returns the weight of the most authoritative source present.
func sourceFactor(claims []Evidence, th config.Thresholds) float64 {
	var best float64
	for _, c := range claims {
		if w := th.SourceWeights[c.Source]; w > best {
			best = w
		}
	}
	return best
}

// recencyFactor decays linearly to zero as the most recent claim's age
// approaches the specialty's freshness threshold.
func recencyFactor(claims []Evidence, now time.Time, freshness time.Duration, th config.Thresholds) float64 {
	var newest time.Time
	for _, c := range claims {
		if c.CreatedAt.After(newest) {
			newest = c.CreatedAt
		}
	}
	age := now.Sub(newest)
	if age <= 0 {
		return th.MaxRecencyPoints
	}
	if age >= freshness {
		return 0
	}
	return th.MaxRecencyPoints * (1 - float64(age)/float64(freshness))
}

// volumeFactor saturates: the 3rd verification is worth far more than the
// 10th.
func volumeFactor(count int, th config.Thresholds) float64 {
	return th.MaxVolumePoints * (1 - math.Exp(-float64(count)/th.VolumeHalfLife))
}

// agreementFactor rewards unanimous claims once the count reaches the
// optimum, and collapses toward zero when claims split evenly. Individual
// claims are weighted by their vote tallies.
func agreementFactor(claims []Evidence, th config.Thresholds) float64 {
	var acceptWeight, rejectWeight float64
	for _, c := range claims {
		w := claimWeight(c)
		if c.Claim == model.ClaimAccepted {
			acceptWeight += w
		} else {
			rejectWeight += w
		}
	}

	totalWeight := acceptWeight + rejectWeight
	if totalWeight == 0 {
		return 0
	}

	ratio := math.Max(acceptWeight, rejectWeight) / totalWeight
	base := th.MaxAgreementPoints * (2*ratio - 1)
	if base < 0 {
		base = 0
	}

	scale := float64(len(claims)) / float64(th.AgreementOptimum)
	if scale > 1 {
		scale = 1
	}
	return base * scale
}

// claimWeight is the per-claim weight used by the agreement factor.
func claimWeight(c Evidence) float64 {
	w := 1 + votePointWeight*float64(c.Upvotes-c.Downvotes)
	return math.Min(math.Max(w, minClaimWeight), maxClaimWeight)
}

// tierFor discretizes a score, applying the insufficient-evidence cap.
func tierFor(score, count int, th config.Thresholds) model.ConfidenceTier {
	tier := bandFor(score)
	if count < th.MinVerifications && tierRank(tier) > tierRank(th.LowVolumeTierCap) {
		return th.LowVolumeTierCap
	}
	return tier
}

func bandFor(score int) model.ConfidenceTier {
	switch {
	case score >= 91:
		return model.TierVeryHigh
	case score >= 76:
		return model.TierHigh
	case score >= 51:
		return model.TierMedium
	case score >= 26:
		return model.TierLow
	default:
		return model.TierVeryLow
	}
}

func tierRank(t model.ConfidenceTier) int {
	switch t {
	case model.TierVeryLow:
		return 0
	case model.TierLow:
		return 1
	case model.TierMedium:
		return 2
	case model.TierHigh:
		return 3
	case model.TierVeryHigh:
		return 4
	default:
		return 0
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
