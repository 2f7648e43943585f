// Package consensus decides whether a tuple's acceptance status transitions.
// Status is sticky: a single new claim can never flip a settled answer, and
// a brand-new tuple stays PENDING until the evidence threshold is met.
package consensus

import (
	"fmt"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/config"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

// Evaluate returns the next status for a tuple given its current status and
// freshly computed score and claim counts.
//
// A transition to ACCEPTED/NOT_ACCEPTED requires, simultaneously:
//
//	accepted+rejected >= MinVerifications
//	score             >= MinConfidenceForChange
//	majority           > SupermajorityRatio * minority (strict)
//
// A settled status whose score has decayed below RetentionThreshold reverts
// to UNKNOWN. In every other case the current status is kept.
func Evaluate(current model.AcceptanceStatus, score, accepted, rejected int, th config.Thresholds) model.AcceptanceStatus {
	if next, ok := transition(score, accepted, rejected, th); ok {
		return next
	}

	// Evidence no longer supports the settled answer.
	if (current == model.StatusAccepted || current == model.StatusNotAccepted) &&
		score < th.RetentionThreshold {
		return model.StatusUnknown
	}

	return current
}

// transition reports the supermajority outcome, if the full rule is met.
func transition(score, accepted, rejected int, th config.Thresholds) (model.AcceptanceStatus, bool) {
	if accepted+rejected < th.MinVerifications {
		return "", false
	}
	if score < th.MinConfidenceForChange {
		return "", false
	}
	switch {
	case accepted > th.SupermajorityRatio*rejected:
		return model.StatusAccepted, true
	case rejected > th.SupermajorityRatio*accepted:
		return model.StatusNotAccepted, true
	default:
		return "", false
	}
}

// Validate checks that a proposed status change obeys the transition rules.
// A violation is a programming error in the caller, never user input; the
// caller must refuse the mutation and log the returned error.
func Validate(current, proposed model.AcceptanceStatus, score, accepted, rejected int, th config.Thresholds) error {
	if proposed == current {
		return nil
	}
	if want := Evaluate(current, score, accepted, rejected, th); proposed != want {
		return fmt.Errorf("consensus: invalid transition %s -> %s (score=%d accepted=%d rejected=%d, want %s)",
			current, proposed, score, accepted, rejected, want)
	}
	return nil
}
