package config

import (
	"time"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

// Thresholds is the versioned tuning surface for the gate, scoring, and
// consensus components. One value is built at startup and injected at
// construction time; nothing reads these from the environment afterwards.
type Thresholds struct {
	Version int

	// --- Abuse gate ---

	// WriteCeiling is the sliding-window limit for submit-claim and
	// submit-vote actions per actor fingerprint.
	WriteCeiling int
	// SearchCeiling is the sliding-window limit for read/search actions.
	SearchCeiling int
	// RateWindow is the window the ceilings apply to.
	RateWindow time.Duration
	// DegradedCeiling applies when the distributed counter is unreachable.
	DegradedCeiling int
	// BotFallbackCeiling applies when bot scoring is unreachable and the
	// gate is configured to fail open.
	BotFallbackCeiling int
	// BotFallbackWindow is the window for BotFallbackCeiling.
	BotFallbackWindow time.Duration
	// BotScoreThreshold is the minimum humanness score (0.0-1.0).
	BotScoreThreshold float64
	// BotFailOpen admits writes when the scoring service is unreachable.
	BotFailOpen bool
	// DuplicateWindow is how long a (actor, tuple) resubmission is rejected.
	DuplicateWindow time.Duration

	// --- Scoring ---

	SourceWeights map[model.Source]float64
	// MaxRecencyPoints decays to zero as claim age approaches the
	// specialty's freshness threshold.
	MaxRecencyPoints float64
	MaxVolumePoints  float64
	// VolumeHalfLife is the verification count at which the volume factor
	// reaches ~63% of its maximum.
	VolumeHalfLife      float64
	MaxAgreementPoints  float64
	// AgreementOptimum is the claim count at which unanimous agreement
	// earns full points.
	AgreementOptimum int
	// DefaultFreshness applies to specialty classes with no override.
	DefaultFreshness      time.Duration
	FreshnessBySpecialty  map[string]time.Duration
	// LowVolumeTierCap caps the tier while verificationCount is below
	// MinVerifications.
	LowVolumeTierCap model.ConfidenceTier

	// --- Consensus ---

	MinVerifications       int
	MinConfidenceForChange int
	// SupermajorityRatio: majority must strictly exceed minority times this.
	SupermajorityRatio int
	// RetentionThreshold: a settled status decays to UNKNOWN below this.
	RetentionThreshold int

	// --- TTLs and jobs ---

	TTLBySource     map[model.Source]time.Duration
	RecalcInterval  time.Duration
	SweepInterval   time.Duration
	SweepBatchSize  int
	RecalcPageSize  int
}

// DefaultThresholds returns the documented production tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Version: 1,

		WriteCeiling:       10,
		SearchCeiling:      120,
		RateWindow:         time.Hour,
		DegradedCeiling:    5,
		BotFallbackCeiling: 3,
		BotFallbackWindow:  time.Hour,
		BotScoreThreshold:  0.5,
		BotFailOpen:        true,
		DuplicateWindow:    30 * 24 * time.Hour,

		SourceWeights: map[model.Source]float64{
			model.SourceOfficialRegistry: 25,
			model.SourceCarrierFeed:      22,
			model.SourceCrowdsource:      15,
			model.SourceAutomated:        10,
		},
		MaxRecencyPoints:   30,
		MaxVolumePoints:    25,
		VolumeHalfLife:     3,
		MaxAgreementPoints: 20,
		AgreementOptimum:   3,
		DefaultFreshness:   90 * 24 * time.Hour,
		FreshnessBySpecialty: map[string]time.Duration{
			// High-churn categories age out fast.
			"behavioral_health": 30 * 24 * time.Hour,
			"urgent_care":       30 * 24 * time.Hour,
			"dental":            60 * 24 * time.Hour,
		},
		LowVolumeTierCap: model.TierMedium,

		MinVerifications:       3,
		MinConfidenceForChange: 60,
		SupermajorityRatio:     2,
		RetentionThreshold:     26,

		TTLBySource: map[model.Source]time.Duration{
			model.SourceCrowdsource:      180 * 24 * time.Hour,
			model.SourceOfficialRegistry: 365 * 24 * time.Hour,
			model.SourceCarrierFeed:      365 * 24 * time.Hour,
			model.SourceAutomated:        90 * 24 * time.Hour,
		},
		RecalcInterval: 6 * time.Hour,
		SweepInterval:  time.Hour,
		SweepBatchSize: 500,
		RecalcPageSize: 200,
	}
}

// Freshness returns the decay threshold for a specialty class.
func (t Thresholds) Freshness(specialtyClass string) time.Duration {
	if d, ok := t.FreshnessBySpecialty[specialtyClass]; ok {
		return d
	}
	return t.DefaultFreshness
}

// TTL returns the claim time-to-live for a source. Zero means no TTL.
func (t Thresholds) TTL(source model.Source) time.Duration {
	return t.TTLBySource[source]
}

// loadThresholds applies environment overrides on top of the defaults.
// Only operationally useful knobs are exposed; scoring weights stay in code.
func loadThresholds() Thresholds {
	th := DefaultThresholds()
	th.WriteCeiling = getEnvInt("RATE_WRITE_CEILING", th.WriteCeiling)
	th.SearchCeiling = getEnvInt("RATE_SEARCH_CEILING", th.SearchCeiling)
	th.RateWindow = getEnvDuration("RATE_WINDOW", th.RateWindow)
	th.BotFailOpen = getEnvBool("BOT_FAIL_OPEN", th.BotFailOpen)
	th.DuplicateWindow = getEnvDuration("DUPLICATE_WINDOW", th.DuplicateWindow)
	th.RecalcInterval = getEnvDuration("RECALC_INTERVAL", th.RecalcInterval)
	th.SweepInterval = getEnvDuration("SWEEP_INTERVAL", th.SweepInterval)
	th.SweepBatchSize = getEnvInt("SWEEP_BATCH_SIZE", th.SweepBatchSize)
	return th
}
