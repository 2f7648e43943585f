package scoring

import (
	"testing"
	"time"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/config"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

func evidence(claim model.ClaimValue, source model.Source, createdAt time.Time) Evidence {
	return Evidence{Claim: claim, Source: source, CreatedAt: createdAt}
}

func TestScore(t *testing.T) {
	th := config.DefaultThresholds()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		claims    []Evidence
		wantScore int
		wantTier  model.ConfidenceTier
	}{
		{
			name:      "no evidence",
			claims:    nil,
			wantScore: 0,
			wantTier:  model.TierVeryLow,
		},
		{
			// 15 source + 30 recency + 7.09 volume + 6.67 agreement
			name: "single fresh crowdsourced claim",
			claims: []Evidence{
				evidence(model.ClaimAccepted, model.SourceCrowdsource, now),
			},
			wantScore: 59,
			wantTier:  model.TierMedium,
		},
		{
			// 15 source + 30 recency + 15.80 volume + 20 agreement
			name: "three fresh unanimous crowdsourced claims",
			claims: []Evidence{
				evidence(model.ClaimAccepted, model.SourceCrowdsource, now),
				evidence(model.ClaimAccepted, model.SourceCrowdsource, now),
				evidence(model.ClaimAccepted, model.SourceCrowdsource, now),
			},
			wantScore: 81,
			wantTier:  model.TierHigh,
		},
		{
			// Agreement collapses toward zero on a 2:1 split.
			name: "two accepted one rejected",
			claims: []Evidence{
				evidence(model.ClaimAccepted, model.SourceCrowdsource, now),
				evidence(model.ClaimAccepted, model.SourceCrowdsource, now),
				evidence(model.ClaimNotAccepted, model.SourceCrowdsource, now),
			},
			wantScore: 67,
			wantTier:  model.TierMedium,
		},
		{
			// Recency is fully decayed at the 90-day default freshness.
			name: "single stale crowdsourced claim",
			claims: []Evidence{
				evidence(model.ClaimAccepted, model.SourceCrowdsource, now.Add(-90*24*time.Hour)),
			},
			wantScore: 29,
			wantTier:  model.TierLow,
		},
		{
			// Registry source takes the 25-point source factor.
			name: "three fresh registry claims",
			claims: []Evidence{
				evidence(model.ClaimAccepted, model.SourceOfficialRegistry, now),
				evidence(model.ClaimAccepted, model.SourceOfficialRegistry, now),
				evidence(model.ClaimAccepted, model.SourceOfficialRegistry, now),
			},
			wantScore: 91,
			wantTier:  model.TierVeryHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.claims, now, "", th)
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("Tier = %s, want %s", got.Tier, tt.wantTier)
			}
		})
	}
}

func TestScoreCounts(t *testing.T) {
	th := config.DefaultThresholds()
	now := time.Now()

	res := Score([]Evidence{
		evidence(model.ClaimAccepted, model.SourceCrowdsource, now),
		evidence(model.ClaimAccepted, model.SourceCrowdsource, now),
		evidence(model.ClaimNotAccepted, model.SourceCrowdsource, now),
	}, now, "", th)

	if res.AcceptedCount != 2 || res.RejectedCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", res.AcceptedCount, res.RejectedCount)
	}
}

func TestScoreDecaysWithAge(t *testing.T) {
	th := config.DefaultThresholds()
	now := time.Now()

	claims := func(age time.Duration) []Evidence {
		created := now.Add(-age)
		return []Evidence{
			evidence(model.ClaimAccepted, model.SourceCrowdsource, created),
			evidence(model.ClaimAccepted, model.SourceCrowdsource, created),
			evidence(model.ClaimAccepted, model.SourceCrowdsource, created),
		}
	}

	prev := Score(claims(0), now, "", th).Score
	for _, age := range []time.Duration{30 * 24 * time.Hour, 60 * 24 * time.Hour, 90 * 24 * time.Hour} {
		cur := Score(claims(age), now, "", th).Score
		if cur >= prev {
			t.Errorf("score at age %v = %d, want < %d", age, cur, prev)
		}
		prev = cur
	}
}

func TestScoreSpecialtyFreshness(t *testing.T) {
	th := config.DefaultThresholds()
	now := time.Now()
	claims := []Evidence{
		evidence(model.ClaimAccepted, model.SourceCrowdsource, now.Add(-45*24*time.Hour)),
	}

	// 45 days is half-decayed under the default window but fully decayed
	// for behavioral health.
	def := Score(claims, now, "", th).Score
	bh := Score(claims, now, "behavioral_health", th).Score
	if bh >= def {
		t.Errorf("behavioral_health score = %d, want < default %d", bh, def)
	}
}

func TestScoreVoteWeighting(t *testing.T) {
	th := config.DefaultThresholds()
	now := time.Now()

	base := []Evidence{
		{Claim: model.ClaimAccepted, Source: model.SourceCrowdsource, CreatedAt: now},
		{Claim: model.ClaimNotAccepted, Source: model.SourceCrowdsource, CreatedAt: now},
	}
	upvoted := []Evidence{
		{Claim: model.ClaimAccepted, Source: model.SourceCrowdsource, CreatedAt: now, Upvotes: 8},
		{Claim: model.ClaimNotAccepted, Source: model.SourceCrowdsource, CreatedAt: now, Downvotes: 4},
	}

	// An even split scores zero agreement; community votes break the tie.
	if got, want := Score(upvoted, now, "", th).Score, Score(base, now, "", th).Score; got <= want {
		t.Errorf("upvoted split score = %d, want > %d", got, want)
	}
}

func TestClaimWeightClamps(t *testing.T) {
	tests := []struct {
		up, down int
		want     float64
	}{
		{0, 0, 1.0},
		{2, 0, 1.5},
		{100, 0, 3.0},
		{0, 3, 0.25},
		{0, 100, 0.25},
	}
	for _, tt := range tests {
		got := claimWeight(Evidence{Upvotes: tt.up, Downvotes: tt.down})
		if got != tt.want {
			t.Errorf("claimWeight(up=%d, down=%d) = %v, want %v", tt.up, tt.down, got, tt.want)
		}
	}
}

func TestTierCappedOnLowVolume(t *testing.T) {
	th := config.DefaultThresholds()
	now := time.Now()

	// Two fresh registry claims score deep into HIGH territory, but the
	// count is below MinVerifications so the tier stays capped.
	res := Score([]Evidence{
		evidence(model.ClaimAccepted, model.SourceOfficialRegistry, now),
		evidence(model.ClaimAccepted, model.SourceOfficialRegistry, now),
	}, now, "", th)

	if res.Score < 76 {
		t.Fatalf("setup: score = %d, want >= 76", res.Score)
	}
	if res.Tier != model.TierMedium {
		t.Errorf("Tier = %s, want %s", res.Tier, model.TierMedium)
	}
}

func TestScoreBounds(t *testing.T) {
	th := config.DefaultThresholds()
	now := time.Now()

	var claims []Evidence
	for i := 0; i < 50; i++ {
		claims = append(claims, Evidence{
			Claim: model.ClaimAccepted, Source: model.SourceOfficialRegistry,
			CreatedAt: now, Upvotes: 10,
		})
	}
	res := Score(claims, now, "", th)
	if res.Score < 0 || res.Score > 100 {
		t.Errorf("score %d out of [0,100]", res.Score)
	}
}
