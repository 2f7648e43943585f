package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/config"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/identity"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/metrics"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

// DuplicateChecker looks up recent claims for the duplicate-window stage.
type DuplicateChecker interface {
	HasRecentClaim(ctx context.Context, tuple model.TupleKey, fingerprint, contactHash string, since time.Time) (bool, error)
}

// VoteFinder looks up an existing vote for the vote-identity stage.
// It returns nil with no error when the actor has not voted on the claim.
type VoteFinder interface {
	FindVote(ctx context.Context, claimID, fingerprint string) (*model.VoteRecord, error)
}

// ClaimInput is a claim submission as seen by the gate.
type ClaimInput struct {
	Identity   identity.ActorIdentity
	Tuple      model.TupleKey
	DecoyValue string
	BotToken   string
}

// VoteInput is a vote submission as seen by the gate.
type VoteInput struct {
	Identity   identity.ActorIdentity
	ClaimID    string
	Direction  model.VoteDirection
	DecoyValue string
	BotToken   string
}

// Pipeline is the ordered chain of abuse filters. Stages run in a fixed
// order; the first rejection wins. Degraded-dependency fallbacks are decided
// here and never surface as errors to callers.
type Pipeline struct {
	th       config.Thresholds
	counter  WindowCounter // distributed in multi-instance deployments
	fallback *LocalCounter // tightened ceilings when dependencies fail
	verifier BotVerifier   // nil disables bot scoring
	claims   DuplicateChecker
	votes    VoteFinder
	log      zerolog.Logger
	now      func() time.Time
}

func NewPipeline(th config.Thresholds, counter WindowCounter, verifier BotVerifier, claims DuplicateChecker, votes VoteFinder, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		th:       th,
		counter:  counter,
		fallback: NewLocalCounter(),
		verifier: verifier,
		claims:   claims,
		votes:    votes,
		log:      log.With().Str("component", "gate").Logger(),
		now:      time.Now,
	}
}

// SetClock overrides the pipeline clock. Test hook.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
	p.fallback.now = now
}

// CheckClaim runs a claim submission through all claim stages. The returned
// error is an infrastructure failure (ledger lookup), never a policy
// decision; policy lives in the Outcome.
func (p *Pipeline) CheckClaim(ctx context.Context, in ClaimInput) (Outcome, error) {
	out := p.rateStage(ctx, ActionSubmitClaim, in.Identity.Fingerprint, p.th.WriteCeiling)
	if out.Rejected() {
		return out, nil
	}

	if d := p.decoyStage(ActionSubmitClaim, in.DecoyValue, in.Identity.Fingerprint); d.Decision == Discard {
		return d, nil
	}

	bot := p.botStage(ctx, in.BotToken, in.Identity.Fingerprint)
	if bot.Rejected() {
		return bot, nil
	}
	out = merge(out, bot)

	since := p.now().Add(-p.th.DuplicateWindow)
	dup, err := p.claims.HasRecentClaim(ctx, in.Tuple, in.Identity.Fingerprint, in.Identity.ContactHash, since)
	if err != nil {
		return Outcome{}, fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		metrics.GateRejections.WithLabelValues("duplicate", ReasonDuplicateClaim).Inc()
		return Outcome{Decision: Reject, Reason: ReasonDuplicateClaim}, nil
	}

	return out, nil
}

// CheckVote runs a vote submission through all vote stages.
func (p *Pipeline) CheckVote(ctx context.Context, in VoteInput) (Outcome, error) {
	out := p.rateStage(ctx, ActionSubmitVote, in.Identity.Fingerprint, p.th.WriteCeiling)
	if out.Rejected() {
		return out, nil
	}

	if d := p.decoyStage(ActionSubmitVote, in.DecoyValue, in.Identity.Fingerprint); d.Decision == Discard {
		return d, nil
	}

	bot := p.botStage(ctx, in.BotToken, in.Identity.Fingerprint)
	if bot.Rejected() {
		return bot, nil
	}
	out = merge(out, bot)

	existing, err := p.votes.FindVote(ctx, in.ClaimID, in.Identity.Fingerprint)
	if err != nil {
		return Outcome{}, fmt.Errorf("vote lookup: %w", err)
	}
	if existing != nil {
		if existing.Direction == in.Direction {
			metrics.GateRejections.WithLabelValues("vote-identity", ReasonDuplicateVote).Inc()
			return Outcome{Decision: Reject, Reason: ReasonDuplicateVote}, nil
		}
		out.VoteFlip = true
	}

	return out, nil
}

// CheckSearch applies only the rate stage, with the read ceiling.
func (p *Pipeline) CheckSearch(ctx context.Context, fingerprint string) Outcome {
	return p.rateStage(ctx, ActionSearch, fingerprint, p.th.SearchCeiling)
}

// rateStage counts the attempt and rejects past the ceiling. An unreachable
// counter store fails open: the write is admitted as degraded, bounded by
// the tightened secondary ceiling on the local fallback counter.
func (p *Pipeline) rateStage(ctx context.Context, class, fingerprint string, ceiling int) Outcome {
	key := "rate:" + class + ":" + fingerprint

	count, reset, err := p.counter.IncrementAndCount(ctx, key, p.th.RateWindow)
	if err != nil {
		p.log.Warn().Err(err).Str("action", class).Msg("rate counter unreachable, failing open")
		metrics.DegradedAdmissions.WithLabelValues("rate-counter").Inc()

		fbCount, fbReset, _ := p.fallback.IncrementAndCount(ctx, "degraded:"+key, p.th.RateWindow)
		if fbCount > int64(p.th.DegradedCeiling) {
			metrics.GateRejections.WithLabelValues("rate", ReasonRateLimited).Inc()
			return Outcome{Decision: Reject, Reason: ReasonRateLimited, RetryAfter: retryAfterSecs(fbReset), Degraded: true}
		}
		return Outcome{Decision: Admit, Degraded: true}
	}

	if count > int64(ceiling) {
		metrics.GateRejections.WithLabelValues("rate", ReasonRateLimited).Inc()
		return Outcome{Decision: Reject, Reason: ReasonRateLimited, RetryAfter: retryAfterSecs(reset)}
	}
	return Outcome{Decision: Admit}
}

// decoyStage flags writes that populated a field no legitimate client sends.
// The write is discarded but the caller sees an ordinary success, so the
// origin cannot tell it was detected.
func (p *Pipeline) decoyStage(class, decoyValue, fingerprint string) Outcome {
	if decoyValue == "" {
		return Outcome{Decision: Admit}
	}
	p.log.Info().
		Str("action", class).
		Str("fingerprint_prefix", prefix(fingerprint, 12)).
		Msg("decoy field populated, discarding write")
	metrics.DecoyDiscards.Inc()
	return Outcome{Decision: Discard}
}

// botStage scores the write's humanness. Unreachable scoring follows the
// configured fail mode: closed rejects everything, open admits under the
// strict fallback ceiling and tags the response degraded.
func (p *Pipeline) botStage(ctx context.Context, token, fingerprint string) Outcome {
	if p.verifier == nil {
		return Outcome{Decision: Admit}
	}
	if token == "" {
		metrics.GateRejections.WithLabelValues("bot", ReasonMissingToken).Inc()
		return Outcome{Decision: Reject, Reason: ReasonMissingToken}
	}

	score, err := p.verifier.Verify(ctx, token, fingerprint)
	if err != nil {
		if !p.th.BotFailOpen {
			p.log.Warn().Err(err).Msg("bot scoring unreachable, failing closed")
			metrics.GateRejections.WithLabelValues("bot", ReasonBotUnavailable).Inc()
			return Outcome{Decision: Reject, Reason: ReasonBotUnavailable}
		}

		p.log.Warn().Err(err).Msg("bot scoring unreachable, failing open")
		metrics.DegradedAdmissions.WithLabelValues("bot-verifier").Inc()

		fbCount, fbReset, _ := p.fallback.IncrementAndCount(ctx, "botfb:"+fingerprint, p.th.BotFallbackWindow)
		if fbCount > int64(p.th.BotFallbackCeiling) {
			metrics.GateRejections.WithLabelValues("bot", ReasonRateLimited).Inc()
			return Outcome{Decision: Reject, Reason: ReasonRateLimited, RetryAfter: retryAfterSecs(fbReset), Degraded: true}
		}
		return Outcome{Decision: Admit, Degraded: true}
	}

	if score < p.th.BotScoreThreshold {
		metrics.GateRejections.WithLabelValues("bot", ReasonBotSuspected).Inc()
		return Outcome{Decision: Reject, Reason: ReasonBotSuspected, BotScore: &score}
	}
	return Outcome{Decision: Admit, BotScore: &score}
}

func merge(a, b Outcome) Outcome {
	a.Degraded = a.Degraded || b.Degraded
	if b.BotScore != nil {
		a.BotScore = b.BotScore
	}
	return a
}

func retryAfterSecs(reset time.Duration) int {
	s := int(reset.Seconds()) + 1
	if s < 1 {
		s = 1
	}
	return s
}

func prefix(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
