package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/gate"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/middleware"
)

// rejectionResponse maps abuse-gate rejections to HTTP responses. Every
// policy rejection carries a machine-readable reason; rate rejections also
// carry a backoff hint.
func rejectionResponse(c fiber.Ctx, rej *gate.RejectionError) error {
	switch rej.Reason {
	case gate.ReasonRateLimited:
		return middleware.RateLimitResponse(c, rej.RetryAfter)
	case gate.ReasonMissingToken:
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_BOT_TOKEN", "Bot verification token is required")
	case gate.ReasonBotSuspected:
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "BOT_SUSPECTED", "Submission failed bot verification")
	case gate.ReasonBotUnavailable:
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "BOT_UNAVAILABLE", "Bot verification is temporarily unavailable")
	case gate.ReasonDuplicateClaim:
		return middleware.ErrorResponse(c, fiber.StatusConflict, "DUPLICATE_CLAIM", "A recent claim for this provider and plan already exists from this submitter")
	case gate.ReasonDuplicateVote:
		return middleware.ErrorResponse(c, fiber.StatusConflict, "DUPLICATE_VOTE", "This claim has already been voted on in that direction")
	default:
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "REJECTED", "Submission rejected")
	}
}
