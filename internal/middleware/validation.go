package middleware

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

// Field length limits matching database schema constraints.
const (
	MaxProviderIDLen = 64  // verification_claims.provider_id VARCHAR(64)
	MaxPlanIDLen     = 64  // verification_claims.plan_id VARCHAR(64)
	MaxLocationIDLen = 64  // verification_claims.location_id VARCHAR(64)
	MaxContactLen    = 128 // contact is hashed before storage; bound the input
	MaxBotTokenLen   = 2048
)

var (
	// idRe matches provider/plan/location identifiers: alphanumeric,
	// dash, underscore, dot.
	idRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	// uuidRe matches claim IDs issued at admission.
	uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// RateLimitResponse returns the 429 envelope with a Retry-After header and
// a machine-readable retryAfter hint in seconds.
func RateLimitResponse(c fiber.Ctx, retryAfter int) error {
	if retryAfter < 0 {
		retryAfter = 0
	}
	c.Set("Retry-After", strconv.Itoa(retryAfter))
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{
			"code":       "RATE_LIMITED",
			"message":    "Too many requests.",
			"retryAfter": retryAfter,
		},
	})
}

// ValidateID checks a provider/plan/location identifier. field names the
// identifier in error messages; maxLen is the per-field length limit.
func ValidateID(id, field string, maxLen int) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", field + " is required"
	}
	if len(id) > maxLen {
		return "", field + " must be at most " + strconv.Itoa(maxLen) + " characters"
	}
	if !idRe.MatchString(id) {
		return "", field + " contains invalid characters"
	}
	return id, ""
}

// ValidateOptionalID is ValidateID for fields that may be absent.
func ValidateOptionalID(id, field string, maxLen int) (string, string) {
	if strings.TrimSpace(id) == "" {
		return "", ""
	}
	return ValidateID(id, field, maxLen)
}

// ValidateBotToken bounds the opaque verification token before it is sent to
// the verifier. An empty token is allowed here; the gate decides whether it
// is required.
func ValidateBotToken(token string) (string, string) {
	token = strings.TrimSpace(token)
	if len(token) > MaxBotTokenLen {
		return "", "botToken must be at most " + strconv.Itoa(MaxBotTokenLen) + " characters"
	}
	return token, ""
}

// ValidateClaimID checks that a claim ID is a well-formed UUID.
func ValidateClaimID(id string) (string, string) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return "", "claimId is required"
	}
	if !uuidRe.MatchString(id) {
		return "", "claimId must be a UUID"
	}
	return id, ""
}

// ValidateClaimValue checks the ACCEPTED/NOT_ACCEPTED field.
func ValidateClaimValue(v string) (string, string) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return "", "claim is required"
	}
	if v != string(model.ClaimAccepted) && v != string(model.ClaimNotAccepted) {
		return "", "claim must be ACCEPTED or NOT_ACCEPTED"
	}
	return v, ""
}

// ValidateSource checks an optional source value.
func ValidateSource(v string) (string, string) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return "", ""
	}
	if !model.ValidSources[model.Source(v)] {
		return "", "source must be one of: CROWDSOURCE, OFFICIAL_REGISTRY, CARRIER_FEED, AUTOMATED"
	}
	return v, ""
}

// ValidateDirection checks the vote direction field.
func ValidateDirection(v string) (string, string) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", "direction is required"
	}
	if !model.ValidDirections[model.VoteDirection(v)] {
		return "", "direction must be up or down"
	}
	return v, ""
}

// ValidateContact trims and truncates the optional contact to input limits.
func ValidateContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if len(contact) > MaxContactLen {
		contact = contact[:MaxContactLen]
	}
	return contact
}
