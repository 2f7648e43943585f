package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/gate"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/identity"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/middleware"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/service"
)

type ClaimHandler struct {
	svc *service.ClaimService
	ids *identity.Extractor
}

func NewClaimHandler(svc *service.ClaimService, ids *identity.Extractor) *ClaimHandler {
	return &ClaimHandler{svc: svc, ids: ids}
}

// Submit handles POST /api/claims
func (h *ClaimHandler) Submit(c fiber.Ctx) error {
	var req model.ClaimRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	providerID, errMsg := middleware.ValidateID(req.ProviderID, "providerId", middleware.MaxProviderIDLen)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.ProviderID = providerID

	planID, errMsg := middleware.ValidateID(req.PlanID, "planId", middleware.MaxPlanIDLen)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.PlanID = planID

	locationID, errMsg := middleware.ValidateOptionalID(req.LocationID, "locationId", middleware.MaxLocationIDLen)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.LocationID = locationID

	claim, errMsg := middleware.ValidateClaimValue(req.Claim)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.Claim = claim

	source, errMsg := middleware.ValidateSource(req.Source)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.Source = source

	botToken, errMsg := middleware.ValidateBotToken(req.BotToken)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.BotToken = botToken

	req.ActorContact = middleware.ValidateContact(req.ActorContact)

	actor := h.ids.Extract(c.IP(), req.ActorContact, c.Get("User-Agent"))

	resp, err := h.svc.Submit(c.Context(), req, actor)
	if err != nil {
		var rej *gate.RejectionError
		if errors.As(err, &rej) {
			return rejectionResponse(c, rej)
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit claim")
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}
