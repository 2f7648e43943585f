package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/gate"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/identity"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/middleware"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/repository"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/service"
)

type VoteHandler struct {
	svc *service.VoteService
	ids *identity.Extractor
}

func NewVoteHandler(svc *service.VoteService, ids *identity.Extractor) *VoteHandler {
	return &VoteHandler{svc: svc, ids: ids}
}

// Submit handles POST /api/votes
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	claimID, errMsg := middleware.ValidateClaimID(req.ClaimID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.ClaimID = claimID

	direction, errMsg := middleware.ValidateDirection(req.Direction)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.Direction = direction

	botToken, errMsg := middleware.ValidateBotToken(req.BotToken)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.BotToken = botToken

	actor := h.ids.Extract(c.IP(), "", c.Get("User-Agent"))

	resp, err := h.svc.Submit(c.Context(), req, actor)
	if err != nil {
		var rej *gate.RejectionError
		if errors.As(err, &rej) {
			return rejectionResponse(c, rej)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Claim not found")
		}
		if errors.Is(err, repository.ErrDuplicateVote) {
			return middleware.ErrorResponse(c, fiber.StatusConflict, "DUPLICATE_VOTE", "This claim has already been voted on in that direction")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit vote")
	}

	return c.JSON(resp)
}
