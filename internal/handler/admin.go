package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/config"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/middleware"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/service"
)

// AdminHandler triggers the maintenance jobs on demand. Both endpoints run
// the same code paths the background workers use, so an operator can dry-run
// a sweep before letting the schedule catch up.
type AdminHandler struct {
	recalc  *service.RecalcWorker
	sweeper *service.Sweeper
	th      config.Thresholds
}

func NewAdminHandler(recalc *service.RecalcWorker, sweeper *service.Sweeper, th config.Thresholds) *AdminHandler {
	return &AdminHandler{recalc: recalc, sweeper: sweeper, th: th}
}

type jobRequest struct {
	DryRun    bool `json:"dryRun"`
	BatchSize int  `json:"batchSize,omitempty"`
}

// Recalc handles POST /api/admin/recalc
func (h *AdminHandler) Recalc(c fiber.Ctx) error {
	var req jobRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		}
	}
	pageSize := req.BatchSize
	if pageSize <= 0 {
		pageSize = h.th.RecalcPageSize
	}

	report, err := h.recalc.RunOnce(c.Context(), req.DryRun, pageSize)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Recalculation failed")
	}
	return c.JSON(report)
}

// Sweep handles POST /api/admin/sweep
func (h *AdminHandler) Sweep(c fiber.Ctx) error {
	var req jobRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		}
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = h.th.SweepBatchSize
	}

	report, err := h.sweeper.RunOnce(c.Context(), req.DryRun, batchSize)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Sweep failed")
	}
	return c.JSON(report)
}
