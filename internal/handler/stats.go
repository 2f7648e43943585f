package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/middleware"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/repository"
)

type StatsHandler struct {
	aggs *repository.AggregateRepo
}

func NewStatsHandler(aggs *repository.AggregateRepo) *StatsHandler {
	return &StatsHandler{aggs: aggs}
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(c fiber.Ctx) error {
	stats, err := h.aggs.Stats(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch statistics")
	}

	return c.JSON(stats)
}
