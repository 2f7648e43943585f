package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/gate"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/identity"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/metrics"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/middleware"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/repository"
)

// AggregateReader is the read-side lookup surface, satisfied by
// *repository.AggregateRepo.
type AggregateReader interface {
	Get(ctx context.Context, tuple model.TupleKey) (*model.AcceptanceAggregate, error)
	ListByProvider(ctx context.Context, providerID string) ([]model.AcceptanceAggregate, error)
}

// AggregateCache is the cache-aside surface, satisfied by
// *service.CacheService.
type AggregateCache interface {
	GetAggregate(ctx context.Context, tuple model.TupleKey) ([]byte, error)
	SetAggregate(ctx context.Context, tuple model.TupleKey, data interface{}) error
}

type AcceptanceHandler struct {
	aggs     AggregateReader
	cache    AggregateCache
	pipeline *gate.Pipeline
	ids      *identity.Extractor
}

func NewAcceptanceHandler(aggs AggregateReader, cache AggregateCache, pipeline *gate.Pipeline, ids *identity.Extractor) *AcceptanceHandler {
	return &AcceptanceHandler{aggs: aggs, cache: cache, pipeline: pipeline, ids: ids}
}

// Get handles GET /api/acceptance?providerId=X&planId=Y&locationId=Z
func (h *AcceptanceHandler) Get(c fiber.Ctx) error {
	providerID, errMsg := middleware.ValidateID(fiber.Query[string](c, "providerId"), "providerId", middleware.MaxProviderIDLen)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	planID, errMsg := middleware.ValidateID(fiber.Query[string](c, "planId"), "planId", middleware.MaxPlanIDLen)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	locationID, errMsg := middleware.ValidateOptionalID(fiber.Query[string](c, "locationId"), "locationId", middleware.MaxLocationIDLen)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	actor := h.ids.Extract(c.IP(), "", c.Get("User-Agent"))
	if out := h.pipeline.CheckSearch(c.Context(), actor.Fingerprint); out.Rejected() {
		return middleware.RateLimitResponse(c, out.RetryAfter)
	}

	tuple := model.TupleKey{ProviderID: providerID, PlanID: planID, LocationID: locationID}

	if data, err := h.cache.GetAggregate(c.Context(), tuple); err == nil && data != nil {
		metrics.CacheHits.Inc()
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}
	metrics.CacheMisses.Inc()

	agg, err := h.aggs.Get(c.Context(), tuple)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Only real aggregates are cached; a miss stays a miss so
			// probing unverified tuples cannot fill the cache.
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "No verification data for this provider and plan")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch acceptance")
	}

	// Cache failures never fail the read.
	_ = h.cache.SetAggregate(c.Context(), tuple, agg)

	return c.JSON(agg)
}

// ListProviderPlans handles GET /api/providers/:providerId/plans
func (h *AcceptanceHandler) ListProviderPlans(c fiber.Ctx) error {
	providerID, errMsg := middleware.ValidateID(c.Params("providerId"), "providerId", middleware.MaxProviderIDLen)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	actor := h.ids.Extract(c.IP(), "", c.Get("User-Agent"))
	if out := h.pipeline.CheckSearch(c.Context(), actor.Fingerprint); out.Rejected() {
		return middleware.RateLimitResponse(c, out.RetryAfter)
	}

	aggs, err := h.aggs.ListByProvider(c.Context(), providerID)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch provider plans")
	}

	return c.JSON(fiber.Map{
		"providerId": providerID,
		"plans":      aggs,
		"count":      len(aggs),
	})
}
