package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareBalancesInFlight(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/ok", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	before := testutil.ToFloat64(RequestsInFlight)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ok", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := testutil.ToFloat64(RequestsInFlight); got != before {
		t.Errorf("in-flight gauge = %v after request, want %v", got, before)
	}
}

func TestMiddlewareBalancesInFlightOnPanic(t *testing.T) {
	// The recoverer sits above the metrics middleware, the same ordering
	// the router uses, so the panic unwinds through it.
	app := fiber.New()
	app.Use(recoverer.New())
	app.Use(Middleware())
	app.Get("/boom", func(c fiber.Ctx) error {
		panic("boom")
	})

	before := testutil.ToFloat64(RequestsInFlight)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if got := testutil.ToFloat64(RequestsInFlight); got != before {
		t.Errorf("in-flight gauge = %v after panic, want %v", got, before)
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/acceptance", "/api/acceptance"},
		{"/api/providers/npi-123/plans", "/api/providers/:providerId/plans"},
		{"/api/providers/", "/api/providers/"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		if got := sanitizeEndpoint(tt.path); got != tt.want {
			t.Errorf("sanitizeEndpoint(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
