// Package metrics holds the Prometheus collectors for the verification
// engine. Collectors are usable immediately; Register wires them (and the
// pool gauges) into the default registry once at startup.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// WritesAdmitted counts ledger writes that passed the full gate,
	// by action class.
	WritesAdmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_writes_admitted_total",
			Help: "Writes admitted to the ledger, by action class.",
		},
		[]string{"action"},
	)

	// GateRejections counts policy rejections by stage and reason.
	GateRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_gate_rejections_total",
			Help: "Writes rejected by the abuse gate, by stage and reason.",
		},
		[]string{"stage", "reason"},
	)

	// DegradedAdmissions counts fail-open admissions by the dependency
	// that was unreachable.
	DegradedAdmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_degraded_admissions_total",
			Help: "Writes admitted under a fallback policy, by failed dependency.",
		},
		[]string{"dependency"},
	)

	// DecoyDiscards counts writes silently dropped by the decoy trap.
	DecoyDiscards = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verify_decoy_discards_total",
			Help: "Writes silently discarded because the decoy field was populated.",
		},
	)

	// RequestDuration is the HTTP request latency histogram.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verify_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestsInFlight gauges concurrently served HTTP requests.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "verify_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	// CacheHits / CacheMisses track the aggregate cache.
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verify_cache_hits_total",
			Help: "Total aggregate cache hits.",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verify_cache_misses_total",
			Help: "Total aggregate cache misses.",
		},
	)

	// RecalcDuration times decay recalculation runs.
	RecalcDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "verify_recalc_duration_seconds",
			Help:    "Duration of decay recalculation runs.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SweeperDeleted counts rows removed by the expiration sweeper.
	SweeperDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_sweeper_deleted_total",
			Help: "Rows deleted by the expiration sweeper, by kind.",
		},
		[]string{"kind"},
	)
)

// Register wires all collectors into the default registry. Call once.
func Register(pool *pgxpool.Pool) {
	if pool != nil {
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "verify_db_connection_pool_active",
					Help: "Number of active database connections.",
				},
				func() float64 { return float64(pool.Stat().AcquiredConns()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "verify_db_connection_pool_idle",
					Help: "Number of idle database connections.",
				},
				func() float64 { return float64(pool.Stat().IdleConns()) },
			),
		)
	}

	prometheus.MustRegister(
		WritesAdmitted,
		GateRejections,
		DegradedAdmissions,
		DecoyDiscards,
		RequestDuration,
		RequestsInFlight,
		CacheHits,
		CacheMisses,
		RecalcDuration,
		SweeperDeleted,
	)
}

// Middleware records request duration and in-flight count.
func Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Don't instrument the /metrics endpoint itself
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy path and method into owned strings BEFORE c.Next() — Fiber
		// returns slices backed by the fasthttp buffer which can be reused
		// or overwritten by handlers (especially fasthttpadaptor).
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := sanitizeEndpoint(path)

		RequestsInFlight.Inc()
		start := time.Now()

		// Deferred so the gauge and histogram stay balanced even when a
		// downstream handler panics past this middleware.
		defer func() {
			status := strconv.Itoa(c.Response().StatusCode())
			RequestDuration.WithLabelValues(endpoint, method, status).Observe(time.Since(start).Seconds())
			RequestsInFlight.Dec()
		}()

		return c.Next()
	}
}

// sanitizeEndpoint normalizes paths to avoid cardinality explosion.
func sanitizeEndpoint(path string) string {
	if len(path) > len("/api/providers/") && path[:len("/api/providers/")] == "/api/providers/" {
		return "/api/providers/:providerId/plans"
	}
	return path
}

// Handler serves the Prometheus /metrics endpoint via Fiber.
func Handler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
