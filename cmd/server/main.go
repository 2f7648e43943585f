package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/config"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/db"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/gate"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/handler"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/identity"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/metrics"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/middleware"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/repository"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/router"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/service"
)

func main() {
	cfg := config.Load()

	middleware.InitLogger(cfg.LogLevel, "provider-verify")
	log := middleware.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	cache := service.NewCacheService(cfg.RedisURL, log)
	defer cache.Close()

	// Repositories
	claims := repository.NewClaimRepo(pool)
	votes := repository.NewVoteRepo(pool)
	aggs := repository.NewAggregateRepo(pool)

	// Abuse gate. The rate counter is shared across instances when Redis is
	// up; otherwise each instance counts locally.
	th := cfg.Thresholds
	var counter gate.WindowCounter
	if rdb := cache.Client(); rdb != nil {
		counter = gate.NewRedisCounter(rdb)
	} else {
		log.Warn().Msg("redis unavailable, per-instance rate limiting only")
		counter = gate.NewLocalCounter()
	}
	var verifier gate.BotVerifier
	if cfg.BotVerifyURL != "" {
		verifier = gate.NewHTTPBotVerifier(cfg.BotVerifyURL)
	} else {
		log.Warn().Msg("no bot verification URL configured, bot stage disabled")
	}
	pipeline := gate.NewPipeline(th, counter, verifier, claims, votes, log)

	// Services
	rescorer := service.NewRescorer(claims, aggs, th, log)
	claimSvc := service.NewClaimService(pool, pipeline, claims, aggs, rescorer, cache, th, log)
	voteSvc := service.NewVoteService(pool, pipeline, claims, votes, aggs, rescorer, cache, log)

	// Background jobs
	recalc := service.NewRecalcWorker(pool, aggs, rescorer, cache, th.RecalcInterval, th.RecalcPageSize, log)
	sweeper := service.NewSweeper(claims, aggs, th.SweepInterval, th.SweepBatchSize, log)
	go recalc.Start(ctx)
	go sweeper.Start(ctx)

	metrics.Register(pool)

	ids := identity.NewExtractor(cfg.FingerprintSalt)
	handlers := &router.Handlers{
		Claim:      handler.NewClaimHandler(claimSvc, ids),
		Vote:       handler.NewVoteHandler(voteSvc, ids),
		Acceptance: handler.NewAcceptanceHandler(aggs, cache, pipeline, ids),
		Stats:      handler.NewStatsHandler(aggs),
		Admin:      handler.NewAdminHandler(recalc, sweeper, th),
		Health:     handler.NewHealthHandler(pool, cache.Client()),
	}

	app := fiber.New(fiber.Config{
		AppName:      "Provider Verify API",
		ServerHeader: "ProviderVerify",
	})
	router.Setup(app, handlers, cfg.CORSOrigins)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		recalc.Stop()
		sweeper.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("verification engine starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("server stopped cleanly")
}
