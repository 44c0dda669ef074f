package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/banking/fincrime-service/internal/alerts"
	"github.com/banking/fincrime-service/internal/analysis"
	"github.com/banking/fincrime-service/internal/api"
	"github.com/banking/fincrime-service/internal/cache"
	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/narrative"
	"github.com/banking/fincrime-service/internal/pkg/logger"
	"github.com/banking/fincrime-service/internal/pkg/telemetry"
	"github.com/banking/fincrime-service/internal/service"
	"github.com/banking/fincrime-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("failed to load configuration: %v", err)
	}

	log, err := logger.New("fincrime-service", cfg.Telemetry.Environment, cfg.Debug)
	if err != nil {
		stdlog.Fatalf("failed to initialize logger: %v", err)
	}
	defer log.Sync()

	// Risk catalog: built-in tables with the regulatory thresholds
	// taken from configuration. Malformed data is fatal; the service
	// must not serve partially-initialized state.
	data := catalog.DefaultData()
	data.Thresholds = catalog.Thresholds{
		CTRAmount:         cfg.Compliance.CTRThreshold,
		CrossBorderAmount: cfg.Compliance.CrossBorderThreshold,
		HomeCountry:       cfg.Compliance.HomeCountry,
	}
	cat, err := catalog.New(data)
	if err != nil {
		log.Fatal("invalid risk catalog", logger.ErrorField(err))
	}

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal("failed to initialize telemetry", logger.ErrorField(err))
	}

	var analysisCache cache.AnalysisCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to Redis", logger.ErrorField(err))
		}
		defer redisCache.Close()
		analysisCache = redisCache
		log.Info("analysis cache backed by Redis",
			logger.StringField("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)))
	} else {
		analysisCache = cache.NewMemoryCache(cfg.Redis.AnalysisCacheTTL)
	}

	var publisher alerts.Publisher = alerts.NopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := alerts.NewKafkaPublisher(cfg.Kafka, log)
		if err != nil {
			log.Fatal("failed to start the Kafka alert publisher", logger.ErrorField(err))
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	var renderer narrative.Renderer = narrative.NewTemplateRenderer()
	if cfg.Narrative.RemoteEnabled {
		renderer = narrative.NewRemoteRenderer(cfg.Narrative, log)
	}

	coordinator := analysis.NewCoordinator(
		analysis.NewAnalyzer(cat, cfg.Analysis),
		analysis.NewAssessor(cat),
		analysis.NewChecker(cat),
		analysis.NewPatternEngine(cat, cfg.Patterns),
		renderer,
		cat,
		cfg.Analysis,
		log,
	)

	txStore := store.New()
	svc := service.New(cat, txStore, coordinator, analysisCache, publisher, renderer, cfg.Generator, log)

	if cfg.Generator.SeedCount > 0 {
		if _, err := svc.GenerateTransactions(ctx, cfg.Generator.SeedCount, cfg.Generator.SeedHighRiskFraction, nil); err != nil {
			log.Fatal("failed to seed the transaction population", logger.ErrorField(err))
		}
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}))
	if cfg.Security.RateLimitPerMinute > 0 {
		limit := rate.Limit(float64(cfg.Security.RateLimitPerMinute) / 60.0)
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(limit)))
	}

	api.NewServer(svc, log).Register(e)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped unexpectedly", logger.ErrorField(err))
		}
	}()

	log.Info("server started",
		logger.StringField("addr", serverAddr),
		logger.StringField("renderer", svc.RendererName()),
		logger.IntField("seeded_transactions", txStore.Len()),
	)

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down", logger.DurationField("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", logger.ErrorField(err))
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error("telemetry shutdown failed", logger.ErrorField(err))
	}
}
