package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/BhataDev/mtc-server/config"
	"github.com/BhataDev/mtc-server/internal/branch"
	"github.com/BhataDev/mtc-server/internal/database"
	"github.com/BhataDev/mtc-server/internal/geoip"
	"github.com/BhataDev/mtc-server/internal/handlers"
	"github.com/BhataDev/mtc-server/internal/middleware"
	"github.com/BhataDev/mtc-server/internal/order"
	"github.com/BhataDev/mtc-server/internal/pricing"
	"github.com/BhataDev/mtc-server/internal/store/postgres"
	"github.com/BhataDev/mtc-server/internal/sweepers"
	"github.com/BhataDev/mtc-server/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)
	zlog.Logger = *logger

	logger.Info().Msg("Starting offers service")

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	pool := database.Pool()

	sweeper := sweepers.NewCampaignSweeper(pool, logger, 5*time.Minute)
	go sweeper.Start(ctx)

	campaignStore := postgres.NewCampaignStore(pool)
	catalogStore := postgres.NewCatalogStore(pool)
	branchStore := postgres.NewBranchStore(pool)
	orderStore := postgres.NewOrderStore(pool)

	clock := pricing.SystemClock{}
	metrics := pricing.NewMetricsRecorder()

	pricingService := pricing.NewService(campaignStore, catalogStore, clock, metrics)
	locator := branch.NewLocator(branchStore)
	resolver := geoip.NewResolver(geoip.Config{
		Endpoint: cfg.GeoIP.Endpoint,
		Timeout:  cfg.GeoIP.Timeout,
		Fallback: geoip.Location{
			Lat:  cfg.GeoIP.FallbackLat,
			Lng:  cfg.GeoIP.FallbackLng,
			City: cfg.GeoIP.FallbackCity,
		},
	})
	orderService := order.NewService(
		pricingService, catalogStore, locator, resolver, orderStore, clock,
		order.Config{AssignmentRadiusKm: cfg.Branch.AssignmentRadiusKm},
	)

	handlers.Init(pricingService, orderService, locator, resolver, campaignStore, clock)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
	}))
	{
		api.POST("/offers/resolve", handlers.ResolveOffers)
		api.POST("/products/price", handlers.PriceProducts)
		api.GET("/branches/nearest", handlers.NearestBranch)
		api.GET("/branches/within", handlers.BranchesWithin)
		api.POST("/orders", handlers.CreateOrder)
	}

	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware())
	internal.Use(middleware.ServiceRateLimitMiddleware(50, 100))
	{
		internal.GET("/health", handlers.HealthCheck)

		campaigns := internal.Group("/campaigns")
		{
			campaigns.GET("", handlers.ListCampaigns)
			campaigns.POST("", handlers.CreateCampaign)
			campaigns.PUT("/:id", handlers.UpdateCampaign)
			campaigns.DELETE("/:id", handlers.DeactivateCampaign)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "mtc-server").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
