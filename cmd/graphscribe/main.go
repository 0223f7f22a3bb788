package main

import (
	"time"

	"github.com/graphscribe/graphscribe/internal/handlers"
	"github.com/graphscribe/graphscribe/internal/metrics"
	"github.com/graphscribe/graphscribe/internal/ops"
	"github.com/graphscribe/graphscribe/internal/sse"
	"github.com/graphscribe/graphscribe/pkg/config"
	"github.com/graphscribe/graphscribe/pkg/logging"
	"github.com/graphscribe/graphscribe/pkg/middleware"
	"github.com/graphscribe/graphscribe/pkg/monitoring"
	"github.com/graphscribe/graphscribe/pkg/server"
	"github.com/graphscribe/graphscribe/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("graphscribe")
	config.LoadEnv(logger)

	streamCfg := sse.Config{
		MaxConnections:    config.GetEnvInt("GRAPHSCRIBE_MAX_CONNECTIONS", 100),
		MaxPerOrigin:      config.GetEnvInt("GRAPHSCRIBE_MAX_CONNECTIONS_PER_ORIGIN", 10),
		IdleTimeout:       config.GetEnvMillis("GRAPHSCRIBE_IDLE_TIMEOUT_MS", 5*time.Minute),
		CleanupInterval:   config.GetEnvMillis("GRAPHSCRIBE_CLEANUP_INTERVAL_MS", time.Minute),
		HeartbeatEnabled:  config.GetEnvBool("GRAPHSCRIBE_HEARTBEAT_ENABLED", true),
		HeartbeatInterval: config.GetEnvMillis("GRAPHSCRIBE_HEARTBEAT_INTERVAL_MS", 30*time.Second),
		AllowedOrigins:    config.GetEnvList("GRAPHSCRIBE_ALLOWED_ORIGINS", []string{"*"}),
		AllowCredentials:  config.GetEnvBool("GRAPHSCRIBE_ALLOW_CREDENTIALS", false),
		SinkBuffer:        config.GetEnvInt("GRAPHSCRIBE_SINK_BUFFER", 64),
	}

	metricsCollector := monitoring.NewMetricsCollector("graphscribe", version.Version, version.GitCommit)
	streamMetrics := metrics.New(metricsCollector)

	streamServer := sse.NewServer(streamCfg, logger, streamMetrics)
	streamServer.Start()

	healthChecker := monitoring.NewHealthChecker("graphscribe", version.Version)
	healthChecker.AddCheck("connections", monitoring.CapacityHealthCheck(
		"streaming connections",
		streamServer.Registry().Active,
		streamCfg.MaxConnections,
		0.8,
	))

	driverOpts := ops.Options{
		StageDelay: config.GetEnvMillis("GRAPHSCRIBE_STAGE_DELAY_MS", 150*time.Millisecond),
		Logger:     logger,
	}
	h := handlers.New(streamServer, driverOpts, healthChecker, logger, streamMetrics)

	cors := middleware.CORSConfig{
		AllowedOrigins:   streamCfg.AllowedOrigins,
		AllowCredentials: streamCfg.AllowCredentials,
	}
	router := server.SetupServiceRouter(logger, "graphscribe", cors, nil, metricsCollector)

	router.GET("/health", h.HandleHealth)
	router.GET("/events", h.HandleEvents)
	router.GET("/ws", h.HandleWS)
	router.GET("/stream/:operation", h.HandleStreamOperation)
	router.POST("/stream/:operation", h.HandleStreamOperation)
	router.POST("/admin/broadcast", h.HandleBroadcast)
	router.NoRoute(h.HandleNotFound)

	cfg := server.DefaultConfig("graphscribe", "18090")
	if err := server.Start(cfg, router, logger, streamServer.Stop); err != nil {
		logger.WithError(err).Fatal("Server shutdown failed")
	}
}
