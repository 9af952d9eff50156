package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"mlboard/internal/adapters/api"
	http_handler "mlboard/internal/adapters/handler/http"
	"mlboard/internal/adapters/handler/mqtt"
	redis_adapter "mlboard/internal/adapters/pubsub/redis"
	"mlboard/internal/config"
	"mlboard/internal/core/listview"
	"mlboard/internal/core/logger"
	"mlboard/internal/core/ports"
	"mlboard/internal/core/services"
	"mlboard/internal/core/tracing"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize structured logger
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting mlboard gateway", "version", version)

	if err := run(cfg); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	if cfg.EnableTracing {
		shutdownTracing, err := tracing.Init(cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("Failed to initialize tracing", "error", err)
		} else {
			logger.Info("Tracing initialized", "endpoint", cfg.OTLPEndpoint)
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.Error("Failed to shutdown tracing", "error", err)
				}
			}()
		}
	}

	// Upstream mlcomp API
	burst := max(1, int(cfg.UpstreamRPS))
	client := api.NewClient(cfg.APIURL, cfg.UpstreamTimeout,
		api.WithToken(cfg.APIToken),
		api.WithRateLimit(cfg.UpstreamRPS, burst),
	)

	hub := http_handler.NewHub()

	// Events go to the shared bus when Redis is configured, otherwise straight
	// to the local hub.
	var (
		redisClient *goredis.Client
		bus         ports.EventPubSub
		history     http_handler.EventHistory
		publishers  services.FanOut
	)
	if cfg.RedisURL != "" {
		c, err := redis_adapter.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer c.Close()
		redisClient = c

		h := redis_adapter.NewHistory(redisClient, cfg.EventHistorySize)
		adapter := redis_adapter.NewAdapter(redisClient, h)
		bus, history = adapter, h
		publishers = append(publishers, adapter)
		logger.Info("Redis event bus enabled")
	} else {
		publishers = append(publishers, hub)
		logger.Warn("REDIS_URL not set, events stay within this instance")
	}

	// Initialize MQTT mirror
	if cfg.MQTTBrokerURL != "" {
		mqttPublisher, err := mqtt.NewPublisher(cfg.MQTTBrokerURL, cfg.MQTTTopicPrefix)
		if err != nil {
			logger.Error("Failed to init MQTT publisher", "error", err)
		} else {
			defer mqttPublisher.Close()
			publishers = append(publishers, mqttPublisher)
			logger.Info("MQTT publisher started", "prefix", cfg.MQTTTopicPrefix)
		}
	}

	// Initialize domain services
	dashboard := services.NewDashboardService(client, publishers)
	healthService := services.NewHealthService(client, redisClient, version)
	monitor := services.NewStatusMonitor(client, publishers, cfg.StatusPollInterval)

	viewOpts := listview.Options{
		DefaultDescending: cfg.DefaultSortDescending,
		DefaultPageSize:   cfg.DefaultPageSize,
	}
	httpServer := http_handler.NewServer(client, dashboard, healthService, hub, history, viewOpts,
		http_handler.WithMetrics(cfg.EnableMetrics),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	if bus != nil {
		g.Go(func() error {
			hub.Consume(ctx, bus)
			return nil
		})
	}
	g.Go(func() error {
		monitor.Start(ctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("HTTP Server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
