package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/ncei-cdo-client/internal/config"
	"github.com/Sternrassler/ncei-cdo-client/pkg/bulk"
	"github.com/Sternrassler/ncei-cdo-client/pkg/client"
	"github.com/Sternrassler/ncei-cdo-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.LoggingConfig())
	logger := logging.NewLogger("ncei-proxy")

	// Redis is optional: without it there is no response cache and no
	// shared daily quota.
	var redisClient *redis.Client
	opts, err := cfg.RedisOptions()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid Redis configuration")
	}
	if opts != nil {
		redisClient = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("addr", opts.Addr).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	} else {
		logger.Warn().Msg("REDIS_URL not set: caching and quota tracking disabled")
	}

	nceiClient, err := client.New(cfg.ClientConfig(redisClient))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create NCEI client")
	}
	defer nceiClient.Close()

	engine, err := bulk.NewEngine(nceiClient, cfg.EngineConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bulk engine")
	}

	srv := newServer(engine, nceiClient, redisClient, cfg)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("base_url", cfg.BaseURL).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting NCEI proxy server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
