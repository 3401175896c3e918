package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Manoelfg123/wpp-ohi/internal/events/buffer"
	"github.com/Manoelfg123/wpp-ohi/internal/events/publisher"
	"github.com/Manoelfg123/wpp-ohi/internal/platform/config"
	"github.com/Manoelfg123/wpp-ohi/internal/platform/health"
	"github.com/Manoelfg123/wpp-ohi/internal/platform/httpserver"
	"github.com/Manoelfg123/wpp-ohi/internal/platform/logger"
	platformredis "github.com/Manoelfg123/wpp-ohi/internal/platform/redis"
	"github.com/Manoelfg123/wpp-ohi/internal/protocol/loopback"
	sessionhandler "github.com/Manoelfg123/wpp-ohi/internal/session/handler"
	"github.com/Manoelfg123/wpp-ohi/internal/session/manager"
	sessionmetrics "github.com/Manoelfg123/wpp-ohi/internal/session/metrics"
	"github.com/Manoelfg123/wpp-ohi/internal/session/store"
	httptransport "github.com/Manoelfg123/wpp-ohi/internal/transport/http"
)

// main wires the dependency graph and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing wpp-ohi",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// The fallback buffer gets its own client so the publisher can own its
	// full teardown.
	bufferClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pub := publisher.New(
		publisher.NewAMQPDialer(cfg.Broker.URL, cfg.Broker.Queue),
		buffer.New(bufferClient, cfg.Broker.BufferKey),
		publisher.Config{
			MaxAttempts: cfg.Broker.MaxAttempts,
			BaseDelay:   cfg.Broker.BaseDelay,
			MaxDelay:    cfg.Broker.MaxDelay,
			DrainBatch:  cfg.Broker.DrainBatch,
			DrainPause:  cfg.Broker.DrainPause,
		},
		publisher.WithLogger(logger.WithComponent(log, "publisher")),
		publisher.WithBufferCloser(bufferClient),
	)
	defer pub.Close()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	if err := pub.Initialize(initCtx); err != nil {
		// Not fatal: the publisher keeps retrying and events buffer to Redis
		// in the meantime.
		log.Warn("broker unavailable at startup, events will buffer", "error", err)
	}
	cancelInit()

	// TODO: swap loopback for the real protocol binding once the upstream
	// client library lands; the manager only sees the protocol.Client
	// interface.
	protocolClient := loopback.New(10 * time.Second)
	log.Warn("using loopback protocol client, sessions pair themselves")

	mgr := manager.New(
		protocolClient,
		store.NewRedis(redisClient),
		pub,
		manager.Config{
			ReconnectDelay:           cfg.Session.ReconnectDelay,
			DefaultQRTimeout:         cfg.Session.QRTimeout,
			DefaultMaxRetries:        cfg.Session.MaxRetries,
			DefaultRestartOnAuthFail: cfg.Session.RestartOnAuthFail,
			CredentialDir:            cfg.Session.CredentialDir,
		},
		manager.WithLogger(logger.WithComponent(log, "manager")),
		manager.WithMetrics(sessionmetrics.New()),
	)

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("redis", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return redisClient.Health(ctx)
	})
	healthHandler.RegisterCheck("broker", func() error {
		if !pub.Connected() {
			return errors.New("broker disconnected")
		}
		return nil
	})

	router := httptransport.NewRouter(
		sessionhandler.New(mgr, logger.WithComponent(log, "http")),
		healthHandler,
		httptransport.Config{APIKey: cfg.APIKey},
		log,
	)
	srv := httpserver.New(cfg.Addr, router)

	poolStatsDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				redisClient.RecordPoolStats()
			case <-poolStatsDone:
				return
			}
		}
	}()

	log.Info("starting http server", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	close(poolStatsDone)

	log.Info("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
