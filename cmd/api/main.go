package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/cache"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/dispatch"
	httpx "github.com/geocoder89/authhub/internal/http"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/otp"
	"github.com/geocoder89/authhub/internal/redisclient"
	"github.com/geocoder89/authhub/internal/repo/mongodb"
	"github.com/geocoder89/authhub/internal/repo/otpstore"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load the config set up
	_ = godotenv.Load()
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	// tracing is optional, the service runs fine without a collector
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "authhub", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	// metrics registry
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	// mongo
	client, database, err := db.Connect(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Error("mongo connect failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = db.Disconnect(client) }()

	users := mongodb.NewUsersRepo(database, prom)

	{
		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := users.EnsureIndexes(ctx); err != nil {
			log.Error("users index setup failed", "err", err)
			os.Exit(1)
		}

		if err := db.EnsureAdminUser(ctx, users, cfg); err != nil {
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}
	}

	// redis backs the OTP store
	redisCli := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisCli.Close() }()

	{
		ctx, cancel := config.WithTimeout(3 * time.Second)
		defer cancel()

		if err := redisCli.Ping(ctx); err != nil {
			log.Error("redis ping failed", "err", err)
			os.Exit(1)
		}
	}

	otps := otpstore.New(redisCli, cfg.OTPTTL)

	// delivery chain: circuit breaker around the instrumented sender
	sender := dispatch.NewProtectedSender(
		dispatch.NewMetricsSender(dispatch.NewLogSender(), prom),
		dispatch.ProtectedSenderConfig{},
	)

	issuer := otp.NewIssuer(otps, sender, cfg.OTPLength, cfg.OTPTTL)
	verifier := otp.NewVerifier(otps)

	sessions := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	profiles := cache.New(5 * time.Minute)

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Users:    users,
		Sessions: sessions,
		Issuer:   issuer,
		Verifier: verifier,
		Resolver: middlewares.NewGatewayResolver(),
		Profiles: profiles,
		Prom:     prom,
		Registry: reg,
		Ping: func() error {
			ctx, cancel := config.WithTimeout(2 * time.Second)
			defer cancel()

			if err := client.Ping(ctx, nil); err != nil {
				return err
			}
			return redisCli.Ping(ctx)
		},
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
