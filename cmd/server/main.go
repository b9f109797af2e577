package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joho/godotenv"

	"github.com/astralgames/doomdeal/internal/config"
	"github.com/astralgames/doomdeal/internal/httpapi"
	"github.com/astralgames/doomdeal/internal/logging"
	"github.com/astralgames/doomdeal/internal/ratelimit"
	"github.com/astralgames/doomdeal/internal/registry"
	"github.com/astralgames/doomdeal/internal/room"
	"github.com/astralgames/doomdeal/internal/tracing"
	"github.com/astralgames/doomdeal/internal/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// absence of a .env file is normal outside local development
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		panic(err)
	}
	ctx := context.Background()
	logging.Info(ctx, "starting doomdeal server", zap.String("go_env", cfg.GoEnv))

	tp, err := tracing.InitTracer(ctx, "doomdeal")
	if err != nil {
		logging.Fatal(ctx, "failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logging.Warn(ctx, "tracer shutdown error", zap.Error(err))
		}
	}()

	roomCfg := room.Config{
		DefaultTurnTimer:        cfg.DefaultTurnTimer,
		DisconnectedTurnTimeout: cfg.DisconnectedTurnTimeout,
		ReconnectTimeout:        cfg.ReconnectTimeout,
		PerRevealDuration:       cfg.PerRevealDuration,
		DefaultCheeseCount:      cfg.DefaultCheeseCount,
		MaxCheeseCount:          cfg.MaxCheeseCount,
		MaxPlayers:              cfg.MaxPlayers,
	}

	reg := registry.New(roomCfg, cfg.RoomReapInterval)
	ts := transport.NewServer(reg, cfg.AllowedOrigins)

	limiter, err := ratelimit.New(cfg.RateLimitAPIRooms, cfg.RateLimitWsIP)
	if err != nil {
		logging.Fatal(ctx, "failed to build rate limiter", zap.Error(err))
	}

	router := httpapi.NewRouter(reg, ts, limiter, cfg.AllowedOrigins, "doomdeal")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn(ctx, "http server shutdown error", zap.Error(err))
	}
	reg.Shutdown(shutdownCtx)

	logging.Info(ctx, "server exiting")
}
