package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Nocturne/internal/adapters/auth"
	router "github.com/dkeye/Nocturne/internal/adapters/http"
	"github.com/dkeye/Nocturne/internal/adapters/rules"
	wssignal "github.com/dkeye/Nocturne/internal/adapters/signal"
	"github.com/dkeye/Nocturne/internal/app"
	"github.com/dkeye/Nocturne/internal/config"
	"github.com/dkeye/Nocturne/internal/protocol"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	limits := make(map[protocol.EventKind]app.Limit, len(cfg.RateLimits))
	fallback := app.Limit{Limit: 30, Window: 10 * time.Second}
	for kind, rl := range cfg.RateLimits {
		if kind == "default" {
			fallback = app.Limit{Limit: rl.Limit, Window: rl.Window}
			continue
		}
		limits[protocol.EventKind(kind)] = app.Limit{Limit: rl.Limit, Window: rl.Window}
	}
	limiter := app.NewLimiter(limits, fallback)
	limiter.Start(cfg.SweepInterval)

	games := rules.NewInMemory()
	dispatcher := &app.Dispatcher{
		Policy:  app.TablePolicy{},
		Limiter: limiter,
		Games:   games,
	}
	registry := app.NewRegistry(app.RegistryOptions{
		GracePeriod:   cfg.GracePeriod,
		SweepInterval: cfg.SweepInterval,
		OnEvict:       dispatcher.HandleEviction,
	})
	dispatcher.Registry = registry

	ctl := &wssignal.Controller{
		Dispatcher: dispatcher,
		Auth:       auth.Guest{},
		ReadLimit:  cfg.ReadLimit,
	}

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Nocturne server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	registry.Stop()
	limiter.Stop()
	log.Info().Msg("Server exited gracefully")
}
