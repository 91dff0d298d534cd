// Command server runs the FitVantage API: the public catalogue and content
// endpoints, the lead capture endpoint, and the background workers that keep
// per-category product caches fresh.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Adeyeye93/fitvantage/internal/config"
	httpapi "github.com/Adeyeye93/fitvantage/internal/http"
	"github.com/Adeyeye93/fitvantage/internal/observability"
	"github.com/Adeyeye93/fitvantage/internal/repo"
	"github.com/Adeyeye93/fitvantage/internal/services"
	"github.com/Adeyeye93/fitvantage/internal/sysutil"
	"github.com/Adeyeye93/fitvantage/internal/worker"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// 1. Environment and configuration
	_ = godotenv.Load() // .env is optional; real env always wins
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("version", version).Msg("starting fitvantage api")

	// 3. Tracing
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Error().Err(err).Msg("otel setup failed")
		os.Exit(1)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// 4. Database
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
		os.Exit(1)
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
	log.Info().Str("path", cfg.DBPath).Msg("database ready")

	// 5. Services and router
	svcs := httpapi.NewServices(db, cfg)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, svcs, cfg)

	// 6. Background workers
	if cfg.Refresh.WorkerEnabled {
		go worker.NewRefreshWorker(svcs.Refresh, services.TierTop, cfg.Refresh.TopInterval).Start(ctx)
		go worker.NewRefreshWorker(svcs.Refresh, services.TierOther, cfg.Refresh.OtherInterval).Start(ctx)
	}
	if cfg.Lead.WorkerEnabled {
		go worker.NewLeadWorker(svcs.Lead, cfg.Lead.Interval).Start(ctx)
	}

	// 7. HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// 8. Wait for interrupt, then drain
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel() // stop workers

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
