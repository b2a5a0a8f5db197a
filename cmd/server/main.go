// Command server runs the WhatsApp service-order webhook gateway.
//
// Bootstrap order: .env → config → logging → tracing → database → outbound
// clients → router → HTTP server, with a background reconciliation sweep for
// stale pending orders and graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/assistec/wpp-os-gateway/internal/buffer"
	"github.com/assistec/wpp-os-gateway/internal/chatpro"
	"github.com/assistec/wpp-os-gateway/internal/config"
	httpapi "github.com/assistec/wpp-os-gateway/internal/http"
	"github.com/assistec/wpp-os-gateway/internal/observability"
	"github.com/assistec/wpp-os-gateway/internal/repo"
	"github.com/assistec/wpp-os-gateway/internal/services"
	"github.com/assistec/wpp-os-gateway/internal/sysutil"
	"github.com/assistec/wpp-os-gateway/internal/ticketing"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Best effort; production reads real env vars.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.InitLogger(cfg.LogPretty)
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Error().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	if cfg.ChatPro.Endpoint == "" || cfg.Ticketing.OrderURL == "" || cfg.Ticketing.AuthURL == "" {
		log.Fatal().Msg("CHATPRO_ENDPOINT, TICKETING_ORDER_URL and TICKETING_AUTH_URL are required")
	}

	notify := chatpro.New(cfg.ChatPro.Endpoint, cfg.ChatPro.Token, cfg.ChatPro.InstanceID, cfg.ClientTimeout)
	auth := ticketing.NewBasicAndToken(cfg.Ticketing.AuthURL, cfg.Ticketing.User, cfg.Ticketing.Password, cfg.ClientTimeout)
	tickets := ticketing.New(cfg.Ticketing.OrderURL, auth, cfg.ClientTimeout)

	buf := buffer.New(cfg.BufferTTL)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, buf, notify, tickets, cfg)

	reconciler := services.NewReconciler(db, cfg.PendingMaxAge, cfg.ReconcileEvery)
	go reconciler.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
