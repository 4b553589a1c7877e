// Package main is the entry point for the BleepStore secrets manager server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bleepstore/bleepstore/internal/auth"
	"github.com/bleepstore/bleepstore/internal/config"
	"github.com/bleepstore/bleepstore/internal/logging"
	"github.com/bleepstore/bleepstore/internal/metrics"
	"github.com/bleepstore/bleepstore/internal/reaper"
	"github.com/bleepstore/bleepstore/internal/router"
	"github.com/bleepstore/bleepstore/internal/secretengine"
	"github.com/bleepstore/bleepstore/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	metrics.Register()

	// Crash-only design: every startup is recovery. The encrypted
	// container decrypts into a fresh scratch file on open; there is no
	// separate recovery mode to run.
	db, err := store.NewSQLiteStore(cfg.DatabasePath, cfg.EncryptionKey)
	if err != nil {
		slog.Error("failed to open secrets database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	engine := secretengine.New(db)
	gate := auth.NewAuthGate(auth.Identity{AccessKeyID: cfg.AccessKeyID, AccessKeySecret: cfg.AccessKeySecret})

	handler := router.New(engine)
	var h http.Handler = handler
	h = auth.Middleware(gate)(h)
	h = metrics.Instrument(h)

	httpServer := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: h,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rp := reaper.New(db)
	go rp.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("bleepstore listening", "addr", cfg.ServerAddress, "https", cfg.UseHTTPS)
		var serveErr error
		if cfg.UseHTTPS {
			serveErr = httpServer.ListenAndServeTLS(cfg.HTTPSCertificatePath, cfg.HTTPSPrivateKeyPath)
		} else {
			serveErr = httpServer.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
		slog.Info("server stopped")

	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
