package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authcore/internal/auth"
	"authcore/internal/config"
	"authcore/internal/database"
	"authcore/internal/httpapi"
	"authcore/internal/logging"
	"authcore/internal/password"
	"authcore/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(cfg.IsProduction(), cfg.Debug)
	slog.SetDefault(log)

	// Create a context for initialization.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.MongoURI, cfg.DatabaseName, log)
	if err != nil {
		return err
	}
	defer func() {
		ctxClose, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelClose()
		if err := db.Close(ctxClose); err != nil {
			log.Error("error disconnecting from DB", "error", err)
		}
	}()

	hasher, err := password.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	svc, err := auth.NewService(store.NewUsers(db.Users(), cfg.StoreTimeout), hasher, auth.TokenConfig{
		AccessSecret:  cfg.AccessSecret(),
		RefreshSecret: cfg.RefreshSecret(),
		AccessTTL:     cfg.AccessTokenTTL(),
		RefreshTTL:    cfg.RefreshTokenTTL(),
		Method:        cfg.SigningMethod(),
	}, log)
	if err != nil {
		return err
	}

	handler := httpapi.NewHandler(svc, log, httpapi.Options{CORSOrigins: cfg.CORSOrigins})

	srv := &http.Server{
		Handler:      httpapi.AccessLog(os.Stdout, handler),
		Addr:         cfg.Addr(),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server running", "addr", "http://"+cfg.Addr(), "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signals for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return err
	}
	log.Info("server exited gracefully")
	return nil
}
