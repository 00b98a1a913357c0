// Package main provides the entry point for the securekv service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/narvanalabs/securekv/internal/api"
	"github.com/narvanalabs/securekv/internal/auth"
	"github.com/narvanalabs/securekv/internal/backing"
	"github.com/narvanalabs/securekv/internal/backup"
	"github.com/narvanalabs/securekv/internal/crypto"
	"github.com/narvanalabs/securekv/internal/migration"
	"github.com/narvanalabs/securekv/internal/securestore"
	"github.com/narvanalabs/securekv/pkg/config"
	"github.com/narvanalabs/securekv/pkg/logger"
)

func main() {
	log := logger.New(slog.LevelInfo, true)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Backing store: PostgreSQL when a DSN is configured, in-memory otherwise.
	var store backing.Store
	if cfg.DatabaseDSN != "" {
		pg, err := backing.NewPostgres(backing.DefaultPostgresConfig(cfg.DatabaseDSN), log.Logger)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory backing store")
		store = backing.NewMemory()
	}

	// Crypto engine. A missing key degrades to plaintext storage, which the
	// engine logs and the health endpoint exposes.
	cryptoCfg := &crypto.Config{Suite: crypto.Suite(cfg.CipherSuite)}
	if cfg.EncryptionKey != "" {
		key, err := crypto.KeyFromBase64(cfg.EncryptionKey)
		if err != nil {
			log.Error("invalid encryption key", "error", err)
			os.Exit(1)
		}
		cryptoCfg.Key = key
	}
	engine, err := crypto.NewEngine(cryptoCfg, log.Logger)
	if err != nil {
		log.Error("failed to initialize crypto engine", "error", err)
		os.Exit(1)
	}

	secure := securestore.New(store, engine, log.WithComponent("securestore").Logger)
	migrations := migration.New(store, secure, log.WithComponent("migration").Logger)
	backups := backup.New(store, log.WithComponent("backup").Logger)

	authService := auth.NewService(&auth.Config{
		Secret:      []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry,
	}, log.Logger)

	server := api.NewServer(cfg, store, secure, migrations, backups, authService, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	log.Info("starting securekv",
		"host", cfg.APIHost,
		"port", cfg.APIPort,
		"encrypting", engine.Available(),
		"suite", engine.Suite(),
	)

	if err := server.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	// Give time for graceful shutdown
	time.Sleep(100 * time.Millisecond)
	log.Info("server stopped")
}
