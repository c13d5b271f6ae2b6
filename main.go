// Package main is the entry point for the walletsync webhook server
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/baely/walletsync/internal/common/errors"
	commonHttp "github.com/baely/walletsync/internal/common/http"
	"github.com/baely/walletsync/internal/common/logger"
	"github.com/baely/walletsync/internal/pipeline"
	"github.com/baely/walletsync/internal/plaid"
	"github.com/baely/walletsync/internal/seed"
	"github.com/baely/walletsync/internal/server"
	"github.com/baely/walletsync/internal/store"
	"github.com/baely/walletsync/internal/up"
)

// openStore connects to WALLETSYNC_DSN with WALLETSYNC_DRIVER. A postgres
// store without a DSN is reached through the DB_* settings.
func openStore() (*store.Client, error) {
	driver := os.Getenv("WALLETSYNC_DRIVER")
	dsn := os.Getenv("WALLETSYNC_DSN")

	dialect, err := store.ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if dsn != "" {
		return store.Open(driver, dsn)
	}
	if dialect == store.Postgres {
		return store.NewClient(
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}
	return store.OpenSQLite("walletsync.sqlite3")
}

func engineConfig(log *slog.Logger) (*pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	cfg.Logger = log
	if path := os.Getenv("WALLETSYNC_SEED_RULES"); path != "" {
		rules, err := seed.LoadRules(path)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}
	return cfg, nil
}

// routes serves both webhook endpoints on one router.
func routes(plaidWebhook *plaid.WebhookService, upWebhook *up.WebhookService) chi.Router {
	r := commonHttp.NewRouter()
	plaidWebhook.Routes(r)
	upWebhook.Routes(r)
	return r
}

func main() {
	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL"))),
	)
	slog.SetDefault(log)

	// Initialize store
	db, err := openStore()
	errors.Must(err)
	db.WithLogger(log)
	errors.Must(db.EnsureSchema(context.Background()))

	cfg, err := engineConfig(log)
	errors.Must(err)
	engine := pipeline.NewWithConfig(db, cfg)

	// Initialize services
	plaidClient := plaid.NewClient()
	plaidWebhook := plaid.NewWebhook(plaidClient)
	upWebhook := up.New()

	// Register event handlers
	plaidWebhook.RegisterHandler(pipeline.NewSyncer(plaid.NewPuller(plaidClient, 0), engine))
	upWebhook.RegisterHandler(up.NewMergeHandler(engine))

	// Register domain handlers
	s := server.New()
	s.Register(routes(plaidWebhook, upWebhook))

	// Start server
	log.Info("Starting server", "addr", s.Addr, "driver", db.Dialect().String())
	if err := s.ListenAndServe(); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
