package main

import (
	"context"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/memcore/memcore/internal/backup"
	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/goals"
	"github.com/memcore/memcore/internal/links"
	"github.com/memcore/memcore/internal/maintenance"
	"github.com/memcore/memcore/internal/memory"
	"github.com/memcore/memcore/internal/notify"
	"github.com/memcore/memcore/internal/search"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/internal/storage/sqlite"
)

const defaultDBPath = "./memcore.db"

// app bundles every service a subcommand might need, all sharing one open
// backend and one notify bus so a maintenance routine's events are visible
// to anything that subscribed before the command ran.
type app struct {
	dbPath  string
	backend storage.Backend
	cfg     *config.Config
	bus     *notify.Bus

	Memory      *memory.Pipeline
	Search      *search.Engine
	Goals       *goals.Service
	Links       *links.Service
	Maintenance *maintenance.Service
}

// resolveDBPath applies flag > env MEMCORE_DB_PATH > default, in that order.
func resolveDBPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("MEMCORE_DB_PATH"); v != "" {
		return v
	}
	return defaultDBPath
}

// resolveEmbeddingConfig applies the same flag > env > default precedence
// per field, independent of resolveDBPath so either can be tested alone.
func resolveEmbeddingConfig(baseURL, apiKey, model string, dims int) embedding.HTTPOracleConfig {
	cfg := embedding.HTTPOracleConfig{
		BaseURL: firstNonEmpty(baseURL, os.Getenv("MEMCORE_EMBEDDING_BASE_URL")),
		APIKey:  firstNonEmpty(apiKey, os.Getenv("MEMCORE_EMBEDDING_API_KEY")),
		Model:   firstNonEmpty(model, os.Getenv("MEMCORE_EMBEDDING_MODEL")),
	}
	if dims > 0 {
		cfg.Dimensions = dims
	} else if v := os.Getenv("MEMCORE_EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dimensions = n
		}
	}
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// openApp resolves the database path, opens it, loads layered config, and
// wires every domain service over the result. Callers must call app.Close.
func openApp(cmd *cobra.Command) (*app, error) {
	ctx := context.Background()

	dbPath := resolveDBPath(dbPathFlag)
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(ctx, db.Settings())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	oracle := embedding.NewHTTPOracle(resolveEmbeddingConfig(embeddingBaseURL, embeddingAPIKeyFlag, embeddingModelFlag, embeddingDimsFlag))
	mgr := embedding.NewManager(oracle, embedding.BreakerConfig{})

	bus := notify.NewBus()

	pipeline := memory.New(db, mgr)
	pipeline.SetNotifier(bus)

	maint := maintenance.New(db, mgr)
	maint.SetNotifier(bus)

	return &app{
		dbPath:      dbPath,
		backend:     db,
		cfg:         cfg,
		bus:         bus,
		Memory:      pipeline,
		Search:      search.New(db, mgr),
		Goals:       goals.New(db, mgr),
		Links:       links.New(db),
		Maintenance: maint,
	}, nil
}

// backupService builds the backup Service lazily: unlike the other domain
// services it needs cfg.Backup.BackupDir to be non-empty, which isn't true
// for every deployment, so only backup subcommands pay for the check.
func (a *app) backupService() (*backup.Service, error) {
	return backup.NewService(a.dbPath, a.backend, a.cfg.Backup)
}

func (a *app) Close() error {
	return a.backend.Close()
}
