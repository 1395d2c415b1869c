package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/opencode-ai/memer/internal/config"
	"github.com/opencode-ai/memer/internal/db"
	"github.com/opencode-ai/memer/internal/logging"
	"github.com/opencode-ai/memer/internal/templates"
)

func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	if _, err := database.MigrateUp(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}

func templateSearchPaths(cfg *config.Config) []string {
	projectDir, err := os.Getwd()
	if err != nil {
		projectDir = ""
	}
	return templates.TemplateSearchPaths(projectDir, cfg.Templates.DataDir, cfg.Templates.SearchPaths)
}

// loadCatalog scans the search paths, applying names and keys stored for
// pulled templates. A database that cannot be opened only loses the stored
// metadata.
func loadCatalog(ctx context.Context, cfg *config.Config) (*templates.Catalog, error) {
	opts := templates.LoadOptions{
		Paths:      templateSearchPaths(cfg),
		Extensions: cfg.Templates.Extensions,
	}

	logger := logging.Component("cli")
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("template metadata unavailable")
	} else {
		defer database.Close()
		overrides, err := db.NewTemplateRepository(database).Overrides(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read template metadata")
		}
		opts.Overrides = overrides
	}

	return templates.Load(opts)
}
