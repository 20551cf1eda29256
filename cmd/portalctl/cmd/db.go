package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaonline/portal/internal/config"
	"github.com/igrejaonline/portal/internal/db"
	"github.com/igrejaonline/portal/internal/logger"
)

// openDatabase loads the server configuration and connects to its database.
// With migrate set, pending migrations are applied first.
func openDatabase(migrate bool) (*sqlx.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger.Init(cfg.IsDevelopment(), "")

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if migrate {
		err = db.RunMigrations(database.DB, cfg.DBDriver)
		if err != nil {
			_ = database.Close()
			return nil, nil, err
		}
	}

	return database, cfg, nil
}

// titleExists reports whether table already holds a row with title. Seed and
// import use it to stay idempotent.
func titleExists(ctx context.Context, database *sqlx.DB, table, title string) (bool, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE title = $1`, table)
	err := database.GetContext(ctx, &n, query, title)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", table, err)
	}
	return n > 0, nil
}
