// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/igrejaonline/portal/internal/db"
)

// Open returns a migrated SQLite database stored under t.TempDir().
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))
	return database
}

// InsertUser writes a user row directly and returns its id. The digest is
// not a valid credential.
func InsertUser(t testing.TB, database *sqlx.DB, username string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := database.Exec(
		`INSERT INTO users (id, username, password_digest, display_name, email, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, username, "x.y", username, username+"@example.com", time.Now().UTC(),
	)
	require.NoError(t, err)
	return id
}
