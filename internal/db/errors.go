package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// UniqueViolation reports whether err is a unique-constraint failure and, if
// so, which column (or constraint) it names. column is empty when the driver
// doesn't say.
func UniqueViolation(err error) (column string, ok bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgerrcode.UniqueViolation {
			return "", false
		}
		if col := detailColumn(pgErr.Detail); col != "" {
			return col, true
		}
		return constraintColumn(pgErr.TableName, pgErr.ConstraintName), true
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE && liteErr.Code() != sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return "", false
		}
		return sqliteColumn(liteErr.Error()), true
	}

	// Drivers wrapped beyond recognition still carry the message
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return sqliteColumn(msg), true
	case strings.Contains(msg, "duplicate key value"):
		if col := detailColumn(msg); col != "" {
			return col, true
		}
		return constraintColumn("", quotedConstraint(msg)), true
	}
	return "", false
}

// detailColumn extracts "email" from a postgres detail such as
// `Key (email)=(a@b.c) already exists.`
func detailColumn(detail string) string {
	_, rest, ok := strings.Cut(detail, "Key (")
	if !ok {
		return ""
	}
	cols, _, ok := strings.Cut(rest, ")=(")
	if !ok {
		return ""
	}
	// Composite keys name the first column
	first, _, _ := strings.Cut(cols, ",")
	return strings.Trim(strings.TrimSpace(first), `"`)
}

// quotedConstraint extracts users_email_key from
// `duplicate key value violates unique constraint "users_email_key"`.
func quotedConstraint(msg string) string {
	_, rest, ok := strings.Cut(msg, `unique constraint "`)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, `"`)
	return name
}

// constraintColumn maps a <table>_<column>_key constraint name to its column.
// Without the table name the first underscore-separated word is taken as the
// table.
func constraintColumn(table, constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	if table != "" && strings.HasPrefix(name, table+"_") {
		return strings.TrimPrefix(name, table+"_")
	}
	if i := strings.Index(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// sqliteColumn extracts "username" from "UNIQUE constraint failed: users.username".
func sqliteColumn(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	first, _, _ := strings.Cut(rest, ",")
	first, _, _ = strings.Cut(first, " ")
	first = strings.TrimSuffix(first, ")")
	if _, col, ok := strings.Cut(first, "."); ok {
		return col
	}
	return first
}
