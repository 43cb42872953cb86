// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/rango-polls/cliparse"
)

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = "23505"

// Open connects using the driver selected by cfg.DatabaseType and verifies
// the connection.
func Open(cfg cliparse.Config) (*sql.DB, error) {
	driver, err := driverName(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.DatabaseType, err)
	}

	if driver == "sqlite" {
		// SQLite allows a single writer; more connections only produce SQLITE_BUSY
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

func driverName(databaseType string) (string, error) {
	switch databaseType {
	case cliparse.DatabaseSQLite, "":
		return "sqlite", nil
	case cliparse.DatabasePostgres:
		return "postgres", nil
	case cliparse.DatabasePgx:
		return "pgx", nil
	}
	return "", fmt.Errorf("unsupported database type %q", databaseType)
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// any of the supported drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Timestamp normalises t for storage: UTC, whole seconds. SQLite keeps
// timestamps as text, so a fixed layout keeps comparisons in SQL ordered.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
