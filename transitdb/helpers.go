package transitdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"saquabus.org/internal/appconf"
	"saquabus.org/internal/logging"
)

//go:embed schema.sql
var ddl string

// createDB opens a SQLite database, applies performance settings and runs the schema.
func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	configureConnectionPool(db, config)

	ctx := context.Background()
	if err := configureSQLitePerformance(ctx, db); err != nil {
		return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
	}

	if err := performDatabaseMigration(ctx, db); err != nil {
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate")
	for _, stmt := range statements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmedStmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmedStmt, err)
		}
	}
	return nil
}

func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		name        string
		description string
	}{
		// negative value means KB
		{"PRAGMA cache_size=-16000", "Set cache size to 16MB"},
		{"PRAGMA temp_store=MEMORY", "Store temporary data in memory"},
	}

	logger := slog.Default().With(slog.String("component", "sqlite_performance"))

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma.name); err != nil {
			logging.LogError(logger, fmt.Sprintf("Failed to set %s", pragma.description), err)
			return fmt.Errorf("failed to execute %s: %w", pragma.name, err)
		}
	}
	return nil
}

// configureConnectionPool sizes the pool. Every connection to :memory: opens its own
// empty database, so in-memory stores are pinned to one connection.
func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// importIfChanged runs fn inside a transaction unless source was already imported with the
// same content hash. The metadata row is written in the same transaction.
func (c *Client) importIfChanged(ctx context.Context, data []byte, source, component string, fn func(context.Context, *Queries) error) error {
	logger := slog.Default().With(slog.String("component", component))

	startTime := time.Now()
	defer func() {
		elapsed := time.Since(startTime)
		c.importRuntime.Store(int64(elapsed))
		logging.LogOperation(logger, "import_completed",
			slog.Duration("duration", elapsed),
			slog.String("source", source))
	}()

	hash := sha256.Sum256(data)
	hashStr := hex.EncodeToString(hash[:])

	existing, err := c.Queries.GetImportMetadata(ctx, source)
	switch {
	case err == nil && existing.FileHash == hashStr:
		logging.LogOperation(logger, "data_unchanged_skipping_import",
			slog.String("hash", hashStr[:8]))
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("error checking import metadata: %w", err)
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, component)

	qtx := c.Queries.WithTx(tx)
	if err := fn(ctx, qtx); err != nil {
		return err
	}

	if err := qtx.UpsertImportMetadata(ctx, ImportMetadatum{
		Source:     source,
		FileHash:   hashStr,
		ImportTime: time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("error recording import metadata: %w", err)
	}

	return tx.Commit()
}

// StopIDFor derives the id used for stops created from bare coordinates.
func StopIDFor(lat, lon float64) string {
	return fmt.Sprintf("%v_%v", lat, lon)
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullInt64Ptr(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// ToNullString is the exported form of toNullString for callers building params.
func ToNullString(s string) sql.NullString {
	return toNullString(s)
}

// ToNullInt64Ptr is the exported form of toNullInt64Ptr for callers building params.
func ToNullInt64Ptr(i *int) sql.NullInt64 {
	return toNullInt64Ptr(i)
}
