package transitdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"saquabus.org/internal/appconf"
	"saquabus.org/internal/logging"
)

// Config describes where the transit database lives.
type Config struct {
	DBPath  string
	Env     appconf.Environment
	verbose bool
}

func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}
}

// Client is the main entry point for the transit store.
type Client struct {
	config        Config
	DB            *sql.DB
	Queries       *Queries
	importRuntime atomic.Int64
}

// NewClient opens (and migrates) the database described by config.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	} else if config.verbose {
		logging.LogOperation(slog.Default().With(slog.String("component", "transitdb")),
			"tables_created", slog.String("db_path", config.DBPath))
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}

// LastImportRuntime reports how long the most recent import took.
func (c *Client) LastImportRuntime() time.Duration {
	return time.Duration(c.importRuntime.Load())
}

// ImportSeedFile imports a YAML network description from disk.
func (c *Client) ImportSeedFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading seed file: %w", err)
	}
	return c.ImportSeed(ctx, data, path)
}

// ImportGTFSFile imports a static GTFS zip from disk.
func (c *Client) ImportGTFSFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading GTFS file: %w", err)
	}
	return c.ImportGTFS(ctx, data, path)
}
