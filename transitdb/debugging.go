package transitdb

import (
	"context"
	"fmt"
	"time"
)

// storeTables is every table the migrations create, in dependency order.
var storeTables = []string{"lines", "stops", "stop_on_route", "schedules", "import_metadata"}

// StoreStats is a point-in-time view of what the database holds.
type StoreStats struct {
	Path    string
	Tables  map[string]int
	Imports []ImportRecord

	// LastImportRuntime is zero until this process has run an import.
	LastImportRuntime time.Duration
}

// ImportRecord is one row of import_metadata with the timestamp decoded.
type ImportRecord struct {
	Source     string
	FileHash   string
	ImportedAt time.Time
}

// TableCounts counts the rows of every migrated table. Tables that do not exist yet
// are left out of the result.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(storeTables))
	for _, table := range storeTables {
		var present int
		err := c.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&present)
		if err != nil {
			return nil, fmt.Errorf("failed to look up table %s: %w", table, err)
		}
		if present == 0 {
			continue
		}

		var rows int
		// table names come from storeTables only
		if err := c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&rows); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = rows
	}
	return counts, nil
}

// Stats reports table sizes and the recorded imports, newest first.
func (c *Client) Stats(ctx context.Context) (StoreStats, error) {
	counts, err := c.TableCounts(ctx)
	if err != nil {
		return StoreStats{}, err
	}
	imports, err := c.Queries.ListImportMetadata(ctx)
	if err != nil {
		return StoreStats{}, fmt.Errorf("failed to list imports: %w", err)
	}

	stats := StoreStats{Path: c.GetDBPath(), Tables: counts, LastImportRuntime: c.LastImportRuntime()}
	for _, m := range imports {
		stats.Imports = append(stats.Imports, ImportRecord{
			Source:     m.Source,
			FileHash:   m.FileHash,
			ImportedAt: time.Unix(m.ImportTime, 0).UTC(),
		})
	}
	return stats, nil
}
