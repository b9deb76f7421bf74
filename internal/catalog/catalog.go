package catalog

import (
	"bufio"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/utils"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNoFeedFiles is returned by IngestLatest when the feed directory holds
// no usable dump files.
var ErrNoFeedFiles = errors.New("no feed files found")

// Catalog is the SQLite-backed index of newly registered domains. Feed dumps
// (one domain per line) are ingested into it, and brand searches run against
// the stored names.
type Catalog struct {
	db     *sql.DB
	cfg    Config
	logger interfaces.Logger
}

// New wires a Catalog around an open SQLite handle, applying pragmas and the
// embedded schema. The caller keeps ownership of db and is responsible for
// closing it.
func New(db *sql.DB, cfg Config, logger interfaces.Logger) (*Catalog, error) {
	if db == nil {
		return nil, fmt.Errorf("db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if err := applySchema(db); err != nil {
		return nil, err
	}
	return &Catalog{
		db:     db,
		cfg:    cfg,
		logger: logger.With(interfaces.Field{Key: "component", Value: "catalog"}),
	}, nil
}

// applySchema applies the SQLite schema to the database and sets appropriate pragmas.
func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",        // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous=NORMAL",      // Balance between safety and performance
		"PRAGMA foreign_keys=ON",         // Enable foreign key constraints
		"PRAGMA busy_timeout=5000",       // Wait up to 5 seconds on locked database
		"PRAGMA cache_size=-64000",       // 64MB cache (negative means KB)
		"PRAGMA temp_store=MEMORY",       // Store temp tables in memory
		"PRAGMA mmap_size=268435456",     // 256MB memory-mapped I/O
		"PRAGMA auto_vacuum=INCREMENTAL", // Incremental auto-vacuum
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// IngestStats summarizes one feed ingest.
type IngestStats struct {
	SourceFile string `json:"source_file"`
	Lines      int    `json:"lines"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
}

// IngestFile reads one feed dump (one domain per line, blank lines skipped)
// into the catalog. Domains already present are counted as duplicates and
// left untouched.
func (c *Catalog) IngestFile(ctx context.Context, path string) (*IngestStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()

	stats := &IngestStats{SourceFile: filepath.Base(path)}
	now := time.Now().Unix()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ingest transaction: %w", err)
	}

	// If Commit() succeeds, Rollback() returns sql.ErrTxDone which we can ignore.
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			c.logger.Warn("failed to rollback ingest transaction",
				interfaces.Field{Key: "error", Value: rerr.Error()})
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO nrd_domains
		(name, ascii_name, source_file, first_seen)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		res, err := stmt.ExecContext(ctx, line, utils.ASCIIDomain(line), stats.SourceFile, now)
		if err != nil {
			return nil, fmt.Errorf("insert domain %q: %w", line, err)
		}
		ra, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected for %q: %w", line, err)
		}
		if ra > 0 {
			stats.Inserted++
		} else {
			stats.Duplicates++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ingest: %w", err)
	}

	c.logger.Info("feed ingested",
		interfaces.Field{Key: "source", Value: stats.SourceFile},
		interfaces.Field{Key: "lines", Value: stats.Lines},
		interfaces.Field{Key: "inserted", Value: stats.Inserted},
		interfaces.Field{Key: "duplicates", Value: stats.Duplicates})
	return stats, nil
}

// IngestLatest finds the newest dump file under the configured feed directory
// and ingests it. Returns ErrNoFeedFiles when nothing is there.
func (c *Catalog) IngestLatest(ctx context.Context) (*IngestStats, error) {
	path, err := latestFeedFile(c.cfg.FeedDir)
	if err != nil {
		return nil, err
	}
	return c.IngestFile(ctx, path)
}

// latestFeedFile returns the most recently modified dump file under dir.
// Both loose *.txt files and extracted archive directories holding a
// domain-names.txt are considered.
func latestFeedFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w under %s", ErrNoFeedFiles, dir)
		}
		return "", fmt.Errorf("read feed directory: %w", err)
	}

	var latestPath string
	var latestMod time.Time
	consider := func(path string) {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		if info.ModTime().After(latestMod) {
			latestMod = info.ModTime()
			latestPath = path
		}
	}

	for _, e := range entries {
		if e.IsDir() {
			consider(filepath.Join(dir, e.Name(), "domain-names.txt"))
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".txt") {
			consider(filepath.Join(dir, e.Name()))
		}
	}

	if latestPath == "" {
		return "", fmt.Errorf("%w under %s", ErrNoFeedFiles, dir)
	}
	return latestPath, nil
}

// Count returns how many domains the catalog holds.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nrd_domains`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count domains: %w", err)
	}
	return n, nil
}
