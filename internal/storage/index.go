package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/canopy-crawler/canopy/internal/model"
)

// Index is the SQLite crawl index: one row per run, one row per
// crawled address. Reports and later tooling query it; the engine only
// writes it.
//
// Design decision: one database file for all runs rather than a file
// per run. Cross-run queries (did this URL change since last week?)
// stay a single SQL statement, and backup is one file.
type Index struct {
	db     *sql.DB
	dbPath string
}

// OpenIndex opens or creates the index database in dir.
func OpenIndex(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	dbPath := filepath.Join(dir, "canopy.db")

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	// SQLite supports one writer; a single connection avoids lock
	// contention errors under the worker pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	idx := &Index{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := idx.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return idx, nil
}

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// createTables creates the schema if it does not exist.
func (i *Index) createTables() error {
	schema := `
	-- One row per crawl run.
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		seeds TEXT NOT NULL,
		visited INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0
	);

	-- One row per address touched by a run.
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		host TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		status_code INTEGER,
		depth INTEGER NOT NULL,
		parent TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT,
		artifacts TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_host ON pages(host);
	`
	_, err := i.db.ExecContext(context.Background(), schema)
	return err
}

// RecordRun inserts or updates the run summary row.
func (i *Index) RecordRun(ctx context.Context, r *model.CrawlResult) error {
	seeds, err := json.Marshal(r.Seeds)
	if err != nil {
		return fmt.Errorf("encode seeds: %w", err)
	}

	var finished any
	if !r.FinishedAt.IsZero() {
		finished = r.FinishedAt
	}

	_, err = i.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, seeds, visited, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			visited = excluded.visited,
			failed = excluded.failed,
			skipped = excluded.skipped`,
		r.RunID, r.StartedAt, finished, string(seeds),
		r.VisitedCount, r.FailedCount, r.SkippedCount)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecordPage inserts one address outcome for a run. Re-recording the
// same address replaces the earlier row.
func (i *Index) RecordPage(ctx context.Context, runID, host, contentHash string, o *model.Outcome) error {
	var artifacts any
	if len(o.Artifacts) > 0 {
		data, err := json.Marshal(o.Artifacts)
		if err != nil {
			return fmt.Errorf("encode artifacts: %w", err)
		}
		artifacts = string(data)
	}

	_, err := i.db.ExecContext(ctx, `
		INSERT INTO pages (run_id, url, host, status, reason, status_code,
			depth, parent, attempts, content_hash, artifacts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, url) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			status_code = excluded.status_code,
			attempts = excluded.attempts,
			content_hash = excluded.content_hash,
			artifacts = excluded.artifacts`,
		runID, o.Address, host, string(o.Status), o.Reason, o.StatusCode,
		o.Depth, o.Parent, o.Attempts, contentHash, artifacts)
	if err != nil {
		return fmt.Errorf("record page: %w", err)
	}
	return nil
}

// PageSummary is one pages row as returned by queries.
type PageSummary struct {
	URL        string
	Host       string
	Status     string
	StatusCode int
	Depth      int
	Attempts   int
}

// PagesForRun returns every page row for a run, ordered by URL.
func (i *Index) PagesForRun(ctx context.Context, runID string) ([]PageSummary, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT url, host, status, COALESCE(status_code, 0), depth, attempts
		FROM pages WHERE run_id = ? ORDER BY url`, runID)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []PageSummary
	for rows.Next() {
		var p PageSummary
		if err := rows.Scan(&p.URL, &p.Host, &p.Status, &p.StatusCode, &p.Depth, &p.Attempts); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return out, nil
}
