package storage

import (
	"agent-browser/models"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresWriter struct {
	pool *pgxpool.Pool
}

func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresWriter{pool: pool}, nil
}

func (w *PostgresWriter) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS probe_results (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	final_url TEXT,
	title TEXT,
	webdriver BOOLEAN NOT NULL,
	has_chrome BOOLEAN NOT NULL,
	cdp_markers TEXT[] NOT NULL DEFAULT '{}',
	automation_markers TEXT[] NOT NULL DEFAULT '{}',
	plugin_count INTEGER NOT NULL,
	languages TEXT[] NOT NULL DEFAULT '{}',
	notifications TEXT,
	webgl_vendor TEXT,
	webgl_renderer TEXT,
	leaks TEXT[] NOT NULL DEFAULT '{}',
	probed_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_probe_results_url ON probe_results(url);
CREATE INDEX IF NOT EXISTS idx_probe_results_probed_at ON probe_results(probed_at);
`

func (w *PostgresWriter) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := w.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const insertSQL = `
INSERT INTO probe_results (
	url, final_url, title, webdriver, has_chrome, cdp_markers, automation_markers,
	plugin_count, languages, notifications, webgl_vendor, webgl_renderer, leaks, probed_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
`

func (w *PostgresWriter) WriteBatch(ctx context.Context, results []models.ProbeResult) error {
	if len(results) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	enqueued := 0
	for _, r := range results {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			continue
		}

		batch.Queue(
			insertSQL,
			url,
			strings.TrimSpace(r.FinalURL),
			strings.TrimSpace(r.Title),
			r.Webdriver,
			r.HasChrome,
			nonNil(r.CDPMarkers),
			nonNil(r.AutomationMarkers),
			r.PluginCount,
			nonNil(r.Languages),
			r.NotificationPermission,
			r.WebGLVendor,
			r.WebGLRenderer,
			nonNil(r.Leaks()),
			r.ProbedAt,
		)
		enqueued++
	}

	if enqueued == 0 {
		return nil
	}

	br := w.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < enqueued; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert failed at row %d: %w", i, err)
		}
	}

	return nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
