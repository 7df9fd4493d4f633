// Package migrations creates the tables the server needs. The DDL is kept
// portable between Postgres (production) and SQLite (tests); only the column
// types that differ are picked per driver.
package migrations

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"

	"wisdom-empire/internal/models"
)

//go:embed seed.yaml
var seedYAML []byte

type dialect struct {
	timestamp string
	serial    string
}

func dialectFor(driver string) dialect {
	if strings.HasPrefix(driver, "sqlite") {
		return dialect{timestamp: "TIMESTAMP", serial: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	}
	return dialect{timestamp: "TIMESTAMPTZ", serial: "BIGSERIAL PRIMARY KEY"}
}

func statements(d dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS donations (
			id                  TEXT PRIMARY KEY,
			name                TEXT NOT NULL,
			email               TEXT NOT NULL,
			tier                TEXT NOT NULL,
			amount              NUMERIC(12, 2) NOT NULL,
			payment_method      TEXT NOT NULL,
			status              TEXT NOT NULL DEFAULT 'pending',
			provider_session_id TEXT,
			created_at          ` + d.timestamp + ` NOT NULL,
			completed_at        ` + d.timestamp + `
		)`,
		`CREATE INDEX IF NOT EXISTS donations_status_created_idx ON donations (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    ` + d.timestamp + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS content_items (
			id         ` + d.serial + `,
			category   TEXT NOT NULL,
			text       TEXT NOT NULL,
			meaning    TEXT NOT NULL DEFAULT '',
			origin     TEXT NOT NULL DEFAULT '',
			created_at ` + d.timestamp + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS content_items_category_idx ON content_items (category, created_at)`,
	}
}

// Run creates any missing tables and indexes.
func Run(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range statements(dialectFor(db.DriverName())) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Seed loads the embedded sample content when content_items is empty.
// It returns the number of rows inserted.
func Seed(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM content_items`); err != nil {
		return 0, fmt.Errorf("seed: count content: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	var items []models.ContentItem
	if err := yaml.Unmarshal(seedYAML, &items); err != nil {
		return 0, fmt.Errorf("seed: decode: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`INSERT INTO content_items (category, text, meaning, origin, created_at) VALUES (?, ?, ?, ?, ?)`)
	now := time.Now().UTC()
	for i, item := range items {
		if !item.Category.Valid() {
			return 0, fmt.Errorf("seed: item %d: unknown category %q", i, item.Category)
		}
		// Spread timestamps so "newest first" ordering is stable.
		created := now.Add(time.Duration(i) * time.Second)
		if _, err := tx.ExecContext(ctx, query, item.Category, item.Text, item.Meaning, item.Origin, created); err != nil {
			return 0, fmt.Errorf("seed: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed: commit: %w", err)
	}
	return len(items), nil
}
