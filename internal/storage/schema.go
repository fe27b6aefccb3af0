package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// migration upgrades the database to version.
type migration struct {
	version    int
	name       string
	statements []string
}

// Statements use only types and syntax shared by SQLite and PostgreSQL.
var migrations = []migration{
	{
		version: 1,
		name:    "content tables",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS cms_pages (
				id TEXT PRIMARY KEY,
				slug TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				field_count INTEGER NOT NULL DEFAULT 0,
				source_files TEXT NOT NULL DEFAULT '[]',
				content_hash TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS cms_sections (
				id TEXT PRIMARY KEY,
				page_slug TEXT NOT NULL,
				slug TEXT NOT NULL,
				name TEXT NOT NULL,
				is_repeater INTEGER NOT NULL DEFAULT 0,
				repeater_config TEXT,
				sort_order INTEGER NOT NULL DEFAULT 0,
				content_hash TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (page_slug, slug)
			)`,
			`CREATE TABLE IF NOT EXISTS cms_fields (
				id TEXT PRIMARY KEY,
				path TEXT NOT NULL UNIQUE,
				page_slug TEXT NOT NULL,
				section_slug TEXT NOT NULL,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				label TEXT NOT NULL,
				required INTEGER NOT NULL DEFAULT 0,
				definition TEXT NOT NULL,
				sort_order INTEGER NOT NULL DEFAULT 0,
				content_hash TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "lookup indexes",
		statements: []string{
			"CREATE INDEX IF NOT EXISTS idx_cms_sections_page ON cms_sections(page_slug)",
			"CREATE INDEX IF NOT EXISTS idx_cms_fields_section ON cms_fields(page_slug, section_slug)",
			"CREATE INDEX IF NOT EXISTS idx_cms_fields_type ON cms_fields(type)",
		},
	},
}

// CurrentSchemaVersion is the version after all migrations ran.
func CurrentSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate runs every migration newer than the stored version, each in its
// own transaction.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if version == CurrentSchemaVersion() {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}
	if version > CurrentSchemaVersion() {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion())
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", CurrentSchemaVersion(),
	)

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		err := db.WithTx(ctx, func(tx *Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			return setSchemaVersion(ctx, tx, m.version)
		})
		if err != nil {
			return err
		}
		db.logger.Debug("Applied migration", "version", m.version, "name", m.name)
	}
	return nil
}

// SchemaVersion returns the stored migration version, 0 for a new database.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(ctx context.Context, tx *Tx, version int) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}
