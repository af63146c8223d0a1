package store

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
)

const currentSchemaVersion = 1

// Schema definitions
const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

const indexesTable = `
CREATE TABLE IF NOT EXISTS indexes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	root_path TEXT UNIQUE NOT NULL,
	embedding_provider TEXT NOT NULL,
	embedding_model TEXT NOT NULL,
	embedding_dimensions INTEGER NOT NULL,
	created_at TEXT DEFAULT (datetime('now')),
	updated_at TEXT DEFAULT (datetime('now'))
);
`

const notesTable = `
CREATE TABLE IF NOT EXISTS notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	index_id INTEGER NOT NULL REFERENCES indexes(id) ON DELETE CASCADE,
	note_path TEXT NOT NULL,
	sub_note_index INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL,
	hash TEXT NOT NULL DEFAULT '',
	time_added TEXT NOT NULL,
	UNIQUE(index_id, note_path, sub_note_index)
);

CREATE INDEX IF NOT EXISTS idx_notes_index_id ON notes(index_id);
CREATE INDEX IF NOT EXISTS idx_notes_path ON notes(index_id, note_path);
`

// createVectorTable creates the sqlite-vec virtual table for the given dimensions.
func createVectorTable(db *sql.DB, dimensions int) error {
	query := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS note_vectors USING vec0(
			note_id INTEGER PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, dimensions)

	_, err := db.Exec(query)
	return err
}

// initSchema initializes the database schema.
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		version = 0
	} else if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	if version >= currentSchemaVersion {
		log.Debug("Schema is up to date", "version", version)
		return nil
	}

	log.Debug("Migrating schema", "from", version, "to", currentSchemaVersion)

	if version < 1 {
		if err := migrateV1(db); err != nil {
			return fmt.Errorf("failed to migrate to v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func migrateV1(db *sql.DB) error {
	log.Debug("Applying migration v1")

	tables := []string{indexesTable, notesTable}
	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// The vector table is created lazily when the first index is created,
	// since its declaration needs the embedding dimensions.

	if _, err := db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", 1); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return nil
}

// ensureVectorTable ensures the vector table exists with the correct dimensions.
func ensureVectorTable(db *sql.DB, dimensions int) error {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='note_vectors'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		log.Debug("Creating vector table", "dimensions", dimensions)
		return createVectorTable(db, dimensions)
	} else if err != nil {
		return fmt.Errorf("failed to check vector table: %w", err)
	}

	// Table exists; indexes created later must use the same dimensions.
	return nil
}
