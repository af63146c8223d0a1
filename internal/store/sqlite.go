package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register sqlite-vec extension
	sqlite_vec.Auto()
}

// SQLiteStore implements the Store interface using SQLite and sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite store at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug("Opened SQLite store", "path", dbPath)

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateIndex creates a new index record for a root directory.
func (s *SQLiteStore) CreateIndex(rootPath string, provider EmbeddingProvider, model string, dimensions int) (*IndexRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureVectorTable(s.db, dimensions); err != nil {
		return nil, fmt.Errorf("failed to ensure vector table: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec(`
		INSERT INTO indexes (root_path, embedding_provider, embedding_model, embedding_dimensions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rootPath, string(provider), model, dimensions, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get index ID: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339, now)
	return &IndexRecord{
		ID:                  id,
		RootPath:            rootPath,
		EmbeddingProvider:   provider,
		EmbeddingModel:      model,
		EmbeddingDimensions: dimensions,
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}, nil
}

// GetIndex retrieves an index by its root path. Returns nil when no index
// exists for the path.
func (s *SQLiteStore) GetIndex(rootPath string) (*IndexRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var record IndexRecord
	var createdAt, updatedAt string
	var provider string

	err := s.db.QueryRow(`
		SELECT id, root_path, embedding_provider, embedding_model, embedding_dimensions, created_at, updated_at
		FROM indexes WHERE root_path = ?
	`, rootPath).Scan(
		&record.ID, &record.RootPath,
		&provider, &record.EmbeddingModel, &record.EmbeddingDimensions,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get index: %w", err)
	}

	record.EmbeddingProvider = EmbeddingProvider(provider)
	record.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	record.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &record, nil
}

// ListIndexes returns all indexes.
func (s *SQLiteStore) ListIndexes() ([]IndexRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, root_path, embedding_provider, embedding_model, embedding_dimensions, created_at, updated_at
		FROM indexes ORDER BY root_path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer rows.Close()

	var indexes []IndexRecord
	for rows.Next() {
		var record IndexRecord
		var createdAt, updatedAt string
		var provider string

		if err := rows.Scan(
			&record.ID, &record.RootPath,
			&provider, &record.EmbeddingModel, &record.EmbeddingDimensions,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}

		record.EmbeddingProvider = EmbeddingProvider(provider)
		record.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		record.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

		indexes = append(indexes, record)
	}

	return indexes, rows.Err()
}

// DeleteIndex deletes an index and all its notes and vectors.
func (s *SQLiteStore) DeleteIndex(rootPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var indexID int64
	err := s.db.QueryRow("SELECT id FROM indexes WHERE root_path = ?", rootPath).Scan(&indexID)
	if err == sql.ErrNoRows {
		return nil // Index doesn't exist
	}
	if err != nil {
		return fmt.Errorf("failed to get index ID: %w", err)
	}

	_, err = s.db.Exec(`
		DELETE FROM note_vectors WHERE note_id IN (
			SELECT id FROM notes WHERE index_id = ?
		)
	`, indexID)
	if err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}

	// Cascades to notes
	_, err = s.db.Exec("DELETE FROM indexes WHERE id = ?", indexID)
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}

	return nil
}

// TouchIndex updates the index's updated_at timestamp.
func (s *SQLiteStore) TouchIndex(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec("UPDATE indexes SET updated_at = ? WHERE id = ?", now, id)
	return err
}

// AddNotes inserts notes with their embeddings in a single transaction. The
// call is all-or-nothing: a failure leaves no note row and no vector row
// behind, so readers never observe a note without its vector.
func (s *SQLiteStore) AddNotes(indexID int64, notes []NoteInput, embeddings [][]float32) error {
	if len(notes) != len(embeddings) {
		return fmt.Errorf("notes and embeddings count mismatch: %d != %d", len(notes), len(embeddings))
	}
	if len(notes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, note := range notes {
		result, err := tx.Exec(`
			INSERT INTO notes (index_id, note_path, sub_note_index, content, hash, time_added)
			VALUES (?, ?, ?, ?, ?, ?)
		`, indexID, note.NotePath, note.SubNoteIndex, note.Content, note.Hash,
			note.TimeAdded.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to insert note %d (%s): %w", i, note.NotePath, err)
		}

		noteID, _ := result.LastInsertId()

		embeddingBlob := serializeEmbedding(embeddings[i])
		_, err = tx.Exec(`
			INSERT INTO note_vectors (note_id, embedding)
			VALUES (?, ?)
		`, noteID, embeddingBlob)
		if err != nil {
			return fmt.Errorf("failed to insert vector for note %d (%s): %w", i, note.NotePath, err)
		}
	}

	return tx.Commit()
}

// DeleteNotes removes all notes matching the predicate, along with their
// vectors, in a single transaction. A note row and its vector are always
// deleted together, so a failure never leaves a vector-less note behind.
// Returns the number of note rows deleted.
func (s *SQLiteStore) DeleteNotes(indexID int64, pred Predicate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	where := "index_id = ?"
	args := []any{indexID}
	if expr, predArgs := pred.SQL(); expr != "" {
		where += " AND (" + expr + ")"
		args = append(args, predArgs...)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM note_vectors WHERE note_id IN (
			SELECT id FROM notes WHERE `+where+`
		)
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete vectors: %w", err)
	}

	result, err := tx.Exec("DELETE FROM notes WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deletion: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// QueryNotes returns up to limit rows matching the predicate in store-native
// order. This is a metadata query: no similarity ranking is applied.
func (s *SQLiteStore) QueryNotes(indexID int64, pred Predicate, limit int) ([]NoteRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := "n.index_id = ?"
	args := []any{indexID}
	if expr, predArgs := pred.SQL(); expr != "" {
		where += " AND (" + expr + ")"
		args = append(args, predArgs...)
	}
	args = append(args, limit)

	rows, err := s.db.Query(`
		SELECT n.id, n.index_id, n.note_path, n.sub_note_index, n.content, n.hash, n.time_added, nv.embedding
		FROM notes n
		LEFT JOIN note_vectors nv ON nv.note_id = n.id
		WHERE `+where+`
		ORDER BY n.id
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	return scanNoteRows(rows, false)
}

// SearchNotes performs a vector similarity search, optionally narrowed by a
// predicate. Results are ordered by ascending cosine distance.
func (s *SQLiteStore) SearchNotes(indexID int64, queryEmbedding []float32, topK int, pred Predicate) ([]NoteRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryBlob := serializeEmbedding(queryEmbedding)

	// sqlite-vec applies filters AFTER k results are selected from the
	// vector index. To still end up with topK rows after filtering by
	// index_id (and any extra predicate), request more from the vector
	// index and let the SQL LIMIT enforce the final count.
	kForVec := topK * 10
	if kForVec > 1000 {
		kForVec = 1000
	}

	where := "n.index_id = ? AND nv.embedding MATCH ? AND k = ?"
	args := []any{indexID, queryBlob, kForVec}
	if expr, predArgs := pred.SQL(); expr != "" {
		where += " AND (" + expr + ")"
		args = append(args, predArgs...)
	}
	args = append(args, topK)

	rows, err := s.db.Query(`
		SELECT n.id, n.index_id, n.note_path, n.sub_note_index, n.content, n.hash, n.time_added, nv.embedding, nv.distance
		FROM note_vectors nv
		JOIN notes n ON n.id = nv.note_id
		WHERE `+where+`
		ORDER BY nv.distance ASC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	defer rows.Close()

	return scanNoteRows(rows, true)
}

// CountNotes returns the current note row count for an index.
func (s *SQLiteStore) CountNotes(indexID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM notes WHERE index_id = ?", indexID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}

// scanNoteRows scans query results into NoteRow values.
func scanNoteRows(rows *sql.Rows, withDistance bool) ([]NoteRow, error) {
	var result []NoteRow
	for rows.Next() {
		var row NoteRow
		var embedding []byte

		dest := []any{
			&row.ID, &row.IndexID, &row.NotePath, &row.SubNoteIndex,
			&row.Content, &row.Hash, &row.TimeAdded, &embedding,
		}
		if withDistance {
			dest = append(dest, &row.Distance)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}

		row.HasDistance = withDistance
		if embedding != nil {
			row.Vector = deserializeEmbedding(embedding)
		}

		result = append(result, row)
	}
	return result, rows.Err()
}

// serializeEmbedding converts a float32 slice to bytes for sqlite-vec.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding converts a sqlite-vec blob back to a float32 slice.
func deserializeEmbedding(blob []byte) []float32 {
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding
}
