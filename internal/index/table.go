package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/notevec/notevec/internal/embeddings"
	"github.com/notevec/notevec/internal/store"
)

// Errors returned by the table facade.
var (
	// ErrNotInitialized is returned when an operation runs before Init.
	ErrNotInitialized = errors.New("table not initialized")

	// ErrAlreadyInitialized is returned when Init is called twice.
	ErrAlreadyInitialized = errors.New("table already initialized")
)

// Table is the single gateway to the vector store for one notes directory.
// It owns the embedding service binding and the live index handle; all
// reads and writes of note rows go through it.
type Table struct {
	store     store.Store
	embedder  embeddings.Service
	batchSize int

	index *store.IndexRecord
}

// SearchResult is a Record with its similarity ranking.
type SearchResult struct {
	Record   Record  `json:"record"`
	Distance float64 `json:"distance"` // Cosine distance from the store
	Score    float64 `json:"score"`    // 1 - distance (similarity)
}

// NewTable creates a table facade over a store and embedding service. Init
// must be called before any other operation.
func NewTable(st store.Store, emb embeddings.Service, batchSize int) *Table {
	if batchSize <= 0 {
		batchSize = DefaultChunkSize
	}
	return &Table{
		store:     st,
		embedder:  emb,
		batchSize: batchSize,
	}
}

// Init binds the table to the index scoped to rootDir, creating the index if
// absent. It must be called exactly once.
func (t *Table) Init(rootDir string) error {
	if t.index != nil {
		return ErrAlreadyInitialized
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return fmt.Errorf("failed to resolve root path: %w", err)
	}

	existing, err := t.store.GetIndex(absRoot)
	if err != nil {
		return fmt.Errorf("failed to look up index: %w", err)
	}
	if existing != nil {
		if existing.EmbeddingModel != t.embedder.ModelName() {
			log.Warn("Index model mismatch",
				"indexed", existing.EmbeddingModel,
				"configured", t.embedder.ModelName())
		}
		t.index = existing
		return nil
	}

	log.Info("Creating new index", "root", absRoot, "model", t.embedder.ModelName())
	created, err := t.store.CreateIndex(
		absRoot,
		store.EmbeddingProvider(string(t.embedder.Provider())),
		t.embedder.ModelName(),
		t.embedder.Dimensions(),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	t.index = created
	return nil
}

// Root returns the absolute root directory this table is scoped to.
func (t *Table) Root() string {
	if t.index == nil {
		return ""
	}
	return t.index.RootPath
}

// Index returns the bound index record, or nil before Init.
func (t *Table) Index() *store.IndexRecord {
	return t.index
}

// Add commits records in bounded chunks through the batch writer. See
// WriteBatches for the failure and progress contract.
func (t *Table) Add(ctx context.Context, records []Record, onProgress ProgressFunc) ([]ChunkResult, error) {
	if t.index == nil {
		return nil, ErrNotInitialized
	}
	return t.writeBatches(ctx, records, onProgress), nil
}

// Delete removes all rows matching the predicate. Returns the number of rows
// removed.
func (t *Table) Delete(pred store.Predicate) (int64, error) {
	if t.index == nil {
		return 0, ErrNotInitialized
	}
	return t.store.DeleteNotes(t.index.ID, pred)
}

// DeleteAll clears every row in the table. Best-effort: failures are logged
// and swallowed, since this is only used for full resets where a leftover
// row is repaired by the next sync pass.
func (t *Table) DeleteAll() {
	if t.index == nil {
		return
	}
	deleted, err := t.store.DeleteNotes(t.index.ID, store.All())
	if err != nil {
		log.Warn("Failed to clear table", "root", t.index.RootPath, "error", err)
		return
	}
	log.Debug("Cleared table", "root", t.index.RootPath, "rows", deleted)
}

// Search embeds queryText through the bound embedding service and returns up
// to limit records in similarity order, optionally narrowed by a predicate.
// Rows that fail the shape check are logged and dropped.
func (t *Table) Search(ctx context.Context, queryText string, limit int, pred store.Predicate) ([]SearchResult, error) {
	if t.index == nil {
		return nil, ErrNotInitialized
	}
	if queryText == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	queryEmbedding, err := t.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := t.store.SearchNotes(t.index.ID, queryEmbedding, limit, pred)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var results []SearchResult
	for _, row := range rows {
		record, err := ParseRow(row)
		if err != nil {
			log.Debug("Dropping malformed row from search results", "error", err)
			continue
		}
		results = append(results, SearchResult{
			Record:   record,
			Distance: row.Distance,
			Score:    1 - row.Distance,
		})
	}

	return results, nil
}

// Filter performs a metadata-only query: up to limit rows matching the
// predicate in store-native order, with no similarity ranking. Used for
// existence checks and full-table scans, not semantic search. Rows that fail
// the shape check are logged and dropped.
func (t *Table) Filter(pred store.Predicate, limit int) ([]Record, error) {
	rows, err := t.FilterRaw(pred, limit)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, row := range rows {
		record, err := ParseRow(row)
		if err != nil {
			log.Debug("Dropping malformed row from filter results", "error", err)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// FilterRaw is Filter without the shape check: it surfaces every matching
// row, malformed or not. The reconciler uses it so that a corrupt row still
// counts as "present" for its path instead of triggering a duplicate insert.
func (t *Table) FilterRaw(pred store.Predicate, limit int) ([]store.NoteRow, error) {
	if t.index == nil {
		return nil, ErrNotInitialized
	}
	return t.store.QueryNotes(t.index.ID, pred, limit)
}

// CountRows returns the current row count of the table.
func (t *Table) CountRows() (int, error) {
	if t.index == nil {
		return 0, ErrNotInitialized
	}
	return t.store.CountNotes(t.index.ID)
}
