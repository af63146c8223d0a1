package cli

import (
	"fmt"
	"path/filepath"

	"github.com/notevec/notevec/internal/config"
	"github.com/notevec/notevec/internal/embeddings"
	"github.com/notevec/notevec/internal/index"
	"github.com/notevec/notevec/internal/notes"
	"github.com/notevec/notevec/internal/store"
)

// env bundles the opened store and initialized table for one notes root.
type env struct {
	cfg   *config.Config
	store *store.SQLiteStore
	table *index.Table
}

// openEnv opens the database and initializes the table facade for the given
// root directory. When an index for the root already exists, the embedding
// service is created from the index's recorded provider and model so queries
// use the model the vectors were built with.
func openEnv(root string) (*env, error) {
	cfg := config.Get()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	existing, err := st.GetIndex(absRoot)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to look up index: %w", err)
	}

	var emb embeddings.Service
	if existing != nil {
		emb, err = embeddings.NewServiceForIndex(string(existing.EmbeddingProvider), existing.EmbeddingModel, cfg)
	} else {
		emb, err = embeddings.NewService(cfg)
	}
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	table := index.NewTable(st, emb, cfg.Sync.BatchSize)
	if err := table.Init(absRoot); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize table: %w", err)
	}

	return &env{cfg: cfg, store: st, table: table}, nil
}

func (e *env) close() {
	e.store.Close()
}

// listOptions builds note lister options from the configuration.
func (e *env) listOptions() notes.ListOptions {
	return notes.ListOptions{
		Extensions:     e.cfg.Notes.Extensions,
		MaxFileSize:    int64(e.cfg.Notes.MaxFileSize),
		MaxFileCount:   e.cfg.Notes.MaxFileCount,
		IgnorePatterns: e.cfg.Notes.IgnorePatterns,
		UseGitignore:   true,
	}
}

// syncer builds a syncer over the opened table.
func (e *env) syncer() *index.Syncer {
	return index.NewSyncer(e.table, e.listOptions())
}
