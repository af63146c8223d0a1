// Package store provides vector storage and retrieval for note indexes using
// SQLite and sqlite-vec.
package store

import "time"

// EmbeddingProvider represents the provider used for embeddings.
type EmbeddingProvider string

const (
	ProviderOllama EmbeddingProvider = "ollama"
	ProviderOpenAI EmbeddingProvider = "openai"
)

// IndexRecord represents a note index (one per monitored root directory).
type IndexRecord struct {
	ID                  int64             `json:"id"`
	RootPath            string            `json:"root_path"`
	EmbeddingProvider   EmbeddingProvider `json:"embedding_provider"`
	EmbeddingModel      string            `json:"embedding_model"`
	EmbeddingDimensions int               `json:"embedding_dimensions"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// NoteInput represents one note row for insertion. The vector is supplied
// separately, in the same order as the inputs.
type NoteInput struct {
	NotePath     string    `json:"note_path"`
	SubNoteIndex int       `json:"sub_note_index"`
	Content      string    `json:"content"`
	Hash         string    `json:"hash"`
	TimeAdded    time.Time `json:"time_added"`
}

// NoteRow is a raw row read back from the store. TimeAdded is the stored
// string and Vector is nil when no vector row exists for the note; callers
// validate the shape before treating a row as a well-formed record.
type NoteRow struct {
	ID           int64     `json:"id"`
	IndexID      int64     `json:"index_id"`
	NotePath     string    `json:"note_path"`
	SubNoteIndex int64     `json:"sub_note_index"`
	Content      string    `json:"content"`
	Hash         string    `json:"hash"`
	TimeAdded    string    `json:"time_added"`
	Vector       []float32 `json:"vector,omitempty"`

	// Distance is the cosine distance from sqlite-vec; only populated on
	// search results.
	Distance    float64 `json:"distance,omitempty"`
	HasDistance bool    `json:"-"`
}
