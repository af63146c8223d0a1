package store

// Store defines the interface for vector storage operations.
type Store interface {
	// Index management
	CreateIndex(rootPath string, provider EmbeddingProvider, model string, dimensions int) (*IndexRecord, error)
	GetIndex(rootPath string) (*IndexRecord, error)
	ListIndexes() ([]IndexRecord, error)
	DeleteIndex(rootPath string) error
	TouchIndex(id int64) error

	// Note operations
	AddNotes(indexID int64, notes []NoteInput, embeddings [][]float32) error
	DeleteNotes(indexID int64, pred Predicate) (int64, error)
	QueryNotes(indexID int64, pred Predicate, limit int) ([]NoteRow, error)
	SearchNotes(indexID int64, queryEmbedding []float32, topK int, pred Predicate) ([]NoteRow, error)
	CountNotes(indexID int64) (int, error)

	Close() error
}
