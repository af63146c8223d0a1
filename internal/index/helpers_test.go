package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/notevec/notevec/internal/embeddings"
	"github.com/notevec/notevec/internal/store"
)

// mockEmbedder implements embeddings.Service for testing.
type mockEmbedder struct {
	model      string
	dimensions int
	embedCalls int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls++
	return m.generateEmbedding(text), nil
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls++
	return m.generateEmbedding(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.embedCalls++
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.generateEmbedding(text)
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int {
	return m.dimensions
}

func (m *mockEmbedder) Provider() embeddings.Provider {
	return embeddings.ProviderOllama
}

func (m *mockEmbedder) ModelName() string {
	return m.model
}

// generateEmbedding derives a deterministic vector from the text.
func (m *mockEmbedder) generateEmbedding(text string) []float32 {
	emb := make([]float32, m.dimensions)
	for i := range emb {
		emb[i] = float32((len(text)+i)%7) * 0.1
	}
	if m.dimensions > 0 {
		emb[0] = 1 // keep vectors non-zero for cosine distance
	}
	return emb
}

// Verify mockEmbedder implements embeddings.Service
var _ embeddings.Service = (*mockEmbedder)(nil)

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{model: "test-model", dimensions: 4}
}

// strictEmbedder rejects empty input strings the way hosted embedding APIs
// do, and records the batches it was asked to embed.
type strictEmbedder struct {
	mockEmbedder
	batches [][]string
}

func (s *strictEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("'$.input' is invalid: empty string")
		}
	}
	s.batches = append(s.batches, texts)
	return s.mockEmbedder.EmbedBatch(ctx, texts)
}

func newStrictEmbedder() *strictEmbedder {
	return &strictEmbedder{mockEmbedder: mockEmbedder{model: "test-model", dimensions: 4}}
}

// fakeStore is an in-memory store.Store that counts calls and can fail
// selected AddNotes calls.
type fakeStore struct {
	index  *store.IndexRecord
	rows   []store.NoteRow
	nextID int64

	addCalls    int
	deleteCalls int
	queryCalls  int
	countCalls  int
	searchCalls int

	// failAdds maps 1-based AddNotes call numbers to injected errors.
	failAdds map[int]error

	// hideFromQueries makes QueryNotes skip the row with this ID while
	// CountNotes still counts it, simulating a coverage gap.
	hideFromQueries int64
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{failAdds: map[int]error{}}
}

func (f *fakeStore) CreateIndex(rootPath string, provider store.EmbeddingProvider, model string, dimensions int) (*store.IndexRecord, error) {
	f.index = &store.IndexRecord{
		ID:                  1,
		RootPath:            rootPath,
		EmbeddingProvider:   provider,
		EmbeddingModel:      model,
		EmbeddingDimensions: dimensions,
		CreatedAt:           time.Now().UTC(),
		UpdatedAt:           time.Now().UTC(),
	}
	return f.index, nil
}

func (f *fakeStore) GetIndex(rootPath string) (*store.IndexRecord, error) {
	if f.index != nil && f.index.RootPath == rootPath {
		return f.index, nil
	}
	return nil, nil
}

func (f *fakeStore) ListIndexes() ([]store.IndexRecord, error) {
	if f.index == nil {
		return nil, nil
	}
	return []store.IndexRecord{*f.index}, nil
}

func (f *fakeStore) DeleteIndex(rootPath string) error {
	f.index = nil
	f.rows = nil
	return nil
}

func (f *fakeStore) TouchIndex(id int64) error {
	return nil
}

func (f *fakeStore) AddNotes(indexID int64, notes []store.NoteInput, embeddings [][]float32) error {
	f.addCalls++
	if err := f.failAdds[f.addCalls]; err != nil {
		return err
	}
	if len(notes) != len(embeddings) {
		return fmt.Errorf("notes and embeddings count mismatch: %d != %d", len(notes), len(embeddings))
	}
	for i, n := range notes {
		f.nextID++
		f.rows = append(f.rows, store.NoteRow{
			ID:           f.nextID,
			IndexID:      indexID,
			NotePath:     n.NotePath,
			SubNoteIndex: int64(n.SubNoteIndex),
			Content:      n.Content,
			Hash:         n.Hash,
			TimeAdded:    n.TimeAdded.UTC().Format(time.RFC3339Nano),
			Vector:       embeddings[i],
		})
	}
	return nil
}

func (f *fakeStore) DeleteNotes(indexID int64, pred store.Predicate) (int64, error) {
	f.deleteCalls++
	var kept []store.NoteRow
	var deleted int64
	for _, row := range f.rows {
		if matchRow(row, pred) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeStore) QueryNotes(indexID int64, pred store.Predicate, limit int) ([]store.NoteRow, error) {
	f.queryCalls++
	var result []store.NoteRow
	for _, row := range f.rows {
		if f.hideFromQueries != 0 && row.ID == f.hideFromQueries {
			continue
		}
		if !matchRow(row, pred) {
			continue
		}
		result = append(result, row)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (f *fakeStore) SearchNotes(indexID int64, queryEmbedding []float32, topK int, pred store.Predicate) ([]store.NoteRow, error) {
	f.searchCalls++
	var result []store.NoteRow
	for _, row := range f.rows {
		if !matchRow(row, pred) {
			continue
		}
		row.HasDistance = true
		row.Distance = float64(len(result)) * 0.1
		result = append(result, row)
		if len(result) >= topK {
			break
		}
	}
	return result, nil
}

func (f *fakeStore) CountNotes(indexID int64) (int, error) {
	f.countCalls++
	return len(f.rows), nil
}

func (f *fakeStore) Close() error {
	return nil
}

// matchRow evaluates the predicate expressions the engine actually builds.
func matchRow(row store.NoteRow, pred store.Predicate) bool {
	expr, args := pred.SQL()
	if expr == "" {
		return true
	}
	argi := 0
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.Trim(clause, "()")
		switch clause {
		case "note_path = ?":
			if row.NotePath != args[argi].(string) {
				return false
			}
			argi++
		case "sub_note_index = ?":
			if int(row.SubNoteIndex) != args[argi].(int) {
				return false
			}
			argi++
		case "content = ''":
			if row.Content != "" {
				return false
			}
		case "content != ''":
			if row.Content == "" {
				return false
			}
		default:
			panic("fakeStore: unsupported predicate clause: " + clause)
		}
	}
	return true
}

// newTestTable returns an initialized table over a fake store.
func newTestTable(fs *fakeStore, emb embeddings.Service, batchSize int) *Table {
	table := NewTable(fs, emb, batchSize)
	if err := table.Init("/notes"); err != nil {
		panic(err)
	}
	return table
}
