package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notevec/notevec/internal/store"
)

func TestTableInit(t *testing.T) {
	fs := newFakeStore()
	table := NewTable(fs, newMockEmbedder(), 10)

	require.NoError(t, table.Init("/notes"))
	require.NotNil(t, table.Index())
	assert.Equal(t, "/notes", table.Root())
	assert.Equal(t, "test-model", table.Index().EmbeddingModel)
}

func TestTableInitTwice(t *testing.T) {
	table := NewTable(newFakeStore(), newMockEmbedder(), 10)

	require.NoError(t, table.Init("/notes"))
	assert.ErrorIs(t, table.Init("/notes"), ErrAlreadyInitialized)
}

func TestTableInitReusesExistingIndex(t *testing.T) {
	fs := newFakeStore()
	first := NewTable(fs, newMockEmbedder(), 10)
	require.NoError(t, first.Init("/notes"))
	createdID := first.Index().ID

	second := NewTable(fs, newMockEmbedder(), 10)
	require.NoError(t, second.Init("/notes"))
	assert.Equal(t, createdID, second.Index().ID)
}

func TestTableOperationsBeforeInit(t *testing.T) {
	table := NewTable(newFakeStore(), newMockEmbedder(), 10)
	ctx := context.Background()

	_, err := table.Add(ctx, makeRecords(1), nil)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = table.Delete(store.All())
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = table.Search(ctx, "query", 5, store.All())
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = table.Filter(store.All(), 5)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = table.CountRows()
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.Empty(t, table.Root())
}

func TestTableAddSearchRoundTrip(t *testing.T) {
	fs := newFakeStore()
	table := newTestTable(fs, newMockEmbedder(), 10)
	ctx := context.Background()

	added := time.Now().UTC().Truncate(time.Millisecond)
	records := []Record{
		{NotePath: "a.md", Content: "alpha notes", Hash: "h-a", TimeAdded: added},
		{NotePath: "b.md", Content: "beta notes", Hash: "h-b", TimeAdded: added},
	}
	_, err := table.Add(ctx, records, nil)
	require.NoError(t, err)

	results, err := table.Search(ctx, "alpha", 10, store.All())
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Every stored field survives the round trip.
	rec := results[0].Record
	assert.Equal(t, "a.md", rec.NotePath)
	assert.Equal(t, "alpha notes", rec.Content)
	assert.Equal(t, "h-a", rec.Hash)
	assert.Equal(t, 0, rec.SubNoteIndex)
	assert.True(t, rec.TimeAdded.Equal(added))
	assert.NotEmpty(t, rec.Vector)

	assert.InDelta(t, 1.0, results[0].Score+results[0].Distance, 1e-9)
}

func TestTableSearchEmptyQuery(t *testing.T) {
	table := newTestTable(newFakeStore(), newMockEmbedder(), 10)

	_, err := table.Search(context.Background(), "", 5, store.All())
	assert.Error(t, err)
}

func TestTableSearchDropsMalformedRows(t *testing.T) {
	fs := newFakeStore()
	table := newTestTable(fs, newMockEmbedder(), 10)
	ctx := context.Background()

	_, err := table.Add(ctx, []Record{
		{NotePath: "good.md", Content: "fine", Hash: "h", TimeAdded: time.Now().UTC()},
	}, nil)
	require.NoError(t, err)

	// Corrupt a row directly in the backing store.
	fs.rows = append(fs.rows, store.NoteRow{
		ID:        99,
		IndexID:   1,
		NotePath:  "broken.md",
		Content:   "no vector",
		TimeAdded: time.Now().UTC().Format(time.RFC3339Nano),
	})

	results, err := table.Search(ctx, "fine", 10, store.All())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good.md", results[0].Record.NotePath)
}

func TestTableFilter(t *testing.T) {
	fs := newFakeStore()
	table := newTestTable(fs, newMockEmbedder(), 10)
	ctx := context.Background()

	_, err := table.Add(ctx, []Record{
		{NotePath: "a.md", Content: "alpha", Hash: "h-a", TimeAdded: time.Now().UTC()},
		{NotePath: "b.md", Content: "", Hash: "h-b", TimeAdded: time.Now().UTC()},
	}, nil)
	require.NoError(t, err)

	byPath, err := table.Filter(store.PathEquals("a.md"), 10)
	require.NoError(t, err)
	require.Len(t, byPath, 1)
	assert.Equal(t, "alpha", byPath[0].Content)

	empty, err := table.Filter(store.ContentEmpty(true), 10)
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.Equal(t, "b.md", empty[0].NotePath)

	// Filter never touches the embedder or the vector search path.
	assert.Zero(t, fs.searchCalls)
}

func TestTableFilterRawKeepsMalformedRows(t *testing.T) {
	fs := newFakeStore()
	table := newTestTable(fs, newMockEmbedder(), 10)

	fs.rows = append(fs.rows, store.NoteRow{
		ID:       1,
		IndexID:  1,
		NotePath: "broken.md",
		Content:  "content without a vector",
	})

	parsed, err := table.Filter(store.PathEquals("broken.md"), 10)
	require.NoError(t, err)
	assert.Empty(t, parsed)

	raw, err := table.FilterRaw(store.PathEquals("broken.md"), 10)
	require.NoError(t, err)
	assert.Len(t, raw, 1)
}

func TestTableDelete(t *testing.T) {
	fs := newFakeStore()
	table := newTestTable(fs, newMockEmbedder(), 10)
	ctx := context.Background()

	_, err := table.Add(ctx, makeRecords(3), nil)
	require.NoError(t, err)

	deleted, err := table.Delete(store.PathEquals("note-001.md"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := table.CountRows()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTableDeleteAll(t *testing.T) {
	fs := newFakeStore()
	table := newTestTable(fs, newMockEmbedder(), 10)

	_, err := table.Add(context.Background(), makeRecords(5), nil)
	require.NoError(t, err)

	table.DeleteAll()

	count, err := table.CountRows()
	require.NoError(t, err)
	assert.Zero(t, count)
}
