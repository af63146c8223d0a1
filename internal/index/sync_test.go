package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notevec/notevec/internal/notes"
)

func writeNote(t *testing.T, dir, relPath, content string) {
	t.Helper()
	path := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newTestSyncer builds a syncer over a fake store rooted at a temp dir.
func newTestSyncer(t *testing.T) (*Syncer, *fakeStore, string) {
	t.Helper()
	tmpDir := t.TempDir()

	fs := newFakeStore()
	table := NewTable(fs, newMockEmbedder(), 10)
	require.NoError(t, table.Init(tmpDir))

	return NewSyncer(table, notes.DefaultListOptions()), fs, tmpDir
}

func TestRepopulateEmptyDirectory(t *testing.T) {
	syncer, fs, _ := newTestSyncer(t)

	var fractions []float64
	report, err := syncer.Repopulate(context.Background(), func(f float64) {
		fractions = append(fractions, f)
	})
	require.NoError(t, err)

	assert.Zero(t, report.FilesOnDisk)
	assert.Zero(t, report.Written)
	assert.Zero(t, report.RowCount)
	assert.Zero(t, fs.addCalls)

	// The terminal signal fires even when nothing was written.
	assert.Equal(t, []float64{1.0}, fractions)
}

func TestRepopulateIndexesAllFiles(t *testing.T) {
	syncer, fs, dir := newTestSyncer(t)
	writeNote(t, dir, "a.md", "# Alpha")
	writeNote(t, dir, "sub/b.md", "# Beta")
	writeNote(t, dir, "ignored.json", "{}") // extension not configured

	report, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesOnDisk)
	assert.Equal(t, 2, report.Missing)
	assert.Equal(t, 2, report.Written)
	assert.Empty(t, report.FailedChunks)
	assert.Equal(t, 2, report.RowCount)
	assert.Positive(t, report.Duration)

	paths := make(map[string]bool)
	for _, row := range fs.rows {
		paths[row.NotePath] = true
	}
	assert.True(t, paths["a.md"])
	assert.True(t, paths[filepath.Join("sub", "b.md")])
}

func TestRepopulateIsIdempotent(t *testing.T) {
	syncer, fs, dir := newTestSyncer(t)
	writeNote(t, dir, "a.md", "# Alpha")
	writeNote(t, dir, "b.md", "# Beta")

	_, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)
	addCallsAfterFirst := fs.addCalls

	report, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)

	// Second pass over an unchanged directory performs zero writes.
	assert.Zero(t, report.Missing)
	assert.Zero(t, report.Written)
	assert.Equal(t, addCallsAfterFirst, fs.addCalls)
	assert.Equal(t, 2, report.RowCount)
}

func TestRepopulatePicksUpNewFiles(t *testing.T) {
	syncer, fs, dir := newTestSyncer(t)
	writeNote(t, dir, "a.md", "# Alpha")

	_, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)

	writeNote(t, dir, "b.md", "# Beta")

	report, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Missing)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 2, report.RowCount)

	// a.md was not rewritten: exactly one row per path.
	perPath := make(map[string]int)
	for _, row := range fs.rows {
		perPath[row.NotePath]++
	}
	assert.Equal(t, map[string]int{"a.md": 1, "b.md": 1}, perPath)
}

func TestSyncAddThenRemove(t *testing.T) {
	syncer, _, dir := newTestSyncer(t)
	writeNote(t, dir, "a.md", "# Alpha")
	writeNote(t, dir, "b.md", "# Beta")

	report, err := syncer.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.RowCount)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.md")))

	report, err = syncer.Sync(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Pruned)
	assert.Equal(t, 1, report.RowCount)

	found, err := syncer.Reconciler().IsFileInDB("a.md")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = syncer.Reconciler().IsFileInDB("b.md")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPruneMissingKeepsLiveRows(t *testing.T) {
	syncer, _, dir := newTestSyncer(t)
	writeNote(t, dir, "keep.md", "# Keep")

	_, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)

	pruned, err := syncer.PruneMissing(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pruned)

	count, err := syncer.table.CountRows()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddTree(t *testing.T) {
	syncer, fs, dir := newTestSyncer(t)
	writeNote(t, dir, "folder/one.md", "one")
	writeNote(t, dir, "folder/two.md", "two")

	tree, err := notes.BuildTree(dir, filepath.Join(dir, "folder"), notes.DefaultListOptions())
	require.NoError(t, err)

	results, err := syncer.AddTree(context.Background(), tree, nil)
	require.NoError(t, err)
	assert.Empty(t, FailedChunks(results))
	assert.Len(t, fs.rows, 2)
}

func TestRemoveTree(t *testing.T) {
	syncer, _, dir := newTestSyncer(t)
	writeNote(t, dir, "folder/one.md", "one")
	writeNote(t, dir, "folder/two.md", "two")
	writeNote(t, dir, "outside.md", "stays")

	_, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)

	tree, err := notes.BuildTree(dir, filepath.Join(dir, "folder"), notes.DefaultListOptions())
	require.NoError(t, err)

	require.NoError(t, syncer.RemoveTree(context.Background(), tree))

	count, err := syncer.table.CountRows()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := syncer.Reconciler().IsFileInDB("outside.md")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestUpdateNoteReplacesRow(t *testing.T) {
	syncer, fs, dir := newTestSyncer(t)
	writeNote(t, dir, "note.md", "first draft")

	_, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)

	oldRow := fs.rows[0]
	time.Sleep(5 * time.Millisecond)

	writeNote(t, dir, "note.md", "second draft")
	require.NoError(t, syncer.UpdateNote(context.Background(), "note.md"))

	// Exactly one live row, carrying the new content and a later timestamp.
	require.Len(t, fs.rows, 1)
	newRow := fs.rows[0]
	assert.Equal(t, "second draft", newRow.Content)
	assert.NotEqual(t, oldRow.Hash, newRow.Hash)

	oldTime, err := time.Parse(time.RFC3339Nano, oldRow.TimeAdded)
	require.NoError(t, err)
	newTime, err := time.Parse(time.RFC3339Nano, newRow.TimeAdded)
	require.NoError(t, err)
	assert.True(t, newTime.After(oldTime))
}

func TestUpdateNoteSkipsUnchangedContent(t *testing.T) {
	syncer, fs, dir := newTestSyncer(t)
	writeNote(t, dir, "note.md", "same content")

	_, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)
	addCallsBefore := fs.addCalls
	deleteCallsBefore := fs.deleteCalls

	require.NoError(t, syncer.UpdateNote(context.Background(), "note.md"))

	assert.Equal(t, addCallsBefore, fs.addCalls)
	assert.Equal(t, deleteCallsBefore, fs.deleteCalls)
}

func TestUpdateNoteInsertsWhenAbsent(t *testing.T) {
	syncer, fs, dir := newTestSyncer(t)
	writeNote(t, dir, "fresh.md", "brand new")

	require.NoError(t, syncer.UpdateNote(context.Background(), "fresh.md"))

	require.Len(t, fs.rows, 1)
	assert.Equal(t, "fresh.md", fs.rows[0].NotePath)
	assert.Equal(t, "brand new", fs.rows[0].Content)
}

func TestRemoveNote(t *testing.T) {
	syncer, fs, dir := newTestSyncer(t)
	writeNote(t, dir, "a.md", "alpha")
	writeNote(t, dir, "b.md", "beta")

	_, err := syncer.Repopulate(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, syncer.RemoveNote(context.Background(), "a.md"))

	require.Len(t, fs.rows, 1)
	assert.Equal(t, "b.md", fs.rows[0].NotePath)
}

func TestRemoveNoteAbsentPathIsNoop(t *testing.T) {
	syncer, _, _ := newTestSyncer(t)
	assert.NoError(t, syncer.RemoveNote(context.Background(), "never-existed.md"))
}
