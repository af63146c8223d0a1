package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/notevec/notevec/internal/notes"
	"github.com/notevec/notevec/internal/store"
)

// Syncer brings a table into agreement with its root directory's current
// file set. All operations run on a single logical worker: store calls are
// issued sequentially, never in parallel.
type Syncer struct {
	table      *Table
	reconciler *Reconciler
	listOpts   notes.ListOptions
}

// SyncReport summarizes one synchronization pass.
type SyncReport struct {
	FilesOnDisk  int           // Files matching the configured extensions
	Missing      int           // Files that had no row before this pass
	Written      int           // Records committed in successful chunks
	FailedChunks []ChunkResult // Chunks that did not commit
	Pruned       int64         // Rows removed for deleted files
	RowCount     int           // Final table row count
	Duration     time.Duration
}

// NewSyncer creates a syncer over an initialized table. The list options'
// root is overridden with the table's root directory.
func NewSyncer(table *Table, listOpts notes.ListOptions) *Syncer {
	listOpts.Root = table.Root()
	return &Syncer{
		table:      table,
		reconciler: NewReconciler(table),
		listOpts:   listOpts,
	}
}

// Reconciler returns the syncer's reconciler.
func (s *Syncer) Reconciler() *Reconciler {
	return s.reconciler
}

// Root returns the root directory the syncer operates on.
func (s *Syncer) Root() string {
	return s.table.Root()
}

// Repopulate adds every on-disk file that is missing from the table: list
// files, diff against live rows, convert the missing set and batch-write it
// with progress forwarding. A terminal 1.0 progress signal is always emitted,
// including when nothing was missing. Idempotent: a second run over an
// unchanged directory performs zero writes.
func (s *Syncer) Repopulate(ctx context.Context, onProgress ProgressFunc) (*SyncReport, error) {
	start := time.Now()

	lister, err := notes.NewLister(s.listOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create lister: %w", err)
	}
	files, err := lister.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	missing, err := s.reconciler.MissingFiles(files)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile: %w", err)
	}

	report := &SyncReport{
		FilesOnDisk: len(files),
		Missing:     len(missing),
	}

	if len(missing) > 0 {
		log.Info("Indexing missing notes", "count", len(missing))

		records := make([]Record, len(missing))
		for i, fi := range missing {
			records[i] = RecordFromFile(fi)
		}

		results, err := s.table.Add(ctx, records, onProgress)
		if err != nil {
			return nil, err
		}

		report.FailedChunks = FailedChunks(results)
		report.Written = len(records)
		for _, failed := range report.FailedChunks {
			report.Written -= failed.End - failed.Start
		}
	}

	if onProgress != nil {
		onProgress(1.0)
	}

	if count, err := s.table.CountRows(); err == nil {
		report.RowCount = count
		log.Debug("Repopulate complete",
			"files", report.FilesOnDisk, "written", report.Written, "rows", count)
	}

	report.Duration = time.Since(start)
	return report, nil
}

// PruneMissing removes rows whose file no longer exists on disk. Returns the
// number of rows removed.
func (s *Syncer) PruneMissing(ctx context.Context) (int64, error) {
	lister, err := notes.NewLister(s.listOpts)
	if err != nil {
		return 0, fmt.Errorf("failed to create lister: %w", err)
	}
	files, err := lister.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list notes: %w", err)
	}

	stale, err := s.reconciler.StalePaths(files)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile: %w", err)
	}

	var pruned int64
	for _, path := range stale {
		deleted, err := s.table.Delete(store.PathEquals(path))
		if err != nil {
			log.Warn("Failed to prune stale note", "path", path, "error", err)
			continue
		}
		pruned += deleted
	}

	if pruned > 0 {
		log.Info("Pruned stale notes", "paths", len(stale), "rows", pruned)
	}
	return pruned, nil
}

// Sync runs a full pass: repopulate missing files, then prune stale rows.
func (s *Syncer) Sync(ctx context.Context, onProgress ProgressFunc) (*SyncReport, error) {
	report, err := s.Repopulate(ctx, onProgress)
	if err != nil {
		return nil, err
	}

	pruned, err := s.PruneMissing(ctx)
	if err != nil {
		return report, err
	}
	report.Pruned = pruned

	if count, err := s.table.CountRows(); err == nil {
		report.RowCount = count
	}
	return report, nil
}

// AddTree flattens a file tree, converts every file and batch-writes the
// records. No reconciliation: the caller asserts these files are new.
func (s *Syncer) AddTree(ctx context.Context, tree *notes.Tree, onProgress ProgressFunc) ([]ChunkResult, error) {
	files := tree.Flatten()
	if len(files) == 0 {
		return nil, nil
	}

	records := make([]Record, len(files))
	for i, fi := range files {
		records[i] = RecordFromFile(fi)
	}

	return s.table.Add(ctx, records, onProgress)
}

// RemoveTree deletes every file in the tree by path equality, one store call
// per file. Deletions are independent and not rolled back: a failure leaves
// a partially-deleted tree, repaired by the next sync pass.
func (s *Syncer) RemoveTree(ctx context.Context, tree *notes.Tree) error {
	var errs []error
	for _, fi := range tree.Flatten() {
		if _, err := s.table.Delete(store.PathEquals(fi.RelPath)); err != nil {
			log.Warn("Failed to remove note", "path", fi.RelPath, "error", err)
			errs = append(errs, fmt.Errorf("remove %s: %w", fi.RelPath, err))
		}
	}
	return errors.Join(errs...)
}

// UpdateNote re-indexes a single note: all rows for the path are deleted,
// then exactly one record with fresh content and a new timestamp is
// inserted. Not transactional; a crash between delete and insert leaves the
// note absent until the next sync pass. Unchanged content (same hash) is
// skipped without a write.
func (s *Syncer) UpdateNote(ctx context.Context, notePath string) error {
	absPath := filepath.Join(s.table.Root(), notePath)

	record := RecordFromFile(notes.FileInfo{
		Path:    absPath,
		RelPath: notePath,
	})

	existing, err := s.table.FilterRaw(store.PathEquals(notePath), 1)
	if err != nil {
		return fmt.Errorf("failed to check existing rows: %w", err)
	}
	if len(existing) == 1 && existing[0].Hash == record.Hash {
		log.Debug("Note unchanged, skipping update", "path", notePath)
		return nil
	}

	if _, err := s.table.Delete(store.PathEquals(notePath)); err != nil {
		return fmt.Errorf("failed to delete old rows: %w", err)
	}

	results, err := s.table.Add(ctx, []Record{record}, nil)
	if err != nil {
		return err
	}
	if failed := FailedChunks(results); len(failed) > 0 {
		return fmt.Errorf("failed to insert updated note: %w", failed[0].Err)
	}

	log.Debug("Updated note", "path", notePath)
	return nil
}

// RemoveNote deletes all rows for a single note path.
func (s *Syncer) RemoveNote(ctx context.Context, notePath string) error {
	_, err := s.table.Delete(store.PathEquals(notePath))
	return err
}
