package index

import (
	"fmt"

	"github.com/notevec/notevec/internal/notes"
	"github.com/notevec/notevec/internal/store"
)

// Reconciler computes the set-difference between the filesystem's current
// file list and the table's live rows.
type Reconciler struct {
	table *Table
}

// NewReconciler creates a reconciler over a table.
func NewReconciler(table *Table) *Reconciler {
	return &Reconciler{table: table}
}

// MaterializeRows returns every live row of the table. The materialization
// is split into two filter queries (non-empty content and empty content)
// unioned together, each bounded by the current row count. The partition
// sums are checked against CountRows so incomplete coverage surfaces as an
// error instead of silently shrinking the present set.
func (r *Reconciler) MaterializeRows() ([]store.NoteRow, error) {
	count, err := r.table.CountRows()
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	nonEmpty, err := r.table.FilterRaw(store.ContentEmpty(false), count)
	if err != nil {
		return nil, fmt.Errorf("failed to query non-empty rows: %w", err)
	}
	empty, err := r.table.FilterRaw(store.ContentEmpty(true), count)
	if err != nil {
		return nil, fmt.Errorf("failed to query empty rows: %w", err)
	}

	if len(nonEmpty)+len(empty) != count {
		return nil, fmt.Errorf("incomplete table materialization: %d + %d rows covered, %d counted",
			len(nonEmpty), len(empty), count)
	}

	return append(nonEmpty, empty...), nil
}

// MissingFiles returns the on-disk files not yet represented in the table.
func (r *Reconciler) MissingFiles(files []notes.FileInfo) ([]notes.FileInfo, error) {
	rows, err := r.MaterializeRows()
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		present[row.NotePath] = struct{}{}
	}

	var missing []notes.FileInfo
	for _, fi := range files {
		if _, ok := present[fi.RelPath]; !ok {
			missing = append(missing, fi)
		}
	}
	return missing, nil
}

// StalePaths returns the note paths present in the table but no longer on
// disk, deduplicated across sub-note rows.
func (r *Reconciler) StalePaths(files []notes.FileInfo) ([]string, error) {
	rows, err := r.MaterializeRows()
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]struct{}, len(files))
	for _, fi := range files {
		onDisk[fi.RelPath] = struct{}{}
	}

	seen := make(map[string]struct{})
	var stale []string
	for _, row := range rows {
		if _, ok := onDisk[row.NotePath]; ok {
			continue
		}
		if _, dup := seen[row.NotePath]; dup {
			continue
		}
		seen[row.NotePath] = struct{}{}
		stale = append(stale, row.NotePath)
	}
	return stale, nil
}

// IsFileInDB reports whether any live row exists for the given note path.
// Short-circuits without a query when the table is empty; otherwise uses the
// same two-way filter pattern restricted to one path.
func (r *Reconciler) IsFileInDB(notePath string) (bool, error) {
	count, err := r.table.CountRows()
	if err != nil {
		return false, fmt.Errorf("failed to count rows: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	nonEmpty, err := r.table.FilterRaw(store.And(store.PathEquals(notePath), store.ContentEmpty(false)), 1)
	if err != nil {
		return false, fmt.Errorf("failed to query path: %w", err)
	}
	if len(nonEmpty) > 0 {
		return true, nil
	}

	empty, err := r.table.FilterRaw(store.And(store.PathEquals(notePath), store.ContentEmpty(true)), 1)
	if err != nil {
		return false, fmt.Errorf("failed to query path: %w", err)
	}
	return len(empty) > 0, nil
}
