// Package index implements the synchronization engine between a notes
// directory and its embedding-backed vector table.
package index

import (
	"fmt"
	"time"

	"github.com/notevec/notevec/internal/notes"
	"github.com/notevec/notevec/internal/store"
)

// Record is the unit of indexing: one note file mapped to an embedding plus
// metadata. Records are immutable once written; an update is a delete of the
// old rows followed by an insert with a fresh timestamp.
type Record struct {
	// NotePath is the note's path relative to the index root. Together with
	// SubNoteIndex it uniquely identifies a live row.
	NotePath string `json:"note_path"`

	// Vector is the content embedding. Never set by callers on insert; the
	// table populates it through its bound embedding service.
	Vector []float32 `json:"vector,omitempty"`

	// Content is the note body. May be empty (unreadable files are indexed
	// by path with empty content).
	Content string `json:"content"`

	// SubNoteIndex is reserved for sub-document chunking, currently always 0.
	SubNoteIndex int `json:"sub_note_index"`

	// TimeAdded is stamped at conversion time and never mutated.
	TimeAdded time.Time `json:"time_added"`

	// Hash is the xxhash of Content, used to skip rewrites of unchanged notes.
	Hash string `json:"hash"`
}

// ShapeError reports a raw store row that does not form a well-formed Record.
type ShapeError struct {
	NotePath string
	Field    string
	Reason   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("malformed row for %q: field %s: %s", e.NotePath, e.Field, e.Reason)
}

// ParseRow validates a raw store row and converts it into a Record. A row is
// well-formed only when it carries all required fields: a non-empty path, a
// vector, a non-negative sub-note index and a parseable timestamp. Callers
// decide whether to log, drop or fail on a ShapeError; the table facade logs
// and drops.
func ParseRow(row store.NoteRow) (Record, error) {
	if row.NotePath == "" {
		return Record{}, &ShapeError{Field: "note_path", Reason: "empty"}
	}
	if row.SubNoteIndex < 0 {
		return Record{}, &ShapeError{NotePath: row.NotePath, Field: "sub_note_index", Reason: "negative"}
	}
	if len(row.Vector) == 0 {
		return Record{}, &ShapeError{NotePath: row.NotePath, Field: "vector", Reason: "missing"}
	}
	timeAdded, err := time.Parse(time.RFC3339Nano, row.TimeAdded)
	if err != nil {
		return Record{}, &ShapeError{NotePath: row.NotePath, Field: "time_added", Reason: err.Error()}
	}

	return Record{
		NotePath:     row.NotePath,
		Vector:       row.Vector,
		Content:      row.Content,
		SubNoteIndex: int(row.SubNoteIndex),
		TimeAdded:    timeAdded,
		Hash:         row.Hash,
	}, nil
}

// RecordFromFile converts a filesystem entry into a Record, reading the note
// body and stamping the insertion time. Read failures degrade to empty
// content rather than failing the conversion.
func RecordFromFile(fi notes.FileInfo) Record {
	content := notes.ReadContent(fi.Path)
	return Record{
		NotePath:     fi.RelPath,
		Content:      content,
		SubNoteIndex: 0,
		TimeAdded:    time.Now().UTC(),
		Hash:         notes.HashContent([]byte(content)),
	}
}
