// Package notes provides file system operations over a notes directory.
package notes

import "time"

// FileInfo represents metadata about a note file.
type FileInfo struct {
	Path    string    // Absolute path to the file
	RelPath string    // Path relative to the root
	Size    int64     // File size in bytes
	ModTime time.Time // Last modification time
	Hash    string    // xxhash of file contents
}

// Tree is a hierarchical grouping of note files, mirroring a directory
// subtree. Used by the point-update operations to add or remove a whole
// folder of notes.
type Tree struct {
	Dir      string
	Files    []FileInfo
	Children []*Tree
}

// Flatten returns all files in the tree as a flat list, depth-first.
func (t *Tree) Flatten() []FileInfo {
	if t == nil {
		return nil
	}
	files := make([]FileInfo, 0, len(t.Files))
	files = append(files, t.Files...)
	for _, child := range t.Children {
		files = append(files, child.Flatten()...)
	}
	return files
}

// ListOptions configures the note lister.
type ListOptions struct {
	// Root is the directory to list notes under.
	Root string

	// Extensions limits to specific file extensions (e.g., ".md", ".txt").
	// Empty means all files.
	Extensions []string

	// MaxFileSize is the maximum file size to include (in bytes).
	MaxFileSize int64

	// MaxFileCount is the maximum number of files to list.
	MaxFileCount int

	// IgnorePatterns are additional patterns to ignore (gitignore syntax).
	IgnorePatterns []string

	// IncludeHidden includes hidden files and directories.
	IncludeHidden bool

	// UseGitignore respects a .gitignore file at the root.
	UseGitignore bool
}

// DefaultListOptions returns sensible defaults for listing.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Extensions:   []string{".md", ".txt"},
		MaxFileSize:  1024 * 1024, // 1MB
		MaxFileCount: 10000,
		UseGitignore: true,
	}
}

// ListStats contains statistics from a directory listing.
type ListStats struct {
	FilesFound   int // Total files found
	FilesSkipped int // Files skipped due to size/pattern/etc
	DirsSkipped  int // Directories skipped
}
