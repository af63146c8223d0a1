package notes

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// ReadContent reads a note file into a string. A read failure degrades to
// empty content rather than propagating the error: an unreadable note is
// still indexed by path, and a later sync pass picks up the content once the
// file is readable again.
func ReadContent(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Failed to read note, indexing with empty content", "path", path, "error", err)
		return ""
	}
	return string(content)
}

// BuildTree lists the files under dir, a subdirectory of root, into a Tree.
// RelPath stays relative to root, not dir, so tree entries identify the same
// rows as a full listing would. The returned tree holds all files directly;
// grouping by subdirectory is preserved in RelPath rather than nested nodes.
func BuildTree(root, dir string, opts ListOptions) (*Tree, error) {
	opts.Root = dir
	lister, err := NewLister(opts)
	if err != nil {
		return nil, err
	}
	files, err := lister.List()
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return nil, err
	}
	if rel != "." {
		for i := range files {
			files[i].RelPath = filepath.Join(rel, files[i].RelPath)
		}
	}

	return &Tree{Dir: dir, Files: files}, nil
}
