package notes

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Ignorer defines the interface for pattern matching.
type Ignorer interface {
	MatchesPath(path string) bool
}

// combinedIgnorer wraps the root .gitignore and the configured patterns.
type combinedIgnorer struct {
	file     *gitignore.GitIgnore
	patterns *gitignore.GitIgnore
}

// MatchesPath returns true if the path matches any ignore pattern.
func (c *combinedIgnorer) MatchesPath(path string) bool {
	return c.file.MatchesPath(path) || c.patterns.MatchesPath(path)
}

// Lister lists note files under a root directory.
type Lister struct {
	opts    ListOptions
	ignorer Ignorer
	stats   ListStats
	extSet  map[string]bool
}

// NewLister creates a new note lister.
func NewLister(opts ListOptions) (*Lister, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	opts.Root = root

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", root)
	}

	l := &Lister{
		opts: opts,
	}

	// Build extension set for fast lookup
	if len(opts.Extensions) > 0 {
		l.extSet = make(map[string]bool)
		for _, ext := range opts.Extensions {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			l.extSet[strings.ToLower(ext)] = true
		}
	}

	if err := l.initIgnorer(); err != nil {
		return nil, err
	}

	return l, nil
}

// initIgnorer initializes the gitignore matcher.
func (l *Lister) initIgnorer() error {
	patterns := append([]string{}, l.opts.IgnorePatterns...)
	patterns = append(patterns, defaultIgnorePatterns...)

	if l.opts.UseGitignore {
		gitignorePath := filepath.Join(l.opts.Root, ".gitignore")
		if _, err := os.Stat(gitignorePath); err == nil {
			gi, err := gitignore.CompileIgnoreFile(gitignorePath)
			if err != nil {
				log.Warn("Failed to parse .gitignore", "path", gitignorePath, "error", err)
			} else {
				combined := gitignore.CompileIgnoreLines(patterns...)
				l.ignorer = &combinedIgnorer{
					file:     gi,
					patterns: combined,
				}
				return nil
			}
		}
	}

	l.ignorer = gitignore.CompileIgnoreLines(patterns...)
	return nil
}

// List walks the root directory and returns all matching note files.
func (l *Lister) List() ([]FileInfo, error) {
	l.stats = ListStats{} // Reset stats

	var files []FileInfo
	err := filepath.WalkDir(l.opts.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Debug("Error accessing path", "path", path, "error", err)
			return nil // Skip errors, continue walking
		}

		relPath, err := filepath.Rel(l.opts.Root, path)
		if err != nil {
			relPath = path
		}

		if d.IsDir() {
			if l.shouldSkipDir(d.Name(), relPath) {
				l.stats.DirsSkipped++
				return filepath.SkipDir
			}
			return nil
		}

		if l.opts.MaxFileCount > 0 && l.stats.FilesFound >= l.opts.MaxFileCount {
			return filepath.SkipAll
		}

		if l.shouldSkipFile(d.Name(), relPath) {
			l.stats.FilesSkipped++
			return nil
		}

		if l.extSet != nil {
			ext := strings.ToLower(filepath.Ext(path))
			if !l.extSet[ext] {
				l.stats.FilesSkipped++
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			log.Debug("Failed to get file info", "path", path, "error", err)
			return nil
		}

		if l.opts.MaxFileSize > 0 && info.Size() > l.opts.MaxFileSize {
			l.stats.FilesSkipped++
			return nil
		}

		hash, err := hashFile(path)
		if err != nil {
			log.Debug("Failed to hash file", "path", path, "error", err)
			hash = ""
		}

		files = append(files, FileInfo{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Hash:    hash,
		})
		l.stats.FilesFound++

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return files, nil
}

// Stats returns the listing statistics.
func (l *Lister) Stats() ListStats {
	return l.stats
}

// shouldSkipDir checks if a directory should be skipped.
func (l *Lister) shouldSkipDir(name, relPath string) bool {
	if name == ".git" {
		return true
	}

	if !l.opts.IncludeHidden && strings.HasPrefix(name, ".") && relPath != "." {
		return true
	}

	if l.ignorer != nil && l.ignorer.MatchesPath(relPath+"/") {
		return true
	}

	return false
}

// shouldSkipFile checks if a file should be skipped.
func (l *Lister) shouldSkipFile(name, relPath string) bool {
	if !l.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}

	if l.ignorer != nil && l.ignorer.MatchesPath(relPath) {
		return true
	}

	return false
}

// hashFile computes the xxhash of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// HashContent computes the xxhash of content bytes.
func HashContent(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

// Default patterns to ignore.
var defaultIgnorePatterns = []string{
	// Version control
	".git/",
	".svn/",
	".hg/",

	// Editor artifacts
	".idea/",
	".vscode/",
	"*.swp",
	"*.swo",
	"*~",

	// OS files
	".DS_Store",
	"Thumbs.db",

	// Common note-vault internals
	".obsidian/",
	".trash/",
	".logseq/",

	// Database files
	"*.db",
	"*.sqlite",
	"*.sqlite3",
}
