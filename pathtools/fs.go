// Package pathtools implements group wildcard expansion, §4.3 of the
// specification. It replaces the teacher's own pathtools/glob.go (a
// flat filepath.Glob wrapper with no recursive "**" support) with the
// engine's actual matching algorithm, while keeping the teacher's
// FileSystem abstraction and its real/mock split (OsFS backed by the local
// disk, MockFS backed by an in-memory file list) so wildcard-expansion
// tests never touch the real filesystem.
package pathtools

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileSystem abstracts the directory operations the wildcard expander
// needs, mirroring the shape of the teacher's own FileSystem interface
// (Open/Exists/IsDir/Lstat) but trimmed to what §4.3's algorithm actually
// calls: reading a directory's entry names, checking whether an entry is a
// directory or a symlink, and reading a directory's modification time for
// the incremental-rescan cache.
type FileSystem interface {
	// ReadDirNames returns the names of dir's direct children, or an error
	// if dir cannot be read (a missing or non-directory dirPath is treated
	// as "no matches", not a fatal error, by the caller).
	ReadDirNames(dir string) ([]string, error)
	// EntryKind reports whether path is a directory and whether it is a
	// symlink, used to implement "skip real directories when matching
	// files (but not symlinks to directories — those are candidates)".
	EntryKind(path string) (isDir bool, isSymlink bool)
	// DirMtime returns dir's modification time, recorded into
	// SourceWildCards.DirTimeStamps for incremental rescans.
	DirMtime(dir string) (time.Time, error)
}

// OsFS implements FileSystem using the local disk.
type OsFS struct{}

var _ FileSystem = OsFS{}

func (OsFS) ReadDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries)+2)
	names = append(names, ".", "..")
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (OsFS) EntryKind(path string) (bool, bool) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, false
	}
	isSymlink := info.Mode()&os.ModeSymlink != 0
	isDir := info.IsDir()
	if isSymlink {
		if target, err := os.Stat(path); err == nil {
			isDir = target.IsDir()
		}
	}
	return isDir, isSymlink
}

func (OsFS) DirMtime(dir string) (time.Time, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// MockFS is an in-memory FileSystem for tests, built from a flat list of
// file paths (directories are inferred from path prefixes), mirroring the
// teacher's own MockFs test double.
type MockFS struct {
	files map[string]bool // path -> isDir
	mtime time.Time
}

var _ FileSystem = (*MockFS)(nil)

// NewMockFS builds a MockFS from a set of file paths; every ancestor
// directory is synthesized automatically.
func NewMockFS(files []string) *MockFS {
	m := &MockFS{files: map[string]bool{}, mtime: time.Unix(1000, 0)}
	for _, f := range files {
		f = filepath.Clean(f)
		m.files[f] = false
		dir := filepath.Dir(f)
		for {
			if _, ok := m.files[dir]; ok {
				break
			}
			m.files[dir] = true
			if dir == "/" || dir == "." {
				break
			}
			dir = filepath.Dir(dir)
		}
	}
	m.files["/"] = true
	return m
}

func (m *MockFS) ReadDirNames(dir string) ([]string, error) {
	dir = filepath.Clean(dir)
	if isDir, ok := m.files[dir]; !ok || !isDir {
		return nil, os.ErrNotExist
	}
	names := map[string]bool{".": true, "..": true}
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	for f := range m.files {
		if f == dir {
			continue
		}
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rest := strings.TrimPrefix(f, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			rest = rest[:idx]
		}
		if rest != "" {
			names[rest] = true
		}
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockFS) EntryKind(path string) (bool, bool) {
	isDir, ok := m.files[filepath.Clean(path)]
	if !ok {
		return false, false
	}
	return isDir, false
}

func (m *MockFS) DirMtime(dir string) (time.Time, error) {
	if _, ok := m.files[filepath.Clean(dir)]; !ok {
		return time.Time{}, os.ErrNotExist
	}
	return m.mtime, nil
}
