package pathtools

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"rulegraph/resolved"
)

// Expand fills sw.Files (and sw.DirTimeStamps) from sw.Prefix/Patterns/
// ExcludePatterns, implementing §4.3: files = expand(patterns) \
// expand(exclude_patterns), each pattern independently matched against fs
// starting from an absolute root, skipping anything under buildDir.
func Expand(fs FileSystem, sw *resolved.SourceWildCards, buildDir string) error {
	timestamps := map[string]time.Time{}

	included, err := expandAll(fs, sw.Prefix, sw.Patterns, buildDir, timestamps)
	if err != nil {
		return err
	}
	excluded, err := expandAll(fs, sw.Prefix, sw.ExcludePatterns, buildDir, timestamps)
	if err != nil {
		return err
	}

	excludeSet := make(map[string]bool, len(excluded))
	for _, f := range excluded {
		excludeSet[f] = true
	}

	files := make([]string, 0, len(included))
	seen := make(map[string]bool, len(included))
	for _, f := range included {
		if excludeSet[f] || seen[f] {
			continue
		}
		seen[f] = true
		files = append(files, f)
	}

	sw.Files = files
	if sw.DirTimeStamps == nil {
		sw.DirTimeStamps = map[string]time.Time{}
	}
	for k, v := range timestamps {
		sw.DirTimeStamps[k] = v
	}
	return nil
}

func expandAll(fs FileSystem, prefix string, patterns []string, buildDir string, timestamps map[string]time.Time) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		matches, err := expandOne(fs, prefix, pattern, buildDir, timestamps)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

func expandOne(fs FileSystem, prefix, pattern string, buildDir string, timestamps map[string]time.Time) ([]string, error) {
	full := pattern
	if !filepath.IsAbs(full) {
		full = joinPath(prefix, full)
	}
	full = normalizeSlashes(full)
	if strings.HasPrefix(full, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			full = joinPath(home, full[2:])
		}
	}
	segments := splitSegments(full)

	var results []string
	if err := matchSegments(fs, "/", segments, buildDir, timestamps, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func joinPath(base, rest string) string {
	base = strings.TrimRight(base, "/")
	rest = strings.TrimLeft(rest, "/")
	if base == "" {
		return "/" + rest
	}
	return base + "/" + rest
}

// cleanPath is clean_path() from §4.3: applied to every terminal match
// before it is added to the result.
func cleanPath(p string) string {
	return filepath.Clean(p)
}

func splitSegments(p string) []string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func containsWildcard(seg string) bool {
	return strings.ContainsAny(seg, "*?[")
}

// popSegment implements "Pop one segment. Consume any leading ** markers:
// each sets recursive = true; if ** was the last segment, replace by *."
func popSegment(segments []string) (seg string, recursive bool, rest []string) {
	for len(segments) > 0 && segments[0] == "**" {
		recursive = true
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "*", recursive, nil
	}
	return segments[0], recursive, segments[1:]
}

func isUnderOrEqual(path, dir string) bool {
	if dir == "" {
		return false
	}
	path = strings.TrimRight(path, "/")
	dir = strings.TrimRight(dir, "/")
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+"/")
}

// matchSegments implements the recursive matching algorithm of §4.3 steps
// 1-7: refuse to descend into the build directory, record (dir, mtime) for
// incremental rescans, pop and resolve one segment (handling "**"), iterate
// the directory applying the hidden/dotdot/build-dir/real-directory
// exclusion rules, and either recurse (intermediate segment) or record a
// clean_path'd match (terminal segment).
func matchSegments(fs FileSystem, dirPath string, segments []string, buildDir string, timestamps map[string]time.Time, results *[]string) error {
	if isUnderOrEqual(dirPath, buildDir) {
		return nil
	}
	if mt, err := fs.DirMtime(dirPath); err == nil {
		timestamps[dirPath] = mt
	} else {
		return nil
	}
	if len(segments) == 0 {
		return nil
	}

	seg, recursive, rest := popSegment(segments)
	isDirSeg := len(rest) > 0
	isPattern := containsWildcard(seg)
	includeHidden := !isPattern && isDirSeg
	includeDotDot := seg == ".." || seg == "."

	names, err := fs.ReadDirNames(dirPath)
	if err != nil {
		return nil
	}

	for _, name := range names {
		if name == "." || name == ".." {
			if !includeDotDot {
				continue
			}
		} else if strings.HasPrefix(name, ".") && !includeHidden {
			continue
		}

		full := joinPath(dirPath, name)
		if isUnderOrEqual(full, buildDir) {
			continue
		}

		isDirEntry, isSymlink := fs.EntryKind(full)

		if !isDirSeg && isDirEntry && !isSymlink && !recursive {
			// Skip real directories when matching files; symlinks to
			// directories remain candidates. A recursive ("**") search
			// still needs to walk through real directories to reach
			// deeper files, so it defers the skip to the match check
			// below.
			continue
		}

		matched, matchErr := filepath.Match(seg, name)
		if matchErr != nil {
			continue
		}

		if !matched {
			if recursive && isDirEntry && name != "." && name != ".." {
				reSegments := append([]string{"**", seg}, rest...)
				if err := matchSegments(fs, full, reSegments, buildDir, timestamps, results); err != nil {
					return err
				}
			}
			continue
		}

		if isDirSeg {
			if isDirEntry {
				if err := matchSegments(fs, full, rest, buildDir, timestamps, results); err != nil {
					return err
				}
			}
			continue
		}

		if isDirEntry && !isSymlink {
			continue
		}
		*results = append(*results, cleanPath(full))
	}
	return nil
}
