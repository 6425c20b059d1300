package resolved

import "path/filepath"

// pathMatch wraps filepath.Match; split out so FileTagger's matching
// strategy can be swapped independently of the wildcard expander's own,
// richer matching in package pathtools.
func pathMatch(pattern, name string) (bool, error) {
	return filepath.Match(pattern, name)
}
