package buildgraph

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// neutralizeDotDot substitutes every literal ".." path component with the
// literal string "dotdot" (§4.1.1, §8 "Dotdot neutralization"): no
// generated artifact may resolve outside the product's build directory.
func neutralizeDotDot(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s == ".." {
			segs[i] = "dotdot"
		}
	}
	return strings.Join(segs, "/")
}

// resolveOutputPath joins buildDir and rawPath, neutralizing ".." and
// canonicalizing the result (§4.1.1: "resolve output_path ... substitute
// every literal '..' ... then canonicalize"). The join is a plain string
// concatenation rather than filepath.Join: Join would silently resolve
// ".." against buildDir itself, which is exactly the escape the dotdot
// substitution step exists to forbid, so ".." must still be a literal path
// component when neutralizeDotDot runs.
func resolveOutputPath(buildDir, rawPath string) string {
	joined := rawPath
	if !filepath.IsAbs(joined) {
		joined = strings.TrimRight(buildDir, "/") + "/" + rawPath
	}
	joined = neutralizeDotDot(joined)
	return filepath.Clean(joined)
}

// dummyOutputPath synthesizes the fallback output path for a static rule
// with no template artifacts (§4.1 step d): "__dummyoutput__" followed by
// the first 16 hex characters of sha1(rule.String() ++ concat(input
// paths)).
func dummyOutputPath(ruleString string, inputPaths []string) string {
	h := sha1.New()
	h.Write([]byte(ruleString))
	for _, p := range inputPaths {
		h.Write([]byte(p))
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return "__dummyoutput__" + sum[:16]
}
