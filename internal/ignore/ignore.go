// Package ignore implements the gitignore-style pattern matcher that gates
// file discovery: patterns use "/" for separators and "**" for recursive
// globs, a trailing "/" denotes a directory-only match, and "#" starts a
// comment line. Matching errors default to "do not ignore" (fail-open),
// per the resource substrate's documented failure semantics.
package ignore

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// binariesException is the one hidden-directory path that Phase 1 discovers
// even though it lives under a dot-prefixed directory: exploded archives
// live here so the binary collector can reach them.
const binariesException = ".analysis/binaries/"

// Pattern is one parsed ignore rule.
type Pattern struct {
	raw        string
	negate     bool
	dirOnly    bool
	anchored   bool // pattern contains a non-trailing "/", so it is rooted at the project root
	glob       string
}

// Matcher holds an ordered set of Patterns, applied last-match-wins as
// gitignore itself does (a later negating pattern can re-include a path
// excluded by an earlier one).
type Matcher struct {
	patterns []Pattern
}

// New parses raw pattern lines (as supplied in Options.IgnorePatterns) into
// a Matcher. Blank lines and lines starting with "#" are skipped.
func New(lines []string) *Matcher {
	m := &Matcher{}

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		m.patterns = append(m.patterns, parsePattern(line))
	}

	return m
}

func parsePattern(line string) Pattern {
	p := Pattern{raw: line}

	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	trimmed := strings.TrimPrefix(line, "/")
	if trimmed != line || strings.Contains(trimmed, "/") {
		p.anchored = true
	}

	line = strings.TrimPrefix(line, "/")
	if !strings.Contains(line, "/") {
		// An unanchored single-segment pattern matches at any depth.
		line = "**/" + line
	}

	p.glob = line

	return p
}

// IsHiddenSegment reports whether a path segment (directory or file name)
// is "hidden" in the project-root sense (dot-prefixed), which Phase 1 skips
// unconditionally except for the .analysis/binaries exception.
func IsHiddenSegment(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// IsBinariesException reports whether relPath (project-relative, "/"-
// separated) falls under the one hidden directory that discovery still
// walks into.
func IsBinariesException(relPath string) bool {
	cleaned := strings.TrimPrefix(relPath, "/")
	return strings.HasPrefix(cleaned, binariesException) || cleaned+"/" == binariesException
}

// Match reports whether relPath (project-relative, "/"-separated, no
// leading "/") should be ignored. isDir tells the matcher whether relPath
// names a directory, for dirOnly patterns. A pattern whose match returns an
// error is skipped (it never causes a path to be ignored); the remaining
// patterns still decide the result.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	ignored := false

	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}

		matched, err := doublestar.Match(p.glob, relPath)
		if err != nil {
			continue // fail open on a malformed pattern
		}

		if matched {
			ignored = !p.negate
		}
	}

	return ignored
}
