package resource

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/javagraph/javagraph/internal/engerr"
	"github.com/javagraph/javagraph/internal/ignore"
)

// FilesystemResolver walks a project root on disk, applying the ignore
// filter and the hidden-directory/symlink skip rules documented for the
// resource substrate.
type FilesystemResolver struct {
	root    string
	matcher *ignore.Matcher
}

// NewFilesystemResolver builds a resolver rooted at root, gated by matcher.
func NewFilesystemResolver(root string, matcher *ignore.Matcher) *FilesystemResolver {
	return &FilesystemResolver{root: root, matcher: matcher}
}

// Walk implements Resolver.Walk. Hidden directories are always skipped
// except for the project-local .analysis/binaries exception; symbolic
// links are skipped entirely; remaining paths are filtered by the ignore
// matcher applied to both the relative and absolute forms.
func (r *FilesystemResolver) Walk(visit func(Entry) error) error {
	var entries []Entry

	walkErr := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal (IoError is per-file, non-fatal)
		}

		if path == r.root {
			return nil
		}

		rel, relErr := filepath.Rel(r.root, path)
		if relErr != nil {
			return nil
		}

		relSlash := filepath.ToSlash(rel)
		absSlash := relSlash
		if abs, absErr := filepath.Abs(path); absErr == nil {
			absSlash = strings.TrimPrefix(filepath.ToSlash(abs), "/")
		}

		hidden := false
		for _, seg := range strings.Split(relSlash, "/") {
			hidden = hidden || ignore.IsHiddenSegment(seg)
		}

		info, infoErr := d.Info()
		if infoErr == nil && info.Mode()&os.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if hidden && !ignore.IsBinariesException(relSlash) && relSlash != ".analysis" {
				return filepath.SkipDir
			}

			if r.matcher.Match(relSlash, true) || r.matcher.Match(absSlash, true) {
				return filepath.SkipDir
			}

			return nil
		}

		if hidden && !ignore.IsBinariesException(relSlash) {
			return nil
		}

		if r.matcher.Match(relSlash, false) || r.matcher.Match(absSlash, false) {
			return nil
		}

		entries = append(entries, Entry{
			Locator:      Locator{Path: path},
			RelativePath: relSlash,
			IsDir:        false,
		})

		return nil
	})
	if walkErr != nil {
		return engerr.NewIoError(r.root, walkErr)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelativePath < entries[j].RelativePath })

	for _, e := range entries {
		if visitErr := visit(e); visitErr != nil {
			return visitErr
		}
	}

	return nil
}

// Open implements Resolver.Open for plain filesystem locators.
func (r *FilesystemResolver) Open(loc Locator) (io.ReadCloser, error) {
	f, err := os.Open(loc.Path)
	if err != nil {
		return nil, engerr.NewIoError(loc.Path, err)
	}

	return f, nil
}
