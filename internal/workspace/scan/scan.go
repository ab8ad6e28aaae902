package scan

import (
	"iter"

	"github.com/dshills/scriptspace/internal/log"
	"github.com/dshills/scriptspace/internal/vfs"
)

// DefaultMaxDepth bounds enumeration depth when the caller does not choose
// one. Deep enough for any sane project layout, shallow enough that a
// symlink cycle with symlink-following enabled still terminates.
const DefaultMaxDepth = 64

// Source file pattern sets.
//
// SourcePatterns is the full set of script file extensions, including the
// legacy .ps1xml type-and-format files. SourcePatternsLegacy mirrors hosts
// whose narrower wildcard matching never discovers .ps1xml files; use it
// only when emulating such a host, and the superset otherwise.
var (
	SourcePatterns = []string{
		"**/*.ps1",
		"**/*.psm1",
		"**/*.psd1",
		"**/*.ps1xml",
	}

	SourcePatternsLegacy = []string{
		"**/*.ps1",
		"**/*.psm1",
		"**/*.psd1",
	}
)

// Options configures an enumeration walk.
type Options struct {
	// MaxDepth is how many directory levels below the root are descended.
	// 1 visits only the root's immediate files. Zero or negative applies
	// DefaultMaxDepth. Items beyond the bound are not visited at all.
	MaxDepth int

	// IgnoreSymlinks refuses to descend into symbolic-link directories,
	// even when an include pattern matches beneath them.
	IgnoreSymlinks bool

	// Logger receives per-element soft failures. Nil discards them.
	Logger *log.Logger
}

// Files lazily enumerates the files under root that pass the rule set.
//
// The sequence is finite and non-restartable; abandoning it (breaking out of
// the range loop) is the way to cancel early. A nonexistent root yields an
// empty sequence rather than an error. Unreadable directories are logged and
// skipped. Yielded paths are absolute and use the platform's native
// separator.
func Files(fsys vfs.VFS, root string, rules RuleSet, opts Options) iter.Seq[string] {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	return func(yield func(string) bool) {
		if !fsys.IsDir(root) {
			return
		}

		var walk func(dir string, depth int) bool
		walk = func(dir string, depth int) bool {
			entries, err := fsys.ReadDir(dir)
			if err != nil {
				logger.Debug("enumerate: skipping %s: %v", dir, err)
				return true
			}

			for _, entry := range entries {
				isDir := entry.Dir
				if entry.IsSymlink() {
					linkedDir := fsys.IsDir(entry.Path)
					if linkedDir && opts.IgnoreSymlinks {
						continue
					}
					isDir = linkedDir
				}

				if isDir {
					if depth+1 > maxDepth {
						continue
					}
					if !walk(entry.Path, depth+1) {
						return false
					}
					continue
				}

				rel, err := fsys.Rel(root, entry.Path)
				if err != nil {
					logger.Debug("enumerate: skipping %s: %v", entry.Path, err)
					continue
				}
				if rules.Match(rel) {
					if !yield(entry.Path) {
						return false
					}
				}
			}
			return true
		}

		walk(root, 1)
	}
}
