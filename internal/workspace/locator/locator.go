// Package locator implements document identity for the workspace engine.
//
// A locator names a source of text. It is either a filesystem path (the
// "file" scheme, with or without URI clothing) or a virtual identifier for
// content that has no stable on-disk backing: unsaved buffers, notebook
// cells, ephemeral in-memory documents. The package owns the rules that
// collapse the many spellings of the same document into one comparable key,
// and the relative-path arithmetic used when a document references another
// file.
package locator

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// Schemes recognized by the registry.
const (
	SchemeFile         = "file"
	SchemeUntitled     = "untitled"
	SchemeInMemory     = "inmemory"
	SchemeNotebookCell = "vscode-notebook-cell"
)

// caseSensitivePaths reports whether the host platform treats paths as
// case-sensitive by convention. Linux is the only such platform here;
// Windows and macOS file systems are case-insensitive by default.
var caseSensitivePaths = runtime.GOOS == "linux"

// Locator is an immutable, parsed document identifier.
type Locator struct {
	// Scheme is the locator scheme ("file" for on-disk documents).
	// Empty for bare filesystem paths.
	Scheme string

	// Authority is the URI authority component (UNC host for file URIs).
	Authority string

	// Path is the path component: an OS path for on-disk locators, an
	// opaque identifier for virtual ones.
	Path string

	raw string
}

// FromPath creates a Locator for an on-disk path.
func FromPath(path string) Locator {
	return Locator{Scheme: SchemeFile, Path: filepath.Clean(path), raw: path}
}

// Parse parses any locator string. It never fails: strings that do not parse
// as URIs are treated as bare paths.
func Parse(s string) Locator {
	if !hasScheme(s) {
		return Locator{Scheme: SchemeFile, Path: filepath.Clean(s), raw: s}
	}

	u, err := url.Parse(s)
	if err != nil {
		// Not URI-shaped after all; keep the raw string as the path so
		// the locator still round-trips and normalizes.
		return Locator{Path: s, raw: s}
	}

	l := Locator{
		Scheme:    strings.ToLower(u.Scheme),
		Authority: u.Host,
		raw:       s,
	}
	if l.Scheme == SchemeFile {
		l.Path = uriPathToFilePath(u)
	} else {
		l.Path = u.Opaque
		if l.Path == "" {
			l.Path = u.Path
		}
	}
	return l
}

// String returns the original locator string.
func (l Locator) String() string {
	if l.raw != "" {
		return l.raw
	}
	if l.Scheme == "" || l.Scheme == SchemeFile {
		return l.Path
	}
	return l.Scheme + ":" + l.Path
}

// IsFile returns true for on-disk locators.
func (l Locator) IsFile() bool {
	return l.Scheme == SchemeFile || l.Scheme == ""
}

// SupportedScheme reports whether the registry knows how to produce a
// document for this locator's scheme.
func SupportedScheme(s string) bool {
	switch Parse(s).Scheme {
	case SchemeFile, "", SchemeUntitled, SchemeInMemory, SchemeNotebookCell:
		return true
	default:
		return false
	}
}

// NormalizeKey derives the registry lookup key for a locator string.
//
// It is pure and total: any string produces a key. Two locators that denote
// the same document on the current platform produce the same key. The scheme
// and authority survive into the key so a virtual locator can never collide
// with an on-disk path that happens to share its spelling.
func NormalizeKey(s string) string {
	return normalizeKey(s, !caseSensitivePaths)
}

// normalizeKey is NormalizeKey with explicit case folding, for tests that
// exercise both platform conventions.
func normalizeKey(s string, fold bool) string {
	l := Parse(s)

	var key string
	if l.IsFile() {
		key = SchemeFile + "://" + l.Authority + normalizePathForKey(l.Path)
	} else {
		key = l.Scheme + "://" + l.Authority + l.Path
	}

	if fold {
		key = strings.ToLower(key)
	}
	return key
}

// normalizePathForKey puts a file path into a separator-stable form so that
// "dir\a.ps1" and "dir/a.ps1" key identically on Windows.
func normalizePathForKey(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// IsVirtual reports whether a locator or path denotes a document with no
// possible on-disk backing. A string is virtual when its scheme is not the
// on-disk scheme, when it is not an absolute path on this platform, or when
// it is absolute but contains characters no valid platform path can hold.
func IsVirtual(pathOrLocator string) bool {
	if hasScheme(pathOrLocator) {
		l := Parse(pathOrLocator)
		if !l.IsFile() {
			return true
		}
		pathOrLocator = l.Path
	}
	if !filepath.IsAbs(pathOrLocator) {
		return true
	}
	return !ValidPath(pathOrLocator)
}

// hasScheme reports whether s begins with a URI scheme. Single letters
// followed by a colon are Windows drive prefixes, not schemes.
func hasScheme(s string) bool {
	idx := strings.IndexByte(s, ':')
	if idx < 2 {
		return false
	}
	for i := range idx {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// uriPathToFilePath converts the path component of a file URI into an OS
// path: percent-decoding, drive-letter fixup, and UNC authority handling.
func uriPathToFilePath(u *url.URL) string {
	p := u.Path
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}

	// file://host/share -> \\host\share on Windows hosts
	if u.Host != "" && runtime.GOOS == "windows" {
		return filepath.FromSlash("//" + u.Host + p)
	}

	// file:///c:/dir -> c:/dir
	if len(p) >= 3 && p[0] == '/' && isDriveLetter(p[1]) && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

func isDriveLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
