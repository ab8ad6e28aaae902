package locator

import (
	"path/filepath"
	"runtime"
	"strings"

	wserr "github.com/dshills/scriptspace/internal/workspace/errors"
)

// smartQuotes are the characters word processors substitute for straight
// quotes. They show up in dot-source lines pasted from documents and can
// never appear in a valid path on any supported platform.
const smartQuotes = "‘’‚‛“”„‟"

// ValidPath reports whether p could be a real path on the current platform.
func ValidPath(p string) bool {
	if p == "" {
		return false
	}
	if strings.ContainsRune(p, 0) {
		return false
	}
	if strings.ContainsAny(p, smartQuotes) {
		return false
	}
	if runtime.GOOS == "windows" {
		// The path body may not contain reserved characters. The colon in
		// a drive prefix is legal, so it is checked separately.
		body := p
		if len(body) >= 2 && isDriveLetter(body[0]) && body[1] == ':' {
			body = body[2:]
		}
		if strings.ContainsAny(body, `<>:"|?*`) {
			return false
		}
	}
	return true
}

// Resolve turns a reference string authored inside a document into an
// absolute path.
//
// An already-absolute candidate is returned unchanged; the base does not
// participate. With an empty base (no workspace root configured) the
// candidate is also returned unchanged, bypassing root-relative arithmetic.
// Otherwise the candidate is joined to the base and canonicalized.
//
// A candidate that cannot be expressed as a platform path fails with
// ErrMalformedPath wrapped in a PathError. Callers treat this as a soft
// failure: the single reference is dropped, never the whole operation.
func Resolve(basePath, candidate string) (string, error) {
	if !ValidPath(candidate) {
		return "", wserr.NewPathError("resolve", candidate, wserr.ErrMalformedPath)
	}

	if filepath.IsAbs(candidate) {
		return candidate, nil
	}

	if basePath == "" {
		return candidate, nil
	}
	if !ValidPath(basePath) {
		return "", wserr.NewPathError("resolve", basePath, wserr.ErrMalformedPath)
	}

	return filepath.Clean(filepath.Join(basePath, candidate)), nil
}

// RelativeTo produces target relative to base with the platform's native
// separators. The target is returned unchanged when no base is configured,
// when the target is virtual, or when no relative form exists (different
// volumes).
func RelativeTo(basePath, targetPath string) string {
	if basePath == "" || IsVirtual(targetPath) {
		return targetPath
	}

	rel, err := filepath.Rel(basePath, targetPath)
	if err != nil {
		return targetPath
	}
	return rel
}
