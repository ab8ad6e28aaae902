// Package scan enumerates a workspace tree under glob rules.
//
// The enumerator answers "what files exist under these rules" without
// opening anything: include patterns select, exclude patterns veto, a depth
// bound stops descent, and a symlink policy decides whether linked
// directories are entered at all.
package scan

import (
	"path"
	"path/filepath"
	"strings"
)

// RuleSet pairs include and exclude glob patterns. Excludes always take
// precedence over includes, regardless of declaration order. An empty
// include list means "everything".
type RuleSet struct {
	Includes []string
	Excludes []string
}

// Match reports whether a root-relative path passes the rule set.
// The path may use either separator; matching is slash-normalized.
func (r RuleSet) Match(rel string) bool {
	rel = filepath.ToSlash(rel)

	included := len(r.Includes) == 0
	for _, p := range r.Includes {
		if matchGlob(p, rel) {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, p := range r.Excludes {
		if matchGlob(p, rel) {
			return false
		}
	}
	return true
}

// matchGlob matches a slash-separated relative path against a glob pattern.
// `*` matches within one path segment, `**` matches any number of whole
// segments including zero. Malformed patterns match nothing.
func matchGlob(pattern, rel string) bool {
	pattern = strings.Trim(filepath.ToSlash(pattern), "/")
	rel = strings.Trim(rel, "/")

	return matchSegments(splitSegments(pattern), splitSegments(rel))
}

// matchSegments matches pattern segments against path segments.
func matchSegments(pat, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}

	if pat[0] == "**" {
		// Zero segments consumed.
		if matchSegments(pat[1:], parts) {
			return true
		}
		// One or more segments consumed.
		for i := range parts {
			if matchSegments(pat[1:], parts[i+1:]) {
				return true
			}
		}
		return false
	}

	if len(parts) == 0 {
		return false
	}

	ok, err := path.Match(pat[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pat[1:], parts[1:])
}

// splitSegments splits a slash path into segments, dropping empties.
func splitSegments(p string) []string {
	raw := strings.Split(p, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
