// Package registry provides the concurrent document table for a workspace
// session.
//
// The registry maps normalized locator keys to open documents, creating
// documents on demand from disk or from a host-supplied buffer. It is the
// single owner of every Document; callers hold references only for the
// duration of an operation.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/scriptspace/internal/vfs"
	"github.com/dshills/scriptspace/internal/workspace/locator"
)

// Origin records where a document's initial content came from.
type Origin int

const (
	// OriginDisk means the content was read from the file system.
	OriginDisk Origin = iota
	// OriginBuffer means the content came from a host-supplied buffer.
	OriginBuffer
)

// String returns a human-readable origin name.
func (o Origin) String() string {
	if o == OriginBuffer {
		return "buffer"
	}
	return "disk"
}

// ReferenceExtractor produces the list of raw file references authored in a
// document's content. Extraction is the lexer's job, not this package's; the
// registry only consumes the result.
type ReferenceExtractor interface {
	// References returns the reference strings in authored order.
	References(path string, content string) []string
}

// Document is an open document owned by the registry.
//
// Its locator never changes after registration; edits replace content and
// re-derive references but leave identity alone.
type Document struct {
	mu sync.RWMutex

	id      string
	loc     locator.Locator
	key     string
	path    string
	virtual bool
	origin  Origin

	content    string
	encoding   vfs.Encoding
	references []string

	extractor ReferenceExtractor

	openedAt    time.Time
	diskModTime time.Time
}

// newDocument builds a Document. The registry is the only constructor caller.
func newDocument(loc locator.Locator, key, path string, virtual bool, origin Origin, content string, enc vfs.Encoding, extractor ReferenceExtractor) *Document {
	d := &Document{
		id:        uuid.NewString(),
		loc:       loc,
		key:       key,
		path:      path,
		virtual:   virtual,
		origin:    origin,
		content:   content,
		encoding:  enc,
		extractor: extractor,
		openedAt:  time.Now(),
	}
	d.references = d.extract(content)
	return d
}

// ID returns the document's diagnostic identifier, unique per open.
func (d *Document) ID() string { return d.id }

// Locator returns the locator the document was registered under.
func (d *Document) Locator() locator.Locator { return d.loc }

// Key returns the document's normalized registry key.
func (d *Document) Key() string { return d.key }

// Path returns the absolute on-disk path for disk documents, or the locator
// string for virtual ones.
func (d *Document) Path() string { return d.path }

// IsVirtual returns true for documents with no on-disk backing.
func (d *Document) IsVirtual() bool { return d.virtual }

// Origin returns where the document's initial content came from.
func (d *Document) Origin() Origin { return d.origin }

// GraphKey returns the identity used during reference-graph traversal.
// It is derived from the document's path rather than its locator, so a
// document reached both through a file URI and through its bare path
// deduplicates to one graph node.
func (d *Document) GraphKey() string {
	return locator.NormalizeKey(d.path)
}

// Content returns the current document content.
func (d *Document) Content() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.content
}

// SetContent replaces the document content and re-derives its references.
// Identity is untouched.
func (d *Document) SetContent(content string) {
	refs := d.extract(content)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = content
	d.references = refs
}

// References returns a copy of the raw, unresolved reference strings in
// authored order.
func (d *Document) References() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	refs := make([]string, len(d.references))
	copy(refs, d.references)
	return refs
}

// SetReferences replaces the reference list. Hosts whose parsers run out of
// process push results here instead of configuring an extractor.
func (d *Document) SetReferences(refs []string) {
	cp := make([]string, len(refs))
	copy(cp, refs)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.references = cp
}

// Encoding returns the BOM-derived encoding detected when the document was
// opened. Content with no BOM reports BOM-less UTF-8.
func (d *Document) Encoding() vfs.Encoding {
	return d.encoding
}

// OpenedAt returns when the document was registered.
func (d *Document) OpenedAt() time.Time { return d.openedAt }

// DiskModTime returns the file's modification time recorded at open, or the
// zero time for virtual documents.
func (d *Document) DiskModTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.diskModTime
}

// RefreshDiskModTime records a newer on-disk modification time. The watcher
// calls this when the file changes outside the session.
func (d *Document) RefreshDiskModTime(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.diskModTime = t
}

func (d *Document) extract(content string) []string {
	if d.extractor == nil {
		return nil
	}
	return d.extractor.References(d.path, content)
}
