package registry

import (
	"path/filepath"
	"sync"

	"github.com/dshills/scriptspace/internal/log"
	"github.com/dshills/scriptspace/internal/vfs"
	wserr "github.com/dshills/scriptspace/internal/workspace/errors"
	"github.com/dshills/scriptspace/internal/workspace/locator"
)

// Registry is the session's concurrent document table.
//
// It is safe for use by multiple request handlers at once. Lookups, opens,
// and closes are atomic with respect to the table; the slow path (reading a
// file from disk) runs outside the lock and finishes with an
// insert-if-absent, so two racing first-opens of the same locator resolve to
// a single visible Document. The loser's instance is discarded.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]*Document

	fs        vfs.VFS
	extractor ReferenceExtractor
	logger    *log.Logger

	onOpen []func(doc *Document)
}

// Option configures a Registry.
type Option func(*Registry)

// WithExtractor sets the reference extractor handed to new documents.
func WithExtractor(e ReferenceExtractor) Option {
	return func(r *Registry) { r.extractor = e }
}

// WithLogger sets the registry logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates a Registry over the given file system.
func New(fsys vfs.VFS, opts ...Option) *Registry {
	r := &Registry{
		docs:   make(map[string]*Document),
		fs:     fsys,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnOpen registers a handler invoked after every successful registration.
// The document's Origin tells whether it was read from disk or created from
// a supplied buffer.
func (r *Registry) OnOpen(handler func(doc *Document)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onOpen = append(r.onOpen, handler)
}

// Get returns the document for a locator, opening it from disk when it is
// not yet registered.
//
// Errors are not converted: a missing file fails with ErrNotFound, a
// permission wall with ErrAccessDenied, and any other read problem with
// ErrIOFailure, each wrapped in a *PathError. Get never creates a document
// for a missing on-disk file, and never performs I/O for virtual locators.
func (r *Registry) Get(loc string) (*Document, error) {
	key := locator.NormalizeKey(loc)

	r.mu.RLock()
	doc, ok := r.docs[key]
	r.mu.RUnlock()
	if ok {
		return doc, nil
	}

	if !locator.SupportedScheme(loc) {
		return nil, wserr.NewPathError("get", loc, wserr.ErrUnsupportedScheme)
	}

	if locator.IsVirtual(loc) {
		// A virtual document exists only while a host-supplied buffer is
		// registered for it. No buffer, no document.
		return nil, wserr.NewPathError("get", loc, wserr.ErrNotFound)
	}

	return r.openFromDisk(loc, key)
}

// TryGet is Get with expected absences folded into the ok result.
//
// Found documents return (doc, true, nil). A missing file, permission
// failure, malformed path, or unrecognized scheme returns (nil, false, nil)
// with no error; locators with an unrecognized scheme are rejected before
// any I/O. Anything else returns the error unconverted.
func (r *Registry) TryGet(loc string) (*Document, bool, error) {
	doc, err := r.Get(loc)
	if err != nil {
		if wserr.IsExpectedAbsence(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc, true, nil
}

// GetOrCreateBuffer returns the registered document for a locator, creating
// an in-memory document from initial when none exists.
//
// A live buffer always wins: if the locator is already registered the cached
// document is returned and initial is ignored. When not registered, a nil
// initial means "nothing to create" and the result is absent; this
// operation never reads from disk. A non-nil empty slice creates an empty
// buffer.
func (r *Registry) GetOrCreateBuffer(loc string, initial []byte) (*Document, bool) {
	key := locator.NormalizeKey(loc)

	r.mu.RLock()
	doc, ok := r.docs[key]
	r.mu.RUnlock()
	if ok {
		return doc, true
	}

	if initial == nil {
		return nil, false
	}

	l := locator.Parse(loc)
	path := l.Path
	if locator.IsVirtual(loc) {
		path = l.String()
	}

	content, enc := vfs.DecodeText(initial)
	doc = newDocument(l, key, path, locator.IsVirtual(loc), OriginBuffer, content, enc, r.extractor)
	return r.insert(key, doc), true
}

// List returns a point-in-time snapshot of all registered documents in
// unspecified order.
func (r *Registry) List() []*Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]*Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, doc)
	}
	return docs
}

// Count returns the number of registered documents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// Close removes the document from the table. Closing an already-closed
// document is a no-op. The entry is removed only if it still maps to this
// exact document, so a close racing a reopen never evicts the newer
// instance.
func (r *Registry) Close(doc *Document) {
	if doc == nil {
		return
	}

	r.mu.Lock()
	if current, ok := r.docs[doc.key]; ok && current == doc {
		delete(r.docs, doc.key)
	}
	r.mu.Unlock()

	r.logger.Debug("document closed: %s", doc.loc.String())
}

// CloseLocator removes whatever document is registered under the locator's
// key. Idempotent.
func (r *Registry) CloseLocator(loc string) {
	key := locator.NormalizeKey(loc)

	r.mu.Lock()
	doc, ok := r.docs[key]
	if ok {
		delete(r.docs, key)
	}
	r.mu.Unlock()

	if ok {
		r.logger.Debug("document closed: %s", doc.loc.String())
	}
}

// openFromDisk reads, decodes, and registers an on-disk document.
func (r *Registry) openFromDisk(loc, key string) (*Document, error) {
	l := locator.Parse(loc)

	path := l.Path
	if !filepath.IsAbs(path) {
		abs, err := r.fs.Abs(path)
		if err != nil {
			return nil, wserr.NewPathError("get", loc, wserr.ClassifyIOError(err))
		}
		path = abs
	}

	info, err := r.fs.Stat(path)
	if err != nil {
		return nil, wserr.NewPathError("get", loc, wserr.ClassifyIOError(err))
	}
	if info.Dir {
		return nil, wserr.NewPathError("get", loc, wserr.ErrNotFound)
	}

	raw, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, wserr.NewPathError("get", loc, wserr.ClassifyIOError(err))
	}

	content, enc := vfs.DecodeText(raw)
	doc := newDocument(l, key, path, false, OriginDisk, content, enc, r.extractor)
	doc.diskModTime = info.ModTime

	return r.insert(key, doc), nil
}

// insert stores doc under key unless another goroutine won the race, in
// which case the existing document is returned and doc is dropped. Open
// handlers fire only for the winner.
func (r *Registry) insert(key string, doc *Document) *Document {
	r.mu.Lock()
	if existing, ok := r.docs[key]; ok {
		r.mu.Unlock()
		return existing
	}
	r.docs[key] = doc
	handlers := make([]func(*Document), len(r.onOpen))
	copy(handlers, r.onOpen)
	r.mu.Unlock()

	r.logger.Debug("document opened: %s (%s)", doc.loc.String(), doc.origin)
	for _, handler := range handlers {
		handler(doc)
	}
	return doc
}
