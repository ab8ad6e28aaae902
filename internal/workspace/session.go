package workspace

import (
	"iter"
	"sync"

	"github.com/dshills/scriptspace/internal/config"
	"github.com/dshills/scriptspace/internal/log"
	"github.com/dshills/scriptspace/internal/vfs"
	wserr "github.com/dshills/scriptspace/internal/workspace/errors"
	"github.com/dshills/scriptspace/internal/workspace/locator"
	"github.com/dshills/scriptspace/internal/workspace/refgraph"
	"github.com/dshills/scriptspace/internal/workspace/registry"
	"github.com/dshills/scriptspace/internal/workspace/scan"
	"github.com/dshills/scriptspace/internal/workspace/watcher"
)

// Session is one editing session's view of a workspace: its root, its open
// documents, and the rules for walking its tree.
type Session struct {
	mu   sync.RWMutex
	root string // absolute, or empty when no root is set

	cfg    *config.Config
	fs     vfs.VFS
	logger *log.Logger
	reg    *registry.Registry

	w            *watcher.Watcher
	watcherWg    sync.WaitGroup
	onFileChange []func(watcher.Event)
}

// Option configures a Session.
type Option func(*Session)

// WithVFS sets the file system implementation. Defaults to the OS.
func WithVFS(fsys vfs.VFS) Option {
	return func(s *Session) { s.fs = fsys }
}

// WithLogger sets the session logger. Defaults to a no-op logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithConfig sets the session configuration. Defaults to config.Default.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// New creates a Session. extractor may be nil when the host pushes reference
// lists itself.
func New(extractor registry.ReferenceExtractor, opts ...Option) *Session {
	s := &Session{
		cfg:    config.Default(),
		fs:     vfs.NewOSFS(),
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reg = registry.New(s.fs,
		registry.WithExtractor(extractor),
		registry.WithLogger(s.logger.WithComponent("registry")),
	)
	return s
}

// SetRoot sets the workspace root. The path is made absolute; an empty
// string clears the root.
func (s *Session) SetRoot(root string) error {
	if root == "" {
		s.mu.Lock()
		s.root = ""
		s.mu.Unlock()
		return nil
	}

	abs, err := s.fs.Abs(root)
	if err != nil {
		return wserr.NewPathError("setroot", root, err)
	}

	s.mu.Lock()
	s.root = abs
	s.mu.Unlock()
	return nil
}

// Root returns the workspace root, or empty when none is set.
func (s *Session) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Registry returns the session's document registry.
func (s *Session) Registry() *registry.Registry {
	return s.reg
}

// GetDocument returns the document for a locator, opening it from disk when
// necessary. See registry.Get for the error contract.
func (s *Session) GetDocument(loc string) (*registry.Document, error) {
	return s.reg.Get(loc)
}

// TryGetDocument is GetDocument with expected absences folded into the ok
// result.
func (s *Session) TryGetDocument(loc string) (*registry.Document, bool, error) {
	return s.reg.TryGet(loc)
}

// GetOrCreateBuffer returns the registered document for loc or creates one
// from initial. See registry.GetOrCreateBuffer.
func (s *Session) GetOrCreateBuffer(loc string, initial []byte) (*registry.Document, bool) {
	return s.reg.GetOrCreateBuffer(loc, initial)
}

// ListDocuments returns a snapshot of all open documents.
func (s *Session) ListDocuments() []*registry.Document {
	return s.reg.List()
}

// CloseDocument removes a document from the registry. Idempotent.
func (s *Session) CloseDocument(doc *registry.Document) {
	s.reg.Close(doc)
}

// ExpandReferences returns doc followed by every document it transitively
// references, each exactly once. Per-reference failures are logged and
// skipped.
func (s *Session) ExpandReferences(doc *registry.Document) []*registry.Document {
	exp := refgraph.New(s.reg, s.Root(), s.logger.WithComponent("refgraph"))
	return exp.Expand(doc)
}

// ResolveReference resolves a reference string against a base directory.
// An absolute reference is returned unchanged.
func (s *Session) ResolveReference(baseDir, ref string) (string, error) {
	return locator.Resolve(baseDir, ref)
}

// RelativePath returns target relative to the workspace root, or target
// unchanged when no root is set or target is virtual.
func (s *Session) RelativePath(target string) string {
	return locator.RelativeTo(s.Root(), target)
}

// EnumerateSourceFiles lazily yields the workspace's script files under the
// session's exclude globs, depth bound, and symlink policy. The sequence is
// empty when no root is set or the root does not exist.
func (s *Session) EnumerateSourceFiles() iter.Seq[string] {
	includes := scan.SourcePatterns
	if s.cfg.LegacyExtensions {
		includes = scan.SourcePatternsLegacy
	}
	return s.Enumerate(scan.RuleSet{
		Includes: includes,
		Excludes: s.cfg.ExcludeGlobs,
	})
}

// Enumerate lazily yields files under the workspace root matching rules,
// using the session's depth and symlink settings.
func (s *Session) Enumerate(rules scan.RuleSet) iter.Seq[string] {
	root := s.Root()
	if root == "" {
		return func(yield func(string) bool) {}
	}
	return scan.Files(s.fs, root, rules, scan.Options{
		MaxDepth:       s.cfg.MaxDepth,
		IgnoreSymlinks: !s.cfg.FollowSymlinks,
		Logger:         s.logger.WithComponent("scan"),
	})
}

// OnDocumentOpened registers a handler for successful registrations.
func (s *Session) OnDocumentOpened(handler func(doc *registry.Document)) {
	s.reg.OnOpen(handler)
}

// OnFileChange registers a handler for debounced external file changes.
// Handlers fire only while the watcher is running.
func (s *Session) OnFileChange(handler func(ev watcher.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFileChange = append(s.onFileChange, handler)
}

// StartWatcher begins watching the workspace root for external changes.
// Fails with ErrNoWorkspaceRoot when no root is set.
func (s *Session) StartWatcher() error {
	root := s.Root()
	if root == "" {
		return wserr.ErrNoWorkspaceRoot
	}

	w, err := watcher.New(root, watcher.Config{
		Excludes: s.cfg.ExcludeGlobs,
		Debounce: s.cfg.WatchDebounce,
		Logger:   s.logger.WithComponent("watcher"),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.w != nil {
		s.mu.Unlock()
		w.Close()
		return nil
	}
	s.w = w
	s.mu.Unlock()

	s.watcherWg.Add(1)
	go s.consumeWatchEvents(w)
	return nil
}

// Close tears the session down: the watcher stops and the registry empties.
func (s *Session) Close() {
	s.mu.Lock()
	w := s.w
	s.w = nil
	s.mu.Unlock()

	if w != nil {
		w.Close()
		s.watcherWg.Wait()
	}

	for _, doc := range s.reg.List() {
		s.reg.Close(doc)
	}
}

// consumeWatchEvents refreshes open documents' disk metadata and fans events
// out to handlers.
func (s *Session) consumeWatchEvents(w *watcher.Watcher) {
	defer s.watcherWg.Done()

	for {
		select {
		case ev := <-w.Events():
			s.handleFileChange(ev)
		case <-w.Done():
			return
		}
	}
}

func (s *Session) handleFileChange(ev watcher.Event) {
	if ev.Op.Has(watcher.OpWrite) || ev.Op.Has(watcher.OpCreate) {
		if doc, ok := s.lookupByPath(ev.Path); ok {
			if info, err := s.fs.Stat(ev.Path); err == nil {
				doc.RefreshDiskModTime(info.ModTime)
			}
			s.logger.Debug("external change to open document: %s", ev.Path)
		}
	}

	s.mu.RLock()
	handlers := make([]func(watcher.Event), len(s.onFileChange))
	copy(handlers, s.onFileChange)
	s.mu.RUnlock()
	for _, handler := range handlers {
		handler(ev)
	}
}

// lookupByPath finds an open document by on-disk path without triggering a
// disk read.
func (s *Session) lookupByPath(path string) (*registry.Document, bool) {
	key := locator.NormalizeKey(path)
	for _, doc := range s.reg.List() {
		if doc.Key() == key || doc.GraphKey() == key {
			return doc, true
		}
	}
	return nil, false
}
