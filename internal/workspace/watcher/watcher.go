// Package watcher detects external changes to files under the workspace
// root.
//
// A live editing session's documents can be rewritten behind its back by
// builds, formatters, or source control. The watcher surfaces those changes
// as debounced events so the session can refresh what it knows about
// disk-backed documents. Registry semantics are unaffected; this is
// notification, not invalidation.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/scriptspace/internal/log"
	"github.com/dshills/scriptspace/internal/workspace/scan"
)

// Common errors returned by watcher operations.
var (
	// ErrWatcherClosed indicates the watcher has been closed.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrPathNotExist indicates the watch root does not exist.
	ErrPathNotExist = errors.New("path does not exist")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file or directory was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents an external file system change.
type Event struct {
	// Path is the absolute path of the affected file or directory.
	Path string

	// Op is the operation (or coalesced operations) that occurred.
	Op Op

	// Timestamp is when the event was delivered.
	Timestamp time.Time
}

// Watcher watches a workspace root recursively, coalescing rapid changes to
// the same path and filtering out excluded paths.
type Watcher struct {
	mu sync.Mutex

	fsw      *fsnotify.Watcher
	root     string
	excludes scan.RuleSet
	debounce time.Duration
	logger   *log.Logger

	pending map[string]*pendingEvent
	events  chan Event

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

type pendingEvent struct {
	ops   Op
	timer *time.Timer
}

// Config configures a Watcher.
type Config struct {
	// Excludes are glob patterns (root-relative) whose matches are never
	// reported and never descended into.
	Excludes []string

	// Debounce is the coalescing window. Zero applies 100ms.
	Debounce time.Duration

	// Logger receives watch loop diagnostics. Nil discards them.
	Logger *log.Logger
}

// New creates a Watcher over root and starts its event loop. The caller must
// Close it.
func New(root string, cfg Config) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absRoot); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}

	w := &Watcher{
		fsw:      fsw,
		root:     absRoot,
		excludes: scan.RuleSet{Excludes: cfg.Excludes},
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]*pendingEvent),
		events:   make(chan Event, 128),
		closeCh:  make(chan struct{}),
	}

	if err := w.addRecursive(absRoot); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Events returns the debounced event channel. The channel is never closed;
// consumers select on Done to learn about shutdown.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Done is closed when the watcher shuts down.
func (w *Watcher) Done() <-chan struct{} {
	return w.closeCh
}

// Close stops the watcher and releases its OS watches. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = make(map[string]*pendingEvent)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// addRecursive registers fsnotify watches for dir and every non-excluded
// subdirectory.
func (w *Watcher) addRecursive(dir string) error {
	if w.isExcluded(dir) {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Debug("watch: skipping %s: %v", dir, err)
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.addRecursive(filepath.Join(dir, entry.Name())); err != nil {
				w.logger.Debug("watch: %v", err)
			}
		}
	}
	return nil
}

// loop consumes raw fsnotify events until close.
func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch: %v", err)
		case <-w.closeCh:
			return
		}
	}
}

// handle filters, translates, and debounces one raw event.
func (w *Watcher) handle(ev fsnotify.Event) {
	if w.isExcluded(ev.Name) {
		return
	}

	op := translateOp(ev.Op)
	if op == 0 {
		return
	}

	// New directories must be watched to keep recursion live.
	if op.Has(OpCreate) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Debug("watch: %v", err)
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if p, ok := w.pending[ev.Name]; ok {
		p.ops |= op
		p.timer.Reset(w.debounce)
		return
	}

	path := ev.Name
	p := &pendingEvent{ops: op}
	p.timer = time.AfterFunc(w.debounce, func() {
		w.flush(path)
	})
	w.pending[path] = p
}

// flush delivers the coalesced event for path.
func (w *Watcher) flush(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if ok {
		delete(w.pending, path)
	}
	closed := w.closed
	w.mu.Unlock()

	if !ok || closed {
		return
	}

	select {
	case w.events <- Event{Path: path, Op: p.ops, Timestamp: time.Now()}:
	case <-w.closeCh:
	}
}

// isExcluded applies the session excludes to a root-relative form of path.
func (w *Watcher) isExcluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	return !w.excludes.Match(rel)
}

// translateOp maps fsnotify ops onto watcher ops. Chmod-only churn is
// dropped.
func translateOp(op fsnotify.Op) Op {
	var out Op
	if op.Has(fsnotify.Create) {
		out |= OpCreate
	}
	if op.Has(fsnotify.Write) {
		out |= OpWrite
	}
	if op.Has(fsnotify.Remove) {
		out |= OpRemove
	}
	if op.Has(fsnotify.Rename) {
		out |= OpRename
	}
	return out
}
