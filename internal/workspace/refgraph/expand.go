// Package refgraph expands a document's transitive file references.
//
// Script files name the files they depend on (dot-sourced scripts, imported
// modules) as raw strings relative to their own location. Expansion resolves
// those strings, loads each target through the registry, and walks onward
// until the whole dependency closure is in hand. The walk is cycle-safe and
// deterministic: the root comes first, every reachable document appears
// exactly once, and a document is always discovered before its own children.
package refgraph

import (
	"path/filepath"

	"github.com/dshills/scriptspace/internal/log"
	"github.com/dshills/scriptspace/internal/workspace/locator"
	"github.com/dshills/scriptspace/internal/workspace/registry"
)

// Expander walks reference closures using a registry for document loading.
type Expander struct {
	reg    *registry.Registry
	root   string // workspace root, may be empty
	logger *log.Logger
}

// New creates an Expander. root is the workspace root used as the resolution
// base for virtual documents; it may be empty when no root is configured.
func New(reg *registry.Registry, root string, logger *log.Logger) *Expander {
	if logger == nil {
		logger = log.Nop()
	}
	return &Expander{reg: reg, root: root, logger: logger}
}

// Expand returns root followed by every transitively referenced document,
// each exactly once, in depth-first authored order.
//
// Every per-reference failure is soft: unresolvable strings, missing files,
// unreadable files, and disallowed schemes are logged and skipped. Cycles
// and self-references terminate naturally because a visited document is
// never pushed twice, and the root is seeded into the visited set before the
// walk begins.
func (e *Expander) Expand(root *registry.Document) []*registry.Document {
	visited := map[string]struct{}{
		root.GraphKey(): {},
	}
	result := []*registry.Document{root}

	// Explicit work stack instead of recursion; reference chains in real
	// projects can be deep enough to matter.
	stack := []*registry.Document{root}

	for len(stack) > 0 {
		doc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		base := e.baseDir(doc)
		children := e.children(doc, base, visited)

		result = append(result, children...)

		// Push in reverse so the next document popped is the first child
		// in authored order.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return result
}

// children resolves and loads doc's direct references, marking each new
// document visited in discovery order.
func (e *Expander) children(doc *registry.Document, base string, visited map[string]struct{}) []*registry.Document {
	var children []*registry.Document

	for _, ref := range doc.References() {
		target, err := locator.Resolve(base, ref)
		if err != nil {
			e.logger.Debug("skipping reference %q in %s: %v", ref, doc.Path(), err)
			continue
		}

		child, ok, err := e.reg.TryGet(target)
		if err != nil {
			e.logger.Warn("skipping reference %q in %s: %v", ref, doc.Path(), err)
			continue
		}
		if !ok {
			e.logger.Debug("skipping unresolvable reference %q in %s", ref, doc.Path())
			continue
		}

		key := child.GraphKey()
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}
		children = append(children, child)
	}

	return children
}

// baseDir returns the directory references inside doc resolve against:
// the parent directory of on-disk documents, the workspace root for virtual
// ones.
func (e *Expander) baseDir(doc *registry.Document) string {
	if doc.IsVirtual() {
		return e.root
	}
	return filepath.Dir(doc.Path())
}
