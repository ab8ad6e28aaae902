// Package workspace ties the engine's pieces into a single editing-session
// object.
//
// A Session owns the document registry, the workspace root, the glob
// configuration, and an optional external-change watcher. It is constructed
// and torn down explicitly by the host; nothing in this module is a
// singleton. One session serves one editing/debugging session, and all state
// dies with it.
//
// # Components
//
//   - locator: document identity, key normalization, path resolution
//   - registry: the concurrent locator-to-document table
//   - refgraph: transitive reference expansion
//   - scan: glob-filtered, depth-bounded workspace enumeration
//   - watcher: debounced external-change notification
//
// # Concurrency
//
// Sessions are safe for concurrent use by multiple request handlers. The
// registry's operations are atomic with respect to its table; expansion and
// enumeration take only point-in-time reads, so they run concurrently with
// edits. File I/O inside document opens and enumeration is blocking; hosts
// run those off latency-sensitive threads. Enumeration is cancelled by
// abandoning its sequence.
package workspace
