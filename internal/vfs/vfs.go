// Package vfs provides the file system abstraction used by the workspace
// engine.
//
// The engine only ever reads from the file system: it opens script files,
// stats paths during enumeration, and lists directories. The VFS interface
// covers exactly that surface so tests can run against an in-memory
// implementation and the registry never touches the OS directly.
package vfs

import (
	"io"
	"io/fs"
	"time"
)

// VFS is a read-oriented file system abstraction.
type VFS interface {
	// Open opens a file for shared reading.
	Open(path string) (io.ReadCloser, error)

	// ReadFile reads the entire file content.
	ReadFile(path string) ([]byte, error)

	// Stat returns file information, following symlinks.
	Stat(path string) (FileInfo, error)

	// ReadDir reads a directory and returns its entries.
	// Entries are reported without following symlinks, so a symlinked
	// directory appears as a symlink, not as a directory.
	ReadDir(path string) ([]FileInfo, error)

	// Abs returns the absolute form of path.
	Abs(path string) (string, error)

	// Rel returns the relative path from base to target.
	Rel(basePath, targetPath string) (string, error)

	// Exists returns true if the path exists.
	Exists(path string) bool

	// IsDir returns true if the path is a directory (following symlinks).
	IsDir(path string) bool
}

// FileInfo describes a file or directory.
type FileInfo struct {
	// Path is the full path to the file.
	Path string

	// Name is the base name of the file.
	Name string

	// Size is the file size in bytes.
	Size int64

	// Mode is the file mode bits.
	Mode fs.FileMode

	// ModTime is the modification time.
	ModTime time.Time

	// Dir is true if this is a directory.
	Dir bool
}

// IsSymlink returns true if the entry is a symbolic link.
func (fi FileInfo) IsSymlink() bool {
	return fi.Mode&fs.ModeSymlink != 0
}

// NewFileInfo creates a FileInfo.
func NewFileInfo(path, name string, size int64, mode fs.FileMode, modTime time.Time, dir bool) FileInfo {
	return FileInfo{
		Path:    path,
		Name:    name,
		Size:    size,
		Mode:    mode,
		ModTime: modTime,
		Dir:     dir,
	}
}
