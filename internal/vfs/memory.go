package vfs

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemFS implements VFS using an in-memory file system.
// It holds forward-slash, rooted paths and is used by tests that would
// otherwise need a scratch directory.
//
// MemFS is safe for concurrent use.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
	dirs  map[string]bool
}

type memFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMemFS creates a new in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{"/": true},
	}
}

// Ensure MemFS implements VFS.
var _ VFS = (*MemFS)(nil)

// AddFile adds a file with the given content, creating parent directories.
func (m *MemFS) AddFile(filePath, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	m.mkdirAll(path.Dir(filePath))
	m.files[filePath] = &memFile{
		content: []byte(content),
		mode:    0o644,
		modTime: time.Now(),
	}
}

// AddFileBytes adds a file with raw byte content, creating parent directories.
// Used for fixtures carrying BOMs or non-UTF-8 bytes.
func (m *MemFS) AddFileBytes(filePath string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	m.mkdirAll(path.Dir(filePath))
	cp := make([]byte, len(content))
	copy(cp, content)
	m.files[filePath] = &memFile{
		content: cp,
		mode:    0o644,
		modTime: time.Now(),
	}
}

// Mkdir creates a directory and any missing parents.
func (m *MemFS) Mkdir(dirPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(m.cleanPath(dirPath))
}

// RemoveFile deletes a file if present.
func (m *MemFS) RemoveFile(filePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, m.cleanPath(filePath))
}

// Open opens a file for reading.
func (m *MemFS) Open(filePath string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	f, ok := m.files[filePath]
	if !ok {
		if m.dirs[filePath] {
			return nil, &fs.PathError{Op: "open", Path: filePath, Err: fs.ErrInvalid}
		}
		return nil, &fs.PathError{Op: "open", Path: filePath, Err: fs.ErrNotExist}
	}

	return io.NopCloser(bytes.NewReader(f.content)), nil
}

// ReadFile reads the entire file content.
func (m *MemFS) ReadFile(filePath string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	f, ok := m.files[filePath]
	if !ok {
		if m.dirs[filePath] {
			return nil, &fs.PathError{Op: "read", Path: filePath, Err: fs.ErrInvalid}
		}
		return nil, &fs.PathError{Op: "read", Path: filePath, Err: fs.ErrNotExist}
	}

	// Return a copy to prevent modification
	content := make([]byte, len(f.content))
	copy(content, f.content)
	return content, nil
}

// Stat returns file information.
func (m *MemFS) Stat(filePath string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)

	if f, ok := m.files[filePath]; ok {
		return NewFileInfo(filePath, path.Base(filePath), int64(len(f.content)), f.mode, f.modTime, false), nil
	}
	if m.dirs[filePath] {
		return NewFileInfo(filePath, path.Base(filePath), 0, fs.ModeDir|0o755, time.Now(), true), nil
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: filePath, Err: fs.ErrNotExist}
}

// ReadDir reads a directory and returns its entries sorted by name.
func (m *MemFS) ReadDir(dirPath string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dirPath = m.cleanPath(dirPath)
	if !m.dirs[dirPath] {
		return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: fs.ErrNotExist}
	}

	var entries []FileInfo
	for p, f := range m.files {
		if path.Dir(p) == dirPath {
			entries = append(entries, NewFileInfo(p, path.Base(p), int64(len(f.content)), f.mode, f.modTime, false))
		}
	}
	for d := range m.dirs {
		if d != dirPath && path.Dir(d) == dirPath {
			entries = append(entries, NewFileInfo(d, path.Base(d), 0, fs.ModeDir|0o755, time.Now(), true))
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Abs returns the path unchanged if rooted, otherwise rooted at /.
func (m *MemFS) Abs(filePath string) (string, error) {
	filePath = m.cleanPath(filePath)
	return filePath, nil
}

// Rel returns the relative path from base to target.
func (m *MemFS) Rel(basePath, targetPath string) (string, error) {
	basePath = m.cleanPath(basePath)
	targetPath = m.cleanPath(targetPath)

	if basePath == targetPath {
		return ".", nil
	}
	prefix := basePath
	if prefix != "/" {
		prefix += "/"
	}
	if strings.HasPrefix(targetPath, prefix) {
		return strings.TrimPrefix(targetPath, prefix), nil
	}
	return "", &fs.PathError{Op: "rel", Path: targetPath, Err: fs.ErrInvalid}
}

// Exists returns true if the path exists.
func (m *MemFS) Exists(filePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if _, ok := m.files[filePath]; ok {
		return true
	}
	return m.dirs[filePath]
}

// IsDir returns true if the path is a directory.
func (m *MemFS) IsDir(filePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirs[m.cleanPath(filePath)]
}

// cleanPath normalizes a path to a rooted, forward-slash form.
func (m *MemFS) cleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// mkdirAll creates dirPath and all parents. Caller holds the lock.
func (m *MemFS) mkdirAll(dirPath string) {
	for dirPath != "/" && dirPath != "." {
		m.dirs[dirPath] = true
		dirPath = path.Dir(dirPath)
	}
	m.dirs["/"] = true
}
