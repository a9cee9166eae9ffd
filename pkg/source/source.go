// Package source abstracts where file content comes from.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// ErrTooLarge is returned when a file exceeds the configured size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct {
	maxSize int64
}

// NewFilesystem creates a source that reads from the filesystem. A positive
// maxSize rejects larger files with ErrTooLarge without reading them.
func NewFilesystem(maxSize int64) *FilesystemSource {
	return &FilesystemSource{maxSize: maxSize}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	if f.maxSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Size() > f.maxSize {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, info.Size(), f.maxSize)
		}
	}
	return os.ReadFile(path)
}

// MapSource serves content held in memory, keyed by path.
// It is safe for concurrent use by multiple goroutines.
type MapSource struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMap creates a source over the given files. The map is copied.
func NewMap(files map[string]string) *MapSource {
	m := &MapSource{files: make(map[string][]byte, len(files))}
	for path, content := range files {
		m.files[path] = []byte(content)
	}
	return m
}

// Put adds or replaces a file.
func (m *MapSource) Put(path string, content []byte) {
	m.mu.Lock()
	m.files[path] = content
	m.mu.Unlock()
}

// Read implements ContentSource.
func (m *MapSource) Read(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return content, nil
}
