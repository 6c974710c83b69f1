package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mm-go/internal/mm"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
	// StatErr makes Stat fail for this file, simulating a file that
	// vanishes between the directory walk and its per-file processing.
	StatErr error
	// OpenErr makes Open fail for this file.
	OpenErr error
}

// MockFilesystemManager is an in-memory filesystem for testing.
type MockFilesystemManager struct {
	files map[string]*MockFile
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file to the mock filesystem, creating parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	now := time.Now()
	for dir := filepath.Dir(path); dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.AddDirectory(dir)
		}
	}
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     now,
		IsDirectory: false,
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	now := time.Now()
	m.files[path] = &MockFile{
		Content:     nil,
		Permissions: 0755,
		ModTime:     now,
		IsDirectory: true,
	}
}

// UpdateFile replaces a file's content and modification time.
func (m *MockFilesystemManager) UpdateFile(path string, content []byte, modTime time.Time) {
	if f, ok := m.files[path]; ok {
		f.Content = content
		f.ModTime = modTime
	}
}

// RemoveFile deletes a file from the mock filesystem.
func (m *MockFilesystemManager) RemoveFile(path string) {
	delete(m.files, path)
}

// SetModTime changes the recorded modification time of a file.
func (m *MockFilesystemManager) SetModTime(path string, t time.Time) {
	if f, ok := m.files[path]; ok {
		f.ModTime = t
	}
}

// File returns the MockFile stored under path, or nil.
func (m *MockFilesystemManager) File(path string) *MockFile {
	return m.files[path]
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*mm.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}

	return mm.NewPath(absPath, file.IsDirectory, m.infoFor(absPath, file)), nil
}

func (m *MockFilesystemManager) Open(path *mm.Path) (io.ReadSeekCloser, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.OpenErr != nil {
		return nil, file.OpenErr
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	return nopSeekCloser{bytes.NewReader(file.Content)}, nil
}

func (m *MockFilesystemManager) Stat(path *mm.Path) (fs.FileInfo, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.StatErr != nil {
		return nil, file.StatErr
	}
	return m.infoFor(path.String(), file), nil
}

// FindFiles lists regular files under root, sorted by path so tests see a
// stable order.
func (m *MockFilesystemManager) FindFiles(root *mm.Path, recursive bool) ([]*mm.Path, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root.String())
	}

	prefix := root.String() + string(filepath.Separator)
	var found []string
	for p, f := range m.files {
		if f.IsDirectory || !strings.HasPrefix(p, prefix) {
			continue
		}
		if !recursive && filepath.Dir(p) != root.String() {
			continue
		}
		found = append(found, p)
	}
	sort.Strings(found)

	paths := make([]*mm.Path, 0, len(found))
	for _, p := range found {
		paths = append(paths, mm.NewPath(p, false, m.infoFor(p, m.files[p])))
	}
	return paths, nil
}

func (m *MockFilesystemManager) infoFor(path string, file *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ mm.FilesystemManager = (*MockFilesystemManager)(nil)
