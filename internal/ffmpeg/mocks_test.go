package ffmpeg

import (
	"errors"
	"os"
	"time"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockFileReader struct {
	stat     func(name string) (os.FileInfo, error)
	readFile func(name string) ([]byte, error)
}

func (m *mockFileReader) Stat(name string) (os.FileInfo, error) {
	if m.stat != nil {
		return m.stat(name)
	}
	return nil, os.ErrNotExist
}

func (m *mockFileReader) ReadFile(name string) ([]byte, error) {
	if m.readFile != nil {
		return m.readFile(name)
	}
	return nil, os.ErrNotExist
}

// existing returns a reader where only the listed paths exist.
func existing(paths ...string) *mockFileReader {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return &mockFileReader{stat: func(name string) (os.FileInfo, error) {
		if set[name] {
			return mockFileInfo{name: name}, nil
		}
		return nil, os.ErrNotExist
	}}
}

type mockFileWriter struct {
	mkdirAll func(path string, perm os.FileMode) error
}

func (m *mockFileWriter) WriteFile(string, []byte, os.FileMode) error { return nil }

func (m *mockFileWriter) MkdirAll(path string, perm os.FileMode) error {
	if m.mkdirAll != nil {
		return m.mkdirAll(path, perm)
	}
	return nil
}

func (m *mockFileWriter) Remove(string) error { return nil }

func (m *mockFileWriter) Chmod(string, os.FileMode) error { return nil }

func (m *mockFileWriter) CreateTemp(dir, pattern string) (*os.File, error) {
	return os.CreateTemp(dir, pattern)
}

type mockEnvProvider struct {
	vars    map[string]string
	home    string
	inPath  map[string]string
	homeErr error
}

func (m *mockEnvProvider) Getenv(key string) string {
	return m.vars[key]
}

func (m *mockEnvProvider) UserHomeDir() (string, error) {
	if m.homeErr != nil {
		return "", m.homeErr
	}
	return m.home, nil
}

func (m *mockEnvProvider) LookPath(file string) (string, error) {
	if p, ok := m.inPath[file]; ok {
		return p, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

type mockFileInfo struct {
	name string
}

func (m mockFileInfo) Name() string       { return m.name }
func (m mockFileInfo) Size() int64        { return 0 }
func (m mockFileInfo) Mode() os.FileMode  { return 0o755 }
func (m mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m mockFileInfo) IsDir() bool        { return false }
func (m mockFileInfo) Sys() any           { return nil }
