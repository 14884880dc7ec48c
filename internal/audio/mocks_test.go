package audio_test

import (
	"context"
	"os"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockCommandRunner struct {
	mu         sync.Mutex
	outputFunc func(ctx context.Context, name string, args []string) ([]byte, error)
	calls      []mockCall
}

type mockCall struct {
	name string
	args []string
}

func (m *mockCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mockCall{name: name, args: args})
	m.mu.Unlock()
	if m.outputFunc != nil {
		return m.outputFunc(ctx, name, args)
	}
	return nil, nil
}

func (m *mockCommandRunner) Calls() []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockCall(nil), m.calls...)
}

type mockTempDirCreator struct {
	dir   string
	err   error
	calls int
}

func (m *mockTempDirCreator) MkdirTemp(dir, pattern string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.dir, nil
}

type mockFileStatter struct {
	err error
}

func (m *mockFileStatter) Stat(name string) (os.FileInfo, error) {
	return nil, m.err
}

type mockFileRemover struct {
	mu      sync.Mutex
	err     error
	removed []string
}

func (m *mockFileRemover) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, path)
	return m.err
}

// mockProber returns durations by path; paths missing from the map fail.
type mockProber struct {
	durations map[string]time.Duration
	err       error
}

func (m *mockProber) Probe(_ context.Context, path string) (time.Duration, error) {
	if d, ok := m.durations[path]; ok {
		return d, nil
	}
	return 0, m.err
}
