package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-podscribe/internal/audio"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	tools      *mockToolResolver
	config     *mockConfigLoader
	backends   *mockBackendFactory
	splitters  *mockSplitterFactory
	downloader *mockDownloaderFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		tools:      &mockToolResolver{},
		config:     &mockConfigLoader{},
		backends:   &mockBackendFactory{},
		splitters:  &mockSplitterFactory{},
		downloader: &mockDownloaderFactory{},
	}
}

// testEnv bundles an Env with its mocks and captured output.
type testEnv struct {
	env    *Env
	mocks  *testMocks
	stdout *syncBuffer
	stderr *syncBuffer
	vars   map[string]string
}

// fixedNow is the clock used by test environments.
var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestEnv creates a fully mocked Env for testing.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		mocks:  newTestMocks(),
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		vars:   map[string]string{},
	}
	te.env = NewEnv(
		WithStdout(te.stdout),
		WithStderr(te.stderr),
		WithGetenv(func(k string) string { return te.vars[k] }),
		WithNow(func() time.Time { return fixedNow }),
		WithTerminalDetector(func(io.Writer) bool { return false }),
		WithTempDirs(audio.NewTempDirs()),
		WithToolResolver(te.mocks.tools),
		WithConfigLoader(te.mocks.config),
		WithBackendFactory(te.mocks.backends),
		WithSplitterFactory(te.mocks.splitters),
		WithDownloaderFactory(te.mocks.downloader),
	)
	return te
}

// createAudioFile creates an empty audio file named name in a temp dir.
func createAudioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake audio"), 0o644); err != nil {
		t.Fatalf("create audio file: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// isolateConfig points the config package at an empty temp directory.
// Tests calling it cannot run in parallel.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}
