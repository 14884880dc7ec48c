package transcribe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-podscribe/internal/audio"
	"github.com/alnah/go-podscribe/internal/transcript"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// backendResult is one scripted answer of mockBackend.
type backendResult struct {
	raw transcript.Raw
	err error
}

// mockBackend answers per audio path and records the call order.
type mockBackend struct {
	mu      sync.Mutex
	results map[string]backendResult
	calls   []string
	onCall  func(path string)
}

func (m *mockBackend) Transcribe(_ context.Context, audioPath string) (transcript.Raw, error) {
	m.mu.Lock()
	m.calls = append(m.calls, audioPath)
	res, ok := m.results[audioPath]
	onCall := m.onCall
	m.mu.Unlock()

	if onCall != nil {
		onCall(audioPath)
	}
	if !ok {
		return nil, errors.New("unexpected path " + audioPath)
	}
	return res.raw, res.err
}

func (m *mockBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// mockSplitter returns fixed segments and counts cleanups.
type mockSplitter struct {
	mu        sync.Mutex
	parts     []audio.Segment
	err       error
	splits    int
	released  int
	releaseFn func(string) error
}

func (m *mockSplitter) Split(_ context.Context, _ string) (*audio.Segments, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.splits++
	if m.err != nil {
		return nil, m.err
	}
	return audio.NewSegments("/tmp/podscribe-seg-test", m.parts, func(string) error {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
		if m.releaseFn != nil {
			return m.releaseFn("/tmp/podscribe-seg-test")
		}
		return nil
	}), nil
}

func (m *mockSplitter) Splits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.splits
}

func (m *mockSplitter) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// mockAudioTranscriber implements the OpenAI client subset.
type mockAudioTranscriber struct {
	mu        sync.Mutex
	calls     []openai.AudioRequest
	responses []openai.AudioResponse
	errors    []error
}

func (m *mockAudioTranscriber) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.calls)
	m.calls = append(m.calls, req)
	if idx < len(m.errors) && m.errors[idx] != nil {
		return openai.AudioResponse{}, m.errors[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return openai.AudioResponse{}, nil
}

func (m *mockAudioTranscriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockAudioTranscriber) LastRequest() openai.AudioRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return openai.AudioRequest{}
	}
	return m.calls[len(m.calls)-1]
}

// mockCommandRunner records argv and optionally writes a result file into
// the directory following outFlag.
type mockCommandRunner struct {
	mu      sync.Mutex
	args    [][]string
	outFlag string
	file    string // file name written into the output dir
	content string
	stdout  string
	stderr  string
	err     error
}

func (m *mockCommandRunner) Run(_ context.Context, name string, args []string) ([]byte, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.args = append(m.args, append([]string{name}, args...))

	if m.file != "" {
		for i, a := range args {
			if a == m.outFlag && i+1 < len(args) {
				if err := os.WriteFile(filepath.Join(args[i+1], m.file), []byte(m.content), 0o600); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return []byte(m.stdout), []byte(m.stderr), m.err
}

func (m *mockCommandRunner) Args() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.args
}
