package cli

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alnah/go-podscribe/internal/audio"
	"github.com/alnah/go-podscribe/internal/config"
	"github.com/alnah/go-podscribe/internal/ffmpeg"
	"github.com/alnah/go-podscribe/internal/transcribe"
	"github.com/alnah/go-podscribe/internal/transcript"
)

// ---------------------------------------------------------------------------
// Mock ToolResolver
// ---------------------------------------------------------------------------

type mockToolResolver struct {
	ResolveFunc      func(ctx context.Context) (string, error)
	ResolveProbeFunc func(ffmpegPath string) (string, error)
	ResolveYTDLPFunc func() (string, error)

	mu            sync.Mutex
	resolveCalls  int
	versionChecks []string
}

func (m *mockToolResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockToolResolver) ResolveProbe(ffmpegPath string) (string, error) {
	if m.ResolveProbeFunc != nil {
		return m.ResolveProbeFunc(ffmpegPath)
	}
	return "/usr/bin/ffprobe", nil
}

func (m *mockToolResolver) ResolveYTDLP() (string, error) {
	if m.ResolveYTDLPFunc != nil {
		return m.ResolveYTDLPFunc()
	}
	return "/usr/bin/yt-dlp", nil
}

func (m *mockToolResolver) CheckVersion(_ context.Context, ffmpegPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versionChecks = append(m.versionChecks, ffmpegPath)
}

func (m *mockToolResolver) YTDLPVersion(context.Context, string) string {
	return "2025.01.15"
}

func (m *mockToolResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

// ---------------------------------------------------------------------------
// Mock BackendFactory + Backend
// ---------------------------------------------------------------------------

type mockBackendFactory struct {
	NewBackendFunc func(s BackendSettings) (transcribe.Backend, error)
	Backend        *mockBackend

	mu       sync.Mutex
	settings []BackendSettings
}

func (m *mockBackendFactory) NewBackend(s BackendSettings) (transcribe.Backend, error) {
	m.mu.Lock()
	m.settings = append(m.settings, s)
	m.mu.Unlock()

	if m.NewBackendFunc != nil {
		return m.NewBackendFunc(s)
	}
	if m.Backend != nil {
		return m.Backend, nil
	}
	return &mockBackend{}, nil
}

func (m *mockBackendFactory) Settings() []BackendSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BackendSettings(nil), m.settings...)
}

type mockBackend struct {
	TranscribeFunc func(ctx context.Context, audioPath string) (transcript.Raw, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockBackend) Transcribe(ctx context.Context, audioPath string) (transcript.Raw, error) {
	m.mu.Lock()
	m.calls = append(m.calls, audioPath)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audioPath)
	}
	return transcript.Raw{"text": "hello world"}, nil
}

func (m *mockBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// ---------------------------------------------------------------------------
// Mock SplitterFactory + Splitter
// ---------------------------------------------------------------------------

type mockSplitterFactory struct {
	NewSplitterFunc func(s SplitterSettings) (transcribe.Splitter, error)
	Splitter        *mockSplitter

	mu       sync.Mutex
	settings []SplitterSettings
}

func (m *mockSplitterFactory) NewSplitter(s SplitterSettings) (transcribe.Splitter, error) {
	m.mu.Lock()
	m.settings = append(m.settings, s)
	m.mu.Unlock()

	if m.NewSplitterFunc != nil {
		return m.NewSplitterFunc(s)
	}
	if m.Splitter != nil {
		return m.Splitter, nil
	}
	return &mockSplitter{}, nil
}

func (m *mockSplitterFactory) Settings() []SplitterSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SplitterSettings(nil), m.settings...)
}

type mockSplitter struct {
	Parts []audio.Segment
	Err   error

	mu       sync.Mutex
	released int
}

func (m *mockSplitter) Split(_ context.Context, _ string) (*audio.Segments, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return audio.NewSegments("/tmp/podscribe-seg-test", m.Parts, func(string) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.released++
		return nil
	}), nil
}

func (m *mockSplitter) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// ---------------------------------------------------------------------------
// Mock DownloaderFactory + Downloader
// ---------------------------------------------------------------------------

type mockDownloaderFactory struct {
	NewDownloaderFunc func(ytdlpPath, ffmpegPath string) (Downloader, error)
	Downloader        *mockDownloader

	mu    sync.Mutex
	paths [][2]string
}

func (m *mockDownloaderFactory) NewDownloader(ytdlpPath, ffmpegPath string, _ *slog.Logger) (Downloader, error) {
	m.mu.Lock()
	m.paths = append(m.paths, [2]string{ytdlpPath, ffmpegPath})
	m.mu.Unlock()

	if m.NewDownloaderFunc != nil {
		return m.NewDownloaderFunc(ytdlpPath, ffmpegPath)
	}
	if m.Downloader != nil {
		return m.Downloader, nil
	}
	return &mockDownloader{}, nil
}

func (m *mockDownloaderFactory) Paths() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]string(nil), m.paths...)
}

type mockDownloader struct {
	DownloadFunc func(ctx context.Context, url, outDir string) (string, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockDownloader) Download(ctx context.Context, url, outDir string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url+" -> "+outDir)
	m.mu.Unlock()

	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, url, outDir)
	}
	return "", ffmpeg.ErrYTDLPNotFound
}

func (m *mockDownloader) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Compile-time interface verification.
var (
	_ ToolResolver      = (*mockToolResolver)(nil)
	_ ConfigLoader      = (*mockConfigLoader)(nil)
	_ BackendFactory    = (*mockBackendFactory)(nil)
	_ SplitterFactory   = (*mockSplitterFactory)(nil)
	_ DownloaderFactory = (*mockDownloaderFactory)(nil)
	_ Downloader        = (*mockDownloader)(nil)
)
