package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-podscribe/internal/audio"
	"github.com/alnah/go-podscribe/internal/config"
	"github.com/alnah/go-podscribe/internal/download"
	"github.com/alnah/go-podscribe/internal/ffmpeg"
	"github.com/alnah/go-podscribe/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests override
// specific fields using the With* options.
type Env struct {
	// I/O and environment
	Stdout     io.Writer
	Stderr     io.Writer
	Getenv     func(string) string
	Now        func() time.Time
	IsTerminal func(w io.Writer) bool

	// TempDirs tracks segment directories so an abort can remove them.
	TempDirs *audio.TempDirs

	// Factories for domain objects
	ToolResolver      ToolResolver
	ConfigLoader      ConfigLoader
	BackendFactory    BackendFactory
	SplitterFactory   SplitterFactory
	DownloaderFactory DownloaderFactory
}

// ToolResolver locates the external media tools.
type ToolResolver interface {
	Resolve(ctx context.Context) (string, error)
	ResolveProbe(ffmpegPath string) (string, error)
	ResolveYTDLP() (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
	YTDLPVersion(ctx context.Context, ytdlpPath string) string
}

// ConfigLoader loads the user configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// BackendSettings carries everything needed to build a transcription backend.
type BackendSettings struct {
	Name     transcribe.BackendName
	Model    string // Empty selects the backend's default model.
	Language string // Canonical tag, or empty for auto-detect.
	Device   string
	Command  string // Command template for the local backend.
	APIKey   string // Required by the openai backend.
	Logger   *slog.Logger
}

// BackendFactory creates transcription backends.
type BackendFactory interface {
	NewBackend(s BackendSettings) (transcribe.Backend, error)
}

// SplitterSettings carries everything needed to build a segmenter.
type SplitterSettings struct {
	FFmpegPath  string
	FFprobePath string // Empty falls back to parsing ffmpeg output.
	Chunk       time.Duration
	TempDirs    *audio.TempDirs
	Logger      *slog.Logger
}

// SplitterFactory creates audio splitters.
type SplitterFactory interface {
	NewSplitter(s SplitterSettings) (transcribe.Splitter, error)
}

// Downloader fetches remote audio.
type Downloader interface {
	Download(ctx context.Context, url, outDir string) (string, error)
}

// DownloaderFactory creates downloaders.
type DownloaderFactory interface {
	NewDownloader(ytdlpPath, ffmpegPath string, logger *slog.Logger) (Downloader, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithTerminalDetector sets how the CLI decides whether a writer is a terminal.
func WithTerminalDetector(fn func(w io.Writer) bool) EnvOption {
	return func(e *Env) {
		e.IsTerminal = fn
	}
}

// WithTempDirs sets the temp-dir registry.
func WithTempDirs(r *audio.TempDirs) EnvOption {
	return func(e *Env) {
		e.TempDirs = r
	}
}

// WithToolResolver sets the media tool resolver.
func WithToolResolver(r ToolResolver) EnvOption {
	return func(e *Env) {
		e.ToolResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithBackendFactory sets the backend factory.
func WithBackendFactory(f BackendFactory) EnvOption {
	return func(e *Env) {
		e.BackendFactory = f
	}
}

// WithSplitterFactory sets the splitter factory.
func WithSplitterFactory(f SplitterFactory) EnvOption {
	return func(e *Env) {
		e.SplitterFactory = f
	}
}

// WithDownloaderFactory sets the downloader factory.
func WithDownloaderFactory(f DownloaderFactory) EnvOption {
	return func(e *Env) {
		e.DownloaderFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
		Getenv:            os.Getenv,
		Now:               time.Now,
		IsTerminal:        isTerminal,
		TempDirs:          audio.NewTempDirs(),
		ToolResolver:      newDefaultToolResolver(os.Stderr),
		ConfigLoader:      &defaultConfigLoader{},
		BackendFactory:    &defaultBackendFactory{},
		SplitterFactory:   &defaultSplitterFactory{},
		DownloaderFactory: &defaultDownloaderFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultToolResolver implements ToolResolver using the ffmpeg package.
type defaultToolResolver struct {
	*ffmpeg.Resolver
	versions *ffmpeg.VersionChecker
}

func newDefaultToolResolver(stderr io.Writer) *defaultToolResolver {
	return &defaultToolResolver{
		Resolver: ffmpeg.NewResolver(ffmpeg.WithStderr(stderr)),
		versions: ffmpeg.NewVersionChecker(ffmpeg.WithVersionStderr(stderr)),
	}
}

func (r *defaultToolResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	r.versions.Check(ctx, ffmpegPath)
}

func (r *defaultToolResolver) YTDLPVersion(ctx context.Context, ytdlpPath string) string {
	return r.versions.YTDLPVersion(ctx, ytdlpPath)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultBackendFactory builds the local command backend or the OpenAI backend.
type defaultBackendFactory struct{}

func (defaultBackendFactory) NewBackend(s BackendSettings) (transcribe.Backend, error) {
	switch s.Name {
	case transcribe.BackendLocal:
		opts := []transcribe.CommandOption{
			transcribe.WithLanguage(s.Language),
			transcribe.WithCommandLogger(s.Logger),
		}
		if s.Command != "" {
			opts = append(opts, transcribe.WithCommandTemplate(s.Command))
		}
		if s.Model != "" {
			opts = append(opts, transcribe.WithModel(s.Model))
		}
		if s.Device != "" {
			opts = append(opts, transcribe.WithDevice(s.Device))
		}
		return transcribe.NewCommandBackend(opts...), nil
	case transcribe.BackendOpenAI:
		if s.APIKey == "" {
			return nil, fmt.Errorf("%w (set it with: export %s=sk-...)", transcribe.ErrAPIKeyMissing, EnvOpenAIAPIKey)
		}
		opts := []transcribe.OpenAIOption{
			transcribe.WithOpenAILanguage(s.Language),
			transcribe.WithOpenAILogger(s.Logger),
		}
		if s.Model != "" {
			opts = append(opts, transcribe.WithOpenAIModel(s.Model))
		}
		return transcribe.NewOpenAIBackend(openai.NewClient(s.APIKey), opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: %s)", transcribe.ErrInvalidBackend, s.Name, transcribe.BackendNames())
	}
}

// defaultSplitterFactory implements SplitterFactory with audio.Segmenter.
type defaultSplitterFactory struct{}

func (defaultSplitterFactory) NewSplitter(s SplitterSettings) (transcribe.Splitter, error) {
	opts := []audio.SegmenterOption{
		audio.WithTempDirs(s.TempDirs),
		audio.WithLogger(s.Logger),
	}
	if s.FFprobePath != "" {
		opts = append(opts, audio.WithProber(audio.NewFFprobeProber(s.FFprobePath)))
	}
	seg, err := audio.NewSegmenter(s.FFmpegPath, s.Chunk, opts...)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// defaultDownloaderFactory implements DownloaderFactory with yt-dlp.
type defaultDownloaderFactory struct{}

func (defaultDownloaderFactory) NewDownloader(ytdlpPath, ffmpegPath string, logger *slog.Logger) (Downloader, error) {
	d, err := download.NewDownloader(ytdlpPath,
		download.WithFFmpegLocation(ffmpegPath),
		download.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Compile-time interface verification.
var (
	_ ToolResolver      = (*defaultToolResolver)(nil)
	_ ConfigLoader      = (*defaultConfigLoader)(nil)
	_ BackendFactory    = (*defaultBackendFactory)(nil)
	_ SplitterFactory   = (*defaultSplitterFactory)(nil)
	_ DownloaderFactory = (*defaultDownloaderFactory)(nil)
)
