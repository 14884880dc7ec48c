package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-podscribe/internal/audio"
	"github.com/alnah/go-podscribe/internal/config"
	"github.com/alnah/go-podscribe/internal/download"
	"github.com/alnah/go-podscribe/internal/ffmpeg"
	"github.com/alnah/go-podscribe/internal/format"
	"github.com/alnah/go-podscribe/internal/lang"
	"github.com/alnah/go-podscribe/internal/logging"
	"github.com/alnah/go-podscribe/internal/transcribe"
)

// EnvOpenAIAPIKey names the variable holding the OpenAI API key.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// defaultChunkSeconds is the fallback segment length in seconds.
const defaultChunkSeconds = 600

// supportedAudioFormats lists input extensions accepted for local files.
var supportedAudioFormats = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".aac":  true,
	".webm": true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
}

// supportedDevices lists accepted --device values.
var supportedDevices = []string{"auto", "mps", "cpu", "cuda"}

// supportedFormatsList returns a sorted, comma-separated list for error messages.
func supportedFormatsList() string {
	formats := make([]string, 0, len(supportedAudioFormats))
	for ext := range supportedAudioFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

// transcribeFlags holds raw flag values as typed by the user.
type transcribeFlags struct {
	output       string
	outDir       string
	format       string
	language     string
	model        string
	device       string
	backend      string
	chunkSeconds int
	keepAudio    bool
	force        bool
	highlight    bool
	noTiming     bool
	verbose      bool
	stdout       bool
}

// transcribeOptions holds validated settings after merging flags and config.
type transcribeOptions struct {
	Source    string
	Remote    bool
	Output    string // Explicit output path; empty derives it from the audio name.
	OutDir    string
	Format    format.Format
	Backend   transcribe.BackendName
	Model     string
	Language  string // Canonical tag; empty means auto-detect.
	Device    string
	Command   string
	Chunk     time.Duration
	KeepAudio bool
	Force     bool
	Highlight bool
	NoTiming  bool
	Verbose   bool
	Stdout    bool
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var f transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe <url-or-file>",
		Short: "Transcribe a podcast URL or a local audio file",
		Long: `Transcribe a podcast URL or a local audio file.

URLs are downloaded as MP3 with yt-dlp first. The audio is sent to the
transcription backend in one piece; if the backend runs out of memory, the
audio is cut into fixed-length segments (no re-encoding) that are transcribed
one after the other and stitched back together with consistent timestamps.

Backends:
  local   runs a local speech-recognition command (default: parakeet-mlx)
  openai  uses the OpenAI transcription API (needs OPENAI_API_KEY)

Output formats: txt, srt, vtt, json`,
		Example: `  podscribe transcribe https://www.youtube.com/watch?v=dQw4w9WgXcQ
  podscribe transcribe episode.mp3 -f srt --highlight-words
  podscribe transcribe episode.mp3 -b openai -l fr -o notes.txt
  podscribe transcribe episode.mp3 --chunk-seconds 300 --device cpu
  podscribe transcribe episode.mp3 -f json > summary.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.ConfigLoader.Load()
			if err != nil {
				fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
			}
			opts, err := parseTranscribeOptions(args[0], f, cmd.Flags().Changed, cfg)
			if err != nil {
				return err
			}
			return runTranscribe(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file path (default: <audio-name>.<format>)")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "Directory for transcripts and downloaded audio")
	cmd.Flags().StringVarP(&f.format, "format", "f", string(format.Text), "Output format: "+format.Names())
	cmd.Flags().StringVarP(&f.language, "language", "l", lang.Auto, "Audio language (e.g. en, fr, pt-BR) or auto")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Backend model (default depends on the backend)")
	cmd.Flags().StringVar(&f.device, "device", transcribe.DefaultDevice, "Compute device: "+strings.Join(supportedDevices, ", "))
	cmd.Flags().StringVarP(&f.backend, "backend", "b", string(transcribe.DefaultBackend), "Transcription backend: "+transcribe.BackendNames())
	cmd.Flags().IntVar(&f.chunkSeconds, "chunk-seconds", defaultChunkSeconds, "Segment length used when the backend runs out of memory")
	cmd.Flags().BoolVar(&f.keepAudio, "keep-audio", false, "Keep the downloaded MP3 when the source is a URL")
	cmd.Flags().BoolVar(&f.force, "force", false, "Overwrite an existing output file")
	cmd.Flags().BoolVar(&f.highlight, "highlight-words", false, "One subtitle cue per word with the current word highlighted (srt, vtt)")
	cmd.Flags().BoolVar(&f.noTiming, "no-timing", false, "Hide timing lines in the summary")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log diagnostic details to stderr")
	cmd.Flags().BoolVar(&f.stdout, "stdout", false, "Print the transcript to stdout instead of writing a file")

	return cmd
}

// parseTranscribeOptions merges flags with the configuration and validates
// the result. A flag set on the command line wins over the config file,
// which already folds in PODSCRIBE_* environment fallbacks.
func parseTranscribeOptions(source string, f transcribeFlags, changed func(string) bool, cfg config.Config) (transcribeOptions, error) {
	pick := func(name, flagValue, configValue string) string {
		if changed(name) || configValue == "" {
			return flagValue
		}
		return configValue
	}

	opts := transcribeOptions{
		Source:    strings.TrimSpace(source),
		Output:    f.output,
		Model:     pick("model", f.model, cfg.Model),
		Command:   cfg.BackendCommand,
		KeepAudio: f.keepAudio,
		Force:     f.force,
		Highlight: f.highlight,
		NoTiming:  f.noTiming,
		Verbose:   f.verbose,
		Stdout:    f.stdout,
	}
	opts.Remote = download.IsURL(opts.Source)
	opts.OutDir = config.ExpandPath(pick("out-dir", f.outDir, cfg.OutputDir))

	var err error
	if opts.Format, err = format.ParseFormat(pick("format", f.format, cfg.Format)); err != nil {
		return transcribeOptions{}, err
	}
	if opts.Backend, err = transcribe.ParseBackend(pick("backend", f.backend, cfg.Backend)); err != nil {
		return transcribeOptions{}, err
	}
	if opts.Language, err = lang.Parse(pick("language", f.language, cfg.Language)); err != nil {
		return transcribeOptions{}, err
	}

	opts.Device = strings.ToLower(strings.TrimSpace(pick("device", f.device, cfg.Device)))
	if !slices.Contains(supportedDevices, opts.Device) {
		return transcribeOptions{}, fmt.Errorf("%w: %q (valid: %s)",
			ErrInvalidDevice, opts.Device, strings.Join(supportedDevices, ", "))
	}

	chunk := f.chunkSeconds
	if !changed("chunk-seconds") && cfg.ChunkSeconds > 0 {
		chunk = cfg.ChunkSeconds
	}
	if chunk <= 0 {
		return transcribeOptions{}, fmt.Errorf("%w: --chunk-seconds must be positive, got %d", ErrInvalidChunk, chunk)
	}
	opts.Chunk = time.Duration(chunk) * time.Second

	if opts.Highlight && opts.Format != format.SRT && opts.Format != format.VTT {
		return transcribeOptions{}, fmt.Errorf("%w: --highlight-words requires srt or vtt, got %s",
			format.ErrUnsupportedFormat, opts.Format)
	}
	return opts, nil
}

// runTranscribe executes the pipeline: validate, download, transcribe, write.
// Validation order: source -> output -> API key -> tools.
func runTranscribe(ctx context.Context, env *Env, opts transcribeOptions) error {
	logger := logging.New(env.Stderr, opts.Verbose)

	// === VALIDATION (fail-fast) ===

	if !opts.Remote {
		if err := validateLocalAudio(opts.Source); err != nil {
			return err
		}
	}

	output := ""
	if !opts.Stdout && (opts.Output != "" || !opts.Remote) {
		output = config.ResolveOutputPath(opts.Output, opts.OutDir, deriveOutputName(opts.Source, opts.Format))
		if err := checkOutputFree(output, opts.Force); err != nil {
			return err
		}
	}

	apiKey := ""
	if opts.Backend == transcribe.BackendOpenAI {
		apiKey = env.Getenv(EnvOpenAIAPIKey)
		if apiKey == "" {
			return fmt.Errorf("%w (set it with: export %s=sk-...)", transcribe.ErrAPIKeyMissing, EnvOpenAIAPIKey)
		}
	}

	// === DOWNLOAD ===

	audioPath := opts.Source
	var downloadElapsed *float64
	if opts.Remote {
		start := env.Now()
		path, err := downloadAudio(ctx, env, logger, opts.Source, downloadDir(opts.OutDir))
		if err != nil {
			return err
		}
		audioPath = path
		elapsed := env.Now().Sub(start).Seconds()
		downloadElapsed = &elapsed

		if output == "" && !opts.Stdout {
			output = config.ResolveOutputPath("", opts.OutDir, deriveOutputName(audioPath, opts.Format))
			if err := checkOutputFree(output, opts.Force); err != nil {
				return err
			}
		}
	}

	// === TRANSCRIPTION ===

	backend, err := env.BackendFactory.NewBackend(BackendSettings{
		Name:     opts.Backend,
		Model:    opts.Model,
		Language: opts.Language,
		Device:   opts.Device,
		Command:  opts.Command,
		APIKey:   apiKey,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	splitter := &lazySplitter{env: env, chunk: opts.Chunk, logger: logger}
	progress := newSegmentProgress(env.Stderr, env.IsTerminal(env.Stderr))
	chunked := false
	segments := 0

	fmt.Fprintf(env.Stderr, "Transcribing %s (backend: %s)...\n", filepath.Base(audioPath), opts.Backend)
	start := env.Now()
	result, err := transcribe.TranscribeWithFallback(ctx, audioPath, backend, splitter, opts.Chunk,
		transcribe.WithLogger(logger),
		transcribe.WithFallbackNotice(func(capErr error) {
			chunked = true
			progress.notice(opts.Chunk)(capErr)
		}),
		transcribe.WithSegmentHook(func(ev transcribe.SegmentEvent) {
			segments++
			progress.segment(ev)
		}),
	)
	progress.finish()
	if err != nil {
		return err
	}
	transcribeElapsed := env.Now().Sub(start).Seconds()

	// === WRITE OUTPUT ===

	var renderOpts []format.RenderOption
	if opts.Highlight {
		renderOpts = append(renderOpts, format.WithHighlightWords())
	}
	content, err := format.Render(opts.Format, result, renderOpts...)
	if err != nil {
		return err
	}

	if opts.Stdout {
		if _, err := io.WriteString(env.Stdout, content); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
	} else if err := writeFileAtomic(output, content, opts.Force); err != nil {
		return err
	}

	if opts.Remote && !opts.KeepAudio {
		if err := os.Remove(audioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove downloaded audio", slog.String("path", audioPath), logging.Error(err))
		}
	}

	if opts.Stdout {
		return nil
	}

	summary := runSummary{
		Status:            "ok",
		TranscriptPath:    output,
		AudioPath:         audioPath,
		Source:            opts.Source,
		Model:             opts.Model,
		Language:          languageLabel(opts.Language),
		Device:            opts.Device,
		Backend:           string(opts.Backend),
		Chunked:           chunked,
		Segments:          segments,
		TranscribeSeconds: transcribeElapsed,
		DownloadSeconds:   downloadElapsed,
	}
	if opts.Format == format.JSON {
		return writeJSONSummary(env.Stdout, summary)
	}
	fmt.Fprintln(env.Stderr, transcriptionPanel(summary, opts.NoTiming))
	return nil
}

// validateLocalAudio checks that path exists and has a supported extension.
func validateLocalAudio(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedAudioFormats[ext] {
		return fmt.Errorf("unsupported format %q (supported: %s): %w",
			ext, supportedFormatsList(), ErrUnsupportedFormat)
	}
	return nil
}

// downloadDir is where downloaded audio lands: the output dir, or the cwd.
func downloadDir(outDir string) string {
	if outDir == "" {
		return "."
	}
	return outDir
}

func languageLabel(code string) string {
	if code == "" {
		return lang.Auto
	}
	return code
}

// downloadAudio resolves yt-dlp and ffmpeg and fetches url into outDir.
func downloadAudio(ctx context.Context, env *Env, logger *slog.Logger, url, outDir string) (string, error) {
	ytdlpPath, err := env.ToolResolver.ResolveYTDLP()
	if err != nil {
		return "", err
	}
	ffmpegPath, err := env.ToolResolver.Resolve(ctx)
	if err != nil {
		return "", err
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		logger.Debug("resolved download tools",
			slog.String("yt-dlp", ytdlpPath),
			slog.String("yt-dlp_version", env.ToolResolver.YTDLPVersion(ctx, ytdlpPath)),
			slog.String("ffmpeg", ffmpegPath))
	}

	dl, err := env.DownloaderFactory.NewDownloader(ytdlpPath, ffmpegPath, logger)
	if err != nil {
		return "", err
	}

	fmt.Fprintf(env.Stderr, "Downloading %s...\n", url)
	path, err := dl.Download(ctx, url, outDir)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(env.Stderr, "Downloaded %s\n", path)
	return path, nil
}

// lazySplitter resolves ffmpeg and builds the real splitter on first use,
// so a transcription that never falls back does not need ffmpeg at all.
type lazySplitter struct {
	env    *Env
	chunk  time.Duration
	logger *slog.Logger

	once     sync.Once
	splitter transcribe.Splitter
	err      error
}

func (s *lazySplitter) Split(ctx context.Context, audioPath string) (*audio.Segments, error) {
	s.once.Do(func() {
		s.splitter, s.err = s.build(ctx)
	})
	if s.err != nil {
		return nil, s.err
	}
	return s.splitter.Split(ctx, audioPath)
}

func (s *lazySplitter) build(ctx context.Context) (transcribe.Splitter, error) {
	ffmpegPath, err := s.env.ToolResolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	s.env.ToolResolver.CheckVersion(ctx, ffmpegPath)

	ffprobePath, err := s.env.ToolResolver.ResolveProbe(ffmpegPath)
	if err != nil {
		if !errors.Is(err, ffmpeg.ErrProbeNotFound) {
			return nil, err
		}
		s.logger.Debug("ffprobe not found, reading durations from ffmpeg")
		ffprobePath = ""
	}

	return s.env.SplitterFactory.NewSplitter(SplitterSettings{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		Chunk:       s.chunk,
		TempDirs:    s.env.TempDirs,
		Logger:      s.logger,
	})
}

var _ transcribe.Splitter = (*lazySplitter)(nil)
