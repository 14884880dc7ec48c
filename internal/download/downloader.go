// Package download fetches the audio track of a URL as MP3 with yt-dlp.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-podscribe/internal/apierr"
	"github.com/alnah/go-podscribe/internal/logging"
)

// Retry defaults: 5 attempts, waiting 1s, 2s, 4s, 8s between them.
const (
	defaultMaxRetries = 4
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 8 * time.Second
)

const (
	outputTemplate = "%(title)s.%(ext)s"
	audioExt       = ".mp3"

	// recentWindow tolerates coarse filesystem timestamps when looking for
	// the file yt-dlp just wrote.
	recentWindow = 2 * time.Second

	dirPerm = 0o750
)

// commandRunner executes yt-dlp.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

type osCommandRunner struct{}

func (osCommandRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- name is the resolved yt-dlp binary
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Downloader runs yt-dlp with retries.
type Downloader struct {
	ytdlpPath  string
	ffmpegPath string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
	runner     commandRunner
	now        func() time.Time
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithFFmpegLocation points yt-dlp at the ffmpeg used for MP3 extraction.
func WithFFmpegLocation(path string) Option {
	return func(d *Downloader) { d.ffmpegPath = path }
}

// WithRetry overrides the retry policy.
func WithRetry(maxRetries int, base, max time.Duration) Option {
	return func(d *Downloader) {
		if maxRetries >= 0 {
			d.maxRetries = maxRetries
		}
		if base > 0 {
			d.baseDelay = base
		}
		if max > 0 {
			d.maxDelay = max
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDownloader creates a Downloader for the yt-dlp binary at ytdlpPath.
func NewDownloader(ytdlpPath string, opts ...Option) (*Downloader, error) {
	if ytdlpPath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrNotFound)
	}
	d := &Downloader{
		ytdlpPath:  ytdlpPath,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		logger:     logging.NewNop(),
		runner:     osCommandRunner{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "download")
	return d, nil
}

// IsURL reports whether source is an http(s) URL rather than a local path.
func IsURL(source string) bool {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Download fetches the best audio of rawURL into outDir as MP3 and returns
// the file path.
func (d *Downloader) Download(ctx context.Context, rawURL, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, dirPerm); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	before, err := listMP3(outDir)
	if err != nil {
		return "", err
	}
	start := d.now()

	policy := apierr.Policy{
		Op:         "download",
		MaxRetries: d.maxRetries,
		BaseDelay:  d.baseDelay,
		MaxDelay:   d.maxDelay,
		Logger:     d.logger,
		Retryable: func(err error) bool {
			return errors.Is(err, ErrDownloadFailed) && ctx.Err() == nil
		},
	}
	stdout, err := apierr.Do(ctx, policy, func() ([]byte, error) {
		return d.run(ctx, rawURL, outDir)
	})
	if err != nil {
		return "", err
	}

	if path := printedPath(stdout); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	d.logger.Debug("yt-dlp printed no usable path, scanning output directory", slog.String("dir", outDir))
	path, err := newestMP3(outDir, before, start.Add(-recentWindow))
	if err != nil {
		return "", err
	}
	return path, nil
}

func (d *Downloader) run(ctx context.Context, rawURL, outDir string) ([]byte, error) {
	stdout, stderr, err := d.runner.Run(ctx, d.ytdlpPath, d.args(rawURL, outDir))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrDownloadFailed, rawURL, err, lastLine(stderr))
	}
	return stdout, nil
}

// args builds the yt-dlp invocation. --print after_move:filepath reports the
// final path once MP3 extraction is done.
func (d *Downloader) args(rawURL, outDir string) []string {
	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--output", filepath.Join(outDir, outputTemplate),
		"--no-playlist",
		"--no-progress",
		"--retries", "5",
		"--fragment-retries", "5",
		"--socket-timeout", "30",
		"--print", "after_move:filepath",
	}
	if d.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", d.ffmpegPath)
	}
	return append(args, "--", rawURL)
}

// printedPath returns the last non-empty stdout line when it names an MP3.
func printedPath(stdout []byte) string {
	line := lastLine(stdout)
	if strings.EqualFold(filepath.Ext(line), audioExt) {
		return line
	}
	return ""
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func listMP3(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), audioExt) {
			names[e.Name()] = true
		}
	}
	return names, nil
}

// newestMP3 picks the most recently modified MP3 that did not exist before
// the download, or failing that, one modified after since.
func newestMP3(dir string, before map[string]bool, since time.Time) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", dir, err)
	}

	var fresh, recent []os.DirEntry
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), audioExt) {
			continue
		}
		if !before[e.Name()] {
			fresh = append(fresh, e)
			continue
		}
		if info, err := e.Info(); err == nil && !info.ModTime().Before(since) {
			recent = append(recent, e)
		}
	}

	candidates := fresh
	if len(candidates) == 0 {
		candidates = recent
	}
	var best string
	var bestTime time.Time
	for _, e := range candidates {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = e.Name(), info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no new MP3 found in %s", ErrDownloadFailed, dir)
	}
	return filepath.Join(dir, best), nil
}
