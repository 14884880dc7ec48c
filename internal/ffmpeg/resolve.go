// Package ffmpeg locates the external media tools podscribe drives:
// ffmpeg (downloaded on demand when missing), ffprobe and yt-dlp.
package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	// downloadTimeout is the maximum time allowed for downloading ffmpeg.
	// Binary is ~20-30MB compressed, allowing for slow connections.
	downloadTimeout = 10 * time.Minute

	// installDirPerm is the permission mode for the install directory.
	installDirPerm = 0o750

	binaryExtWindows = ".exe"
)

// defaultHTTPClient is a dedicated HTTP client for FFmpeg downloads with explicit timeouts.
var defaultHTTPClient = &http.Client{
	Timeout: downloadTimeout,
	Transport: &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	},
}

// Resolver finds the media tools and installs ffmpeg when it is missing.
type Resolver struct {
	reader       fileReader
	writer       fileWriter
	http         httpDoer
	env          envProvider
	stderr       io.Writer
	goos         string
	goarch       string
	platformInfo *binaryInfo // Override for testing; nil uses getPlatformInfo
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileReader sets the file reader implementation.
func WithFileReader(r fileReader) ResolverOption {
	return func(res *Resolver) { res.reader = r }
}

// WithFileWriter sets the file writer implementation.
func WithFileWriter(w fileWriter) ResolverOption {
	return func(res *Resolver) { res.writer = w }
}

// WithHTTPClient sets the HTTP client implementation.
func WithHTTPClient(c httpDoer) ResolverOption {
	return func(res *Resolver) { res.http = c }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(res *Resolver) { res.env = e }
}

// WithStderr sets the writer for status messages.
func WithStderr(w io.Writer) ResolverOption {
	return func(res *Resolver) { res.stderr = w }
}

// WithPlatform sets the target platform (for testing cross-platform behavior).
func WithPlatform(goos, goarch string) ResolverOption {
	return func(res *Resolver) {
		res.goos = goos
		res.goarch = goarch
	}
}

// NewResolver creates a Resolver with the given options.
// Uses production defaults if no options are provided.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		reader: osFS{},
		writer: osFS{},
		http:   defaultHTTPClient,
		env:    osEnv{},
		stderr: os.Stderr,
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. ~/.podscribe/bin/ffmpeg (installed by us, current version only)
//  3. System PATH
//  4. Auto-download if nothing found
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if envPath := r.env.Getenv(toolFFmpeg.envKey); envPath != "" {
		path, _, err := r.locate(toolFFmpeg)
		return path, err
	}

	installed, err := r.isInstalled()
	if err != nil {
		return "", err
	}
	if installed {
		return r.installedPath()
	}

	if path, found, _ := r.locate(toolFFmpeg); found {
		return path, nil
	}

	fmt.Fprintln(r.stderr, "ffmpeg not found, downloading...")
	if err := r.downloadAndInstall(ctx); err != nil {
		return "", fmt.Errorf("%w: auto-download failed: %v\n\n%s",
			ErrNotFound, err, r.manualInstallInstructions())
	}
	return r.installedPath()
}

// exeName appends the Windows executable extension when needed.
func (r *Resolver) exeName(name string) string {
	if r.goos == "windows" {
		return name + binaryExtWindows
	}
	return name
}

// installDir returns the directory where ffmpeg is installed.
func (r *Resolver) installDir() (string, error) {
	home, err := r.env.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".podscribe", "bin"), nil
}

// installedPath returns the path where ffmpeg would be installed.
func (r *Resolver) installedPath() (string, error) {
	dir, err := r.installDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, r.exeName("ffmpeg")), nil
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions() string {
	return toolFFmpeg.instructions(r.goos)
}
