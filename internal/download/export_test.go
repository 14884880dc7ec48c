package download

import (
	"context"
	"time"
)

// CommandRunner mirrors the internal yt-dlp runner interface.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

// WithCommandRunner replaces the yt-dlp runner.
func WithCommandRunner(r CommandRunner) Option {
	return func(d *Downloader) { d.runner = r }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Downloader) { d.now = now }
}

// Args exposes the yt-dlp invocation.
func (d *Downloader) Args(rawURL, outDir string) []string {
	return d.args(rawURL, outDir)
}

var PrintedPath = printedPath
