package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// minFFmpegMajorVersion is the oldest ffmpeg whose segment muxer behaves as expected.
const minFFmpegMajorVersion = 4

// ---------------------------------------------------------------------------
// Executor - testable tool execution with dependency injection
// ---------------------------------------------------------------------------

// runOutputFn is the function type for running a command and capturing output.
type runOutputFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs media tools with injectable dependencies.
type Executor struct {
	runOutput runOutputFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunOutput sets a custom runOutput function (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{runOutput: defaultRunOutput}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput executes a tool and captures its combined stdout and stderr.
func (e *Executor) RunOutput(ctx context.Context, path string, args []string) (string, error) {
	return e.runOutput(ctx, path, args)
}

// defaultRunOutput returns the output even when the command fails: ffmpeg
// exits non-zero for informational invocations that still print what we need.
func defaultRunOutput(ctx context.Context, path string, args []string) (string, error) {
	// #nosec G204 -- path is a resolved binary and args are fixed by callers
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	return string(out), err
}

// ---------------------------------------------------------------------------
// VersionChecker - minimum version warnings
// ---------------------------------------------------------------------------

// VersionChecker verifies tool version requirements.
type VersionChecker struct {
	executor *Executor
	stderr   io.Writer
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionExecutor sets the executor for running tools.
func WithVersionExecutor(e *Executor) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.executor = e }
}

// WithVersionStderr sets the writer for warning messages.
func WithVersionStderr(w io.Writer) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.stderr = w }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		executor: NewExecutor(),
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// Check verifies that ffmpeg meets minimum version requirements.
// Prints a warning to stderr if version is below minimum but doesn't fail.
// Returns true if version was successfully checked, false if parsing failed.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) bool {
	output, err := vc.executor.RunOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && output == "" {
		return false
	}

	first, _, _ := strings.Cut(output, "\n")
	if first == "" {
		return false
	}

	// "ffmpeg version 6.1.1 Copyright..." or "ffmpeg version n6.1.1..."
	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err != nil {
		if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err != nil {
			return false
		}
	}

	if major < minFFmpegMajorVersion {
		fmt.Fprintf(vc.stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			major, minFFmpegMajorVersion)
	}
	return true
}

// YTDLPVersion returns the version string yt-dlp reports (e.g. "2025.01.15"),
// or "" when it cannot be determined.
func (vc *VersionChecker) YTDLPVersion(ctx context.Context, ytdlpPath string) string {
	output, err := vc.executor.RunOutput(ctx, ytdlpPath, []string{"--version"})
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(first)
}
