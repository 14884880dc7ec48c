package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-podscribe/internal/apierr"
	"github.com/alnah/go-podscribe/internal/audio"
	"github.com/alnah/go-podscribe/internal/cli"
	"github.com/alnah/go-podscribe/internal/config"
	"github.com/alnah/go-podscribe/internal/download"
	"github.com/alnah/go-podscribe/internal/ffmpeg"
	"github.com/alnah/go-podscribe/internal/format"
	"github.com/alnah/go-podscribe/internal/interrupt"
	"github.com/alnah/go-podscribe/internal/lang"
	"github.com/alnah/go-podscribe/internal/transcribe"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitDownload      = 6
	ExitInterrupt     = interrupt.ExitInterrupt
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	env := cli.DefaultEnv()

	// First Ctrl+C cancels the context, a second one within the window
	// removes segment directories and exits.
	handler, ctx := interrupt.NewHandler(context.Background())
	defer handler.Stop()
	handler.OnAbort(func() { _ = env.TempDirs.RemoveAll() })
	defer func() { _ = env.TempDirs.RemoveAll() }()

	rootCmd := newRootCmd(env)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if handler.WasInterrupted() {
			return ExitInterrupt
		}
		return exitCode(err)
	}
	return ExitOK
}

func newRootCmd(env *cli.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "podscribe",
		Short: "Transcribe podcasts and audio files with local or hosted speech models",
		Long: `Transcribe podcasts and audio files with local or hosted speech models.

Accepts a local audio file or a URL (downloaded with yt-dlp). When the
backend runs out of memory on a long recording, the audio is split into
fixed-length segments with ffmpeg and the segment transcripts are merged
with corrected timestamps.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.TranscribeCmd(env))
	rootCmd.AddCommand(cli.DownloadCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Cobra doesn't expose typed errors, so usage errors are matched by message.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	if isAny(err,
		ffmpeg.ErrNotFound, ffmpeg.ErrProbeNotFound, ffmpeg.ErrYTDLPNotFound,
		ffmpeg.ErrUnsupportedPlatform, ffmpeg.ErrChecksumMismatch, ffmpeg.ErrDownloadFailed,
		transcribe.ErrAPIKeyMissing,
	) {
		return ExitSetup
	}

	if isAny(err,
		cli.ErrFileNotFound, cli.ErrUnsupportedFormat, cli.ErrOutputExists,
		cli.ErrInvalidDevice, cli.ErrInvalidChunk, cli.ErrInvalidURL,
		format.ErrUnsupportedFormat, lang.ErrInvalid, transcribe.ErrInvalidBackend,
		config.ErrInvalidKey, config.ErrInvalidValue, config.ErrNotDirectory, config.ErrNotWritable,
		audio.ErrInputNotFound,
	) {
		return ExitValidation
	}

	if isAny(err,
		transcribe.ErrCapacity, transcribe.ErrBackendFailed,
		audio.ErrSegmentationFailed, audio.ErrProbeFailed,
		apierr.ErrRateLimit, apierr.ErrQuotaExceeded, apierr.ErrTimeout,
		apierr.ErrAuthFailed, apierr.ErrTooLarge, apierr.ErrBadRequest,
	) {
		return ExitTranscription
	}

	if errors.Is(err, download.ErrDownloadFailed) {
		return ExitDownload
	}

	return ExitGeneral
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
