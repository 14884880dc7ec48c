package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-podscribe/internal/config"
	"github.com/alnah/go-podscribe/internal/download"
	"github.com/alnah/go-podscribe/internal/logging"
)

// downloadOptions holds validated settings for the download command.
type downloadOptions struct {
	URL      string
	OutDir   string
	NoTiming bool
	Verbose  bool
}

// DownloadCmd creates the download command.
func DownloadCmd(env *Env) *cobra.Command {
	var (
		outDir   string
		noTiming bool
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download the audio of a URL as MP3",
		Long: `Download the best audio stream of a URL and convert it to MP3 with yt-dlp.

Transient failures are retried with exponential backoff.`,
		Example: `  podscribe download https://www.youtube.com/watch?v=dQw4w9WgXcQ
  podscribe download https://example.com/episode --out-dir ~/Podcasts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("out-dir") {
				cfg, err := env.ConfigLoader.Load()
				if err != nil {
					fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
				}
				outDir = cfg.OutputDir
			}
			return runDownload(cmd.Context(), env, downloadOptions{
				URL:      args[0],
				OutDir:   config.ExpandPath(outDir),
				NoTiming: noTiming,
				Verbose:  verbose,
			})
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory for the MP3 (default: current directory)")
	cmd.Flags().BoolVar(&noTiming, "no-timing", false, "Hide timing lines in the summary")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostic details to stderr")

	return cmd
}

// runDownload validates the URL and fetches it.
func runDownload(ctx context.Context, env *Env, opts downloadOptions) error {
	if !download.IsURL(opts.URL) {
		return fmt.Errorf("%w: not an http(s) URL: %q", ErrInvalidURL, opts.URL)
	}

	logger := logging.New(env.Stderr, opts.Verbose)
	start := env.Now()
	path, err := downloadAudio(ctx, env, logger, opts.URL, downloadDir(opts.OutDir))
	if err != nil {
		return err
	}

	fmt.Fprintln(env.Stderr, downloadPanel(path, env.Now().Sub(start), opts.NoTiming))
	return nil
}
