// Package audio splits long recordings into copy-only segments with ffmpeg
// and probes their durations.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-podscribe/internal/ffmpeg"
	"github.com/alnah/go-podscribe/internal/format"
	"github.com/alnah/go-podscribe/internal/logging"
)

// Default segmentation parameters.
const (
	// DefaultChunk is the target segment duration.
	DefaultChunk = 10 * time.Minute

	// defaultProbeConcurrency bounds parallel duration probes.
	defaultProbeConcurrency = 4

	// segmentPrefix names the part files; the zero-padded index keeps
	// lexical order equal to chronological order.
	segmentPrefix = "part-"

	tempDirPattern = "podscribe-seg-*"

	defaultSegmentExt = ".mp3"
)

// Segment is one contiguous slice of the source audio, stored in its own file.
type Segment struct {
	Path  string // Absolute path to the segment file.
	Index int    // Zero-based position in the source audio.

	// Duration is the probed length, or 0 when probing failed.
	Duration time.Duration
}

// String returns a human-readable representation for logging.
func (s Segment) String() string {
	return fmt.Sprintf("segment %d (%s)", s.Index, format.Duration(s.Duration))
}

// Segments owns the temporary directory holding the segment files.
// The caller must call Cleanup once the segments have been consumed.
type Segments struct {
	Dir   string
	Parts []Segment

	once     sync.Once
	cleanErr error
	release  func(dir string) error
}

// NewSegments wraps already-split parts. release is called once by Cleanup
// with dir; nil leaves the directory in place.
func NewSegments(dir string, parts []Segment, release func(dir string) error) *Segments {
	return &Segments{Dir: dir, Parts: parts, release: release}
}

// Cleanup removes the segment directory. It is safe to call more than once.
func (s *Segments) Cleanup() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if s.release != nil {
			s.cleanErr = s.release(s.Dir)
		}
	})
	return s.cleanErr
}

// Segmenter splits audio into fixed-duration segments without re-encoding.
type Segmenter struct {
	ffmpegPath       string
	chunk            time.Duration
	prober           Prober
	probeConcurrency int
	tempDirs         *TempDirs
	logger           *slog.Logger

	// Injectable dependencies (defaults to OS implementations).
	cmd     commandRunner
	tempDir tempDirCreator
	stat    fileStatter
	files   fileRemover
	dir     dirReader
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithProber sets how segment durations are measured.
// Defaults to an FFmpegProber using the segmenter's ffmpeg binary.
func WithProber(p Prober) SegmenterOption {
	return func(s *Segmenter) {
		s.prober = p
	}
}

// WithProbeConcurrency bounds the number of parallel duration probes.
func WithProbeConcurrency(n int) SegmenterOption {
	return func(s *Segmenter) {
		if n > 0 {
			s.probeConcurrency = n
		}
	}
}

// WithTempDirs registers segment directories with r until they are cleaned up.
func WithTempDirs(r *TempDirs) SegmenterOption {
	return func(s *Segmenter) {
		s.tempDirs = r
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) SegmenterOption {
	return func(s *Segmenter) {
		s.logger = logging.NewComponentLogger(l, "audio")
	}
}

// WithCommandRunner sets the command runner used for ffmpeg.
func WithCommandRunner(r commandRunner) SegmenterOption {
	return func(s *Segmenter) {
		s.cmd = r
	}
}

// WithTempDirCreator sets the temp directory creator.
func WithTempDirCreator(t tempDirCreator) SegmenterOption {
	return func(s *Segmenter) {
		s.tempDir = t
	}
}

// WithFileStatter sets the file statter used to check the input.
func WithFileStatter(f fileStatter) SegmenterOption {
	return func(s *Segmenter) {
		s.stat = f
	}
}

// WithFileRemover sets the remover used on failure paths and by Cleanup.
func WithFileRemover(f fileRemover) SegmenterOption {
	return func(s *Segmenter) {
		s.files = f
	}
}

// NewSegmenter creates a Segmenter. A non-positive chunk uses DefaultChunk.
func NewSegmenter(ffmpegPath string, chunk time.Duration, opts ...SegmenterOption) (*Segmenter, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}
	if chunk <= 0 {
		chunk = DefaultChunk
	}

	s := &Segmenter{
		ffmpegPath:       ffmpegPath,
		chunk:            chunk,
		probeConcurrency: defaultProbeConcurrency,
		logger:           logging.NewComponentLogger(nil, "audio"),
		cmd:              osCommandRunner{},
		tempDir:          osTempDirCreator{},
		stat:             osFileStatter{},
		files:            osFileRemover{},
		dir:              osDirReader{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prober == nil {
		s.prober = &FFmpegProber{ffmpegPath: ffmpegPath, cmd: s.cmd}
	}
	return s, nil
}

// Chunk returns the target segment duration.
func (s *Segmenter) Chunk() time.Duration {
	return s.chunk
}

// Split cuts inputPath into consecutive segments of at most Chunk() each
// (the muxer cuts on packet boundaries, so parts may run slightly long),
// then probes every part's duration. A failed probe is logged and reported
// as a zero Duration.
//
// The returned Segments are not removed automatically: the caller owns them.
// On error nothing is left on disk.
func (s *Segmenter) Split(ctx context.Context, inputPath string) (*Segments, error) {
	if _, err := s.stat.Stat(inputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
		}
		return nil, fmt.Errorf("stat input %s: %w", inputPath, err)
	}

	dir, err := s.tempDir.MkdirTemp("", tempDirPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	segs := NewSegments(dir, nil, s.releaseFunc())
	if s.tempDirs != nil {
		s.tempDirs.Add(dir)
	}

	parts, err := s.split(ctx, inputPath, dir)
	if err != nil {
		_ = segs.Cleanup() // best-effort cleanup; original error takes precedence
		return nil, err
	}
	segs.Parts = parts
	return segs, nil
}

func (s *Segmenter) releaseFunc() func(string) error {
	if s.tempDirs != nil {
		return s.tempDirs.Release
	}
	return s.files.RemoveAll
}

func (s *Segmenter) split(ctx context.Context, inputPath, dir string) ([]Segment, error) {
	ext := segmentExt(inputPath)
	pattern := filepath.Join(dir, segmentPrefix+"%05d"+ext)

	output, err := s.cmd.CombinedOutput(ctx, s.ffmpegPath, segmentArgs(inputPath, pattern, s.chunk))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v: %s",
			ErrSegmentationFailed, inputPath, err, strings.TrimSpace(string(output)))
	}

	paths, err := s.listParts(dir, ext)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s: ffmpeg produced no segments", ErrSegmentationFailed, inputPath)
	}

	parts := s.probeAll(ctx, paths)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}

// segmentArgs builds the ffmpeg segment-muxer invocation.
// Audio streams are copied as-is (no re-encode); cover art and other
// streams are dropped.
func segmentArgs(inputPath, pattern string, chunk time.Duration) []string {
	return []string{
		"-nostdin",
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-map", "0:a",
		"-f", "segment",
		"-segment_time", strconv.FormatFloat(chunk.Seconds(), 'f', -1, 64),
		"-c", "copy",
		pattern,
	}
}

// segmentExt keeps the input container so that stream copy stays valid.
func segmentExt(inputPath string) string {
	ext := strings.ToLower(filepath.Ext(inputPath))
	if ext == "" {
		return defaultSegmentExt
	}
	return ext
}

// listParts returns the segment files in dir, in chronological order.
func (s *Segmenter) listParts(dir, ext string) ([]string, error) {
	entries, err := s.dir.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list segments in %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		// ReadDir sorts by filename; zero padding makes that chronological.
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// probeAll measures every part in parallel. Results are stored by index,
// so the returned order never depends on completion order.
func (s *Segmenter) probeAll(ctx context.Context, paths []string) []Segment {
	parts := make([]Segment, len(paths))
	var g errgroup.Group
	g.SetLimit(s.probeConcurrency)
	for i, path := range paths {
		parts[i] = Segment{Path: path, Index: i}
		g.Go(func() error {
			d, err := s.prober.Probe(ctx, path)
			if err != nil {
				s.logger.Warn("segment duration unavailable",
					slog.Int("segment", i),
					slog.String("path", path),
					logging.Error(err))
				return nil
			}
			parts[i].Duration = d
			return nil
		})
	}
	_ = g.Wait() // probe goroutines never fail
	return parts
}
