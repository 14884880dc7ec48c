package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/alnah/go-podscribe/internal/audio"
	"github.com/alnah/go-podscribe/internal/logging"
	"github.com/alnah/go-podscribe/internal/transcript"
)

// Splitter cuts an audio file into chronological segments.
// *audio.Segmenter implements it.
type Splitter interface {
	Split(ctx context.Context, audioPath string) (*audio.Segments, error)
}

var _ Splitter = (*audio.Segmenter)(nil)

// SegmentEvent reports a transcribed segment during the fallback.
type SegmentEvent struct {
	Segment audio.Segment
	Total   int
	Offset  float64 // Seconds added to the segment's timestamps.
	Elapsed time.Duration
}

type fallbackConfig struct {
	logger *slog.Logger
	onSeg  func(SegmentEvent)
	notice func(error)
	now    func() time.Time
}

// FallbackOption configures TranscribeWithFallback.
type FallbackOption func(*fallbackConfig)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) FallbackOption {
	return func(c *fallbackConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSegmentHook is called after each segment is transcribed.
func WithSegmentHook(fn func(SegmentEvent)) FallbackOption {
	return func(c *fallbackConfig) { c.onSeg = fn }
}

// WithFallbackNotice is called once, with the capacity error, when the
// whole-file attempt fails and segmentation starts.
func WithFallbackNotice(fn func(err error)) FallbackOption {
	return func(c *fallbackConfig) { c.notice = fn }
}

// TranscribeWithFallback transcribes audioPath in one pass and, when the
// backend runs out of capacity, splits it and transcribes the segments one
// at a time. Segment timestamps are shifted by the summed durations of the
// preceding segments; a segment whose duration is unknown advances the
// offset by chunk. Errors other than capacity errors are returned as-is.
//
// A capacity failure on a segment is not split further.
func TranscribeWithFallback(
	ctx context.Context,
	audioPath string,
	backend Backend,
	splitter Splitter,
	chunk time.Duration,
	opts ...FallbackOption,
) (transcript.Transcript, error) {
	cfg := fallbackConfig{logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if chunk <= 0 {
		chunk = audio.DefaultChunk
	}

	raw, err := backend.Transcribe(ctx, audioPath)
	if err == nil {
		return transcript.Normalize(raw), nil
	}
	if !IsCapacityError(err) {
		return transcript.Transcript{}, err
	}

	cfg.logger.Warn("backend out of capacity, transcribing in segments",
		slog.String("path", audioPath),
		slog.Duration("chunk", chunk),
		logging.Error(err))
	if cfg.notice != nil {
		cfg.notice(err)
	}
	return transcribeSegments(ctx, audioPath, backend, splitter, chunk, cfg)
}

func transcribeSegments(
	ctx context.Context,
	audioPath string,
	backend Backend,
	splitter Splitter,
	chunk time.Duration,
	cfg fallbackConfig,
) (transcript.Transcript, error) {
	segs, err := splitter.Split(ctx, audioPath)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("split audio: %w", err)
	}
	defer func() {
		if err := segs.Cleanup(); err != nil {
			cfg.logger.Warn("failed to remove segments", slog.String("dir", segs.Dir), logging.Error(err))
		}
	}()

	parts := make([]transcript.Transcript, 0, len(segs.Parts))
	var offset float64
	for _, seg := range segs.Parts {
		if err := ctx.Err(); err != nil {
			return transcript.Transcript{}, err
		}

		start := cfg.now()
		raw, err := backend.Transcribe(ctx, seg.Path)
		if err != nil {
			return transcript.Transcript{}, fmt.Errorf("segment %d/%d (%s): %w",
				seg.Index+1, len(segs.Parts), filepath.Base(seg.Path), err)
		}
		parts = append(parts, transcript.ApplyOffset(transcript.Normalize(raw), offset))

		if cfg.onSeg != nil {
			cfg.onSeg(SegmentEvent{
				Segment: seg,
				Total:   len(segs.Parts),
				Offset:  offset,
				Elapsed: cfg.now().Sub(start),
			})
		}

		step := seg.Duration
		if step <= 0 {
			cfg.logger.Warn("segment duration unknown, advancing by chunk length",
				slog.Int("segment", seg.Index),
				slog.Duration("chunk", chunk))
			step = chunk
		}
		offset += step.Seconds()
	}

	merged := transcript.Merge(parts...)
	if !merged.Chronological() {
		cfg.logger.Warn("merged transcript is not chronological", slog.String("path", audioPath))
	}
	return merged, nil
}
