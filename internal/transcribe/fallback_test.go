package transcribe_test

// Notes:
// - The backend and splitter are scripted mocks, so these tests cover the
//   orchestration (offsets, ordering, cleanup) without running ffmpeg
// - Raw results are built as decoded JSON would be: []any of map[string]any

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-podscribe/internal/audio"
	"github.com/alnah/go-podscribe/internal/transcribe"
	"github.com/alnah/go-podscribe/internal/transcript"
)

var errOOM = errors.New("[metal::malloc] Attempting to allocate 12884901888 bytes")

// rawAt returns a one-sentence raw result starting at start seconds.
func rawAt(text string, start float64) transcript.Raw {
	return transcript.Raw{
		"text": text,
		"sentences": []any{
			map[string]any{
				"text": text, "start": start, "end": start + 1, "duration": 1.0,
				"tokens": []any{
					map[string]any{"text": text, "start": start, "end": start + 1, "duration": 1.0},
				},
			},
		},
	}
}

func segmentsOf(durations ...time.Duration) []audio.Segment {
	parts := make([]audio.Segment, len(durations))
	for i, d := range durations {
		parts[i] = audio.Segment{Path: "/seg/part-" + string(rune('0'+i)) + ".mp3", Index: i, Duration: d}
	}
	return parts
}

func sentenceStarts(t transcript.Transcript) []float64 {
	starts := make([]float64, 0, len(t.Sentences))
	for _, s := range t.Sentences {
		starts = append(starts, s.Start)
	}
	return starts
}

// ---------------------------------------------------------------------------
// TranscribeWithFallback - whole-file path
// ---------------------------------------------------------------------------

func TestTranscribeWithFallback_WholeFile(t *testing.T) {
	t.Parallel()

	t.Run("success is normalized without splitting", func(t *testing.T) {
		t.Parallel()

		backend := &mockBackend{results: map[string]backendResult{
			"/in.mp3": {raw: rawAt("hello", 0.5)},
		}}
		splitter := &mockSplitter{}

		got, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend, splitter, 0)
		if err != nil {
			t.Fatalf("TranscribeWithFallback() unexpected error: %v", err)
		}
		if got.Text != "hello" || len(got.Sentences) != 1 || got.Sentences[0].Start != 0.5 {
			t.Errorf("TranscribeWithFallback() = %+v, want normalized whole-file result", got)
		}
		if splitter.Splits() != 0 {
			t.Errorf("Split called %d times, want 0", splitter.Splits())
		}
	})

	t.Run("non-capacity error propagates unchanged", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("model not found")
		backend := &mockBackend{results: map[string]backendResult{"/in.mp3": {err: boom}}}
		splitter := &mockSplitter{}

		_, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend, splitter, 0)
		if err != boom {
			t.Errorf("TranscribeWithFallback() error = %v, want %v unchanged", err, boom)
		}
		if splitter.Splits() != 0 {
			t.Errorf("Split called %d times, want 0", splitter.Splits())
		}
	})
}

// ---------------------------------------------------------------------------
// TranscribeWithFallback - segmented path
// ---------------------------------------------------------------------------

func TestTranscribeWithFallback_Segments(t *testing.T) {
	t.Parallel()

	t.Run("offsets accumulate probed durations", func(t *testing.T) {
		t.Parallel()

		parts := segmentsOf(600*time.Second, 600*time.Second, 300*time.Second)
		backend := &mockBackend{results: map[string]backendResult{
			"/in.mp3":     {err: errOOM},
			parts[0].Path: {raw: rawAt("one", 1)},
			parts[1].Path: {raw: rawAt(" two ", 1)},
			parts[2].Path: {raw: rawAt("three", 1)},
		}}
		splitter := &mockSplitter{parts: parts}

		var notices []error
		var events []transcribe.SegmentEvent
		got, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend, splitter, 600*time.Second,
			transcribe.WithFallbackNotice(func(err error) { notices = append(notices, err) }),
			transcribe.WithSegmentHook(func(ev transcribe.SegmentEvent) { events = append(events, ev) }),
		)
		if err != nil {
			t.Fatalf("TranscribeWithFallback() unexpected error: %v", err)
		}

		if want := []float64{1, 601, 1201}; !reflect.DeepEqual(sentenceStarts(got), want) {
			t.Errorf("sentence starts = %v, want %v", sentenceStarts(got), want)
		}
		if tok := got.Sentences[2].Tokens[0]; tok.Start != 1201 || tok.Duration != 1 {
			t.Errorf("last token = %+v, want start 1201 and duration 1", tok)
		}
		if want := "one\n\ntwo\n\nthree"; got.Text != want {
			t.Errorf("Text = %q, want %q", got.Text, want)
		}
		if !got.Chronological() {
			t.Error("Chronological() = false, want true")
		}

		wantCalls := []string{"/in.mp3", parts[0].Path, parts[1].Path, parts[2].Path}
		if !reflect.DeepEqual(backend.Calls(), wantCalls) {
			t.Errorf("backend calls = %v, want %v", backend.Calls(), wantCalls)
		}
		if len(notices) != 1 || !errors.Is(notices[0], errOOM) {
			t.Errorf("notices = %v, want one capacity notice", notices)
		}
		var offsets []float64
		for _, ev := range events {
			offsets = append(offsets, ev.Offset)
			if ev.Total != 3 {
				t.Errorf("event Total = %d, want 3", ev.Total)
			}
		}
		if want := []float64{0, 600, 1200}; !reflect.DeepEqual(offsets, want) {
			t.Errorf("event offsets = %v, want %v", offsets, want)
		}
		if splitter.Released() != 1 {
			t.Errorf("segments released %d times, want 1", splitter.Released())
		}
	})

	t.Run("unknown duration advances by chunk", func(t *testing.T) {
		t.Parallel()

		parts := segmentsOf(0, 100*time.Second, 0)
		backend := &mockBackend{results: map[string]backendResult{
			"/in.mp3":     {err: errOOM},
			parts[0].Path: {raw: rawAt("a", 0)},
			parts[1].Path: {raw: rawAt("b", 0)},
			parts[2].Path: {raw: rawAt("c", 0)},
		}}

		got, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend,
			&mockSplitter{parts: parts}, 300*time.Second)
		if err != nil {
			t.Fatalf("TranscribeWithFallback() unexpected error: %v", err)
		}
		if want := []float64{0, 300, 400}; !reflect.DeepEqual(sentenceStarts(got), want) {
			t.Errorf("sentence starts = %v, want %v", sentenceStarts(got), want)
		}
	})

	t.Run("non-positive chunk uses default", func(t *testing.T) {
		t.Parallel()

		parts := segmentsOf(0, 0)
		backend := &mockBackend{results: map[string]backendResult{
			"/in.mp3":     {err: errOOM},
			parts[0].Path: {raw: rawAt("a", 0)},
			parts[1].Path: {raw: rawAt("b", 0)},
		}}

		got, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend,
			&mockSplitter{parts: parts}, 0)
		if err != nil {
			t.Fatalf("TranscribeWithFallback() unexpected error: %v", err)
		}
		if want := []float64{0, audio.DefaultChunk.Seconds()}; !reflect.DeepEqual(sentenceStarts(got), want) {
			t.Errorf("sentence starts = %v, want %v", sentenceStarts(got), want)
		}
	})

	t.Run("empty segment results merge to empty transcript", func(t *testing.T) {
		t.Parallel()

		parts := segmentsOf(10 * time.Second)
		backend := &mockBackend{results: map[string]backendResult{
			"/in.mp3":     {err: transcribe.ErrCapacity},
			parts[0].Path: {raw: transcript.Raw{}},
		}}

		got, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend,
			&mockSplitter{parts: parts}, 0)
		if err != nil {
			t.Fatalf("TranscribeWithFallback() unexpected error: %v", err)
		}
		if got.Text != "" || got.Sentences == nil || len(got.Sentences) != 0 {
			t.Errorf("TranscribeWithFallback() = %#v, want empty transcript", got)
		}
	})
}

// ---------------------------------------------------------------------------
// TranscribeWithFallback - failure paths
// ---------------------------------------------------------------------------

func TestTranscribeWithFallback_Failures(t *testing.T) {
	t.Parallel()

	t.Run("segment failure releases segments", func(t *testing.T) {
		t.Parallel()

		parts := segmentsOf(600*time.Second, 600*time.Second, 600*time.Second)
		boom := errors.New("decoder crashed")
		backend := &mockBackend{results: map[string]backendResult{
			"/in.mp3":     {err: errOOM},
			parts[0].Path: {raw: rawAt("a", 0)},
			parts[1].Path: {err: boom},
		}}
		splitter := &mockSplitter{parts: parts}

		_, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend, splitter, 0)
		if !errors.Is(err, boom) {
			t.Fatalf("TranscribeWithFallback() error = %v, want %v", err, boom)
		}
		if !strings.Contains(err.Error(), "segment 2/3") {
			t.Errorf("error = %q, want segment position", err)
		}
		if splitter.Released() != 1 {
			t.Errorf("segments released %d times, want 1", splitter.Released())
		}
		if n := len(backend.Calls()); n != 3 {
			t.Errorf("backend called %d times, want 3 (stops at failing segment)", n)
		}
	})

	t.Run("capacity failure on a segment is not split again", func(t *testing.T) {
		t.Parallel()

		parts := segmentsOf(600 * time.Second)
		backend := &mockBackend{results: map[string]backendResult{
			"/in.mp3":     {err: errOOM},
			parts[0].Path: {err: errOOM},
		}}
		splitter := &mockSplitter{parts: parts}

		_, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend, splitter, 0)
		if !transcribe.IsCapacityError(err) {
			t.Fatalf("TranscribeWithFallback() error = %v, want capacity error", err)
		}
		if splitter.Splits() != 1 {
			t.Errorf("Split called %d times, want 1", splitter.Splits())
		}
		if splitter.Released() != 1 {
			t.Errorf("segments released %d times, want 1", splitter.Released())
		}
	})

	t.Run("split failure", func(t *testing.T) {
		t.Parallel()

		backend := &mockBackend{results: map[string]backendResult{"/in.mp3": {err: errOOM}}}
		splitter := &mockSplitter{err: audio.ErrSegmentationFailed}

		_, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend, splitter, 0)
		if !errors.Is(err, audio.ErrSegmentationFailed) {
			t.Errorf("TranscribeWithFallback() error = %v, want ErrSegmentationFailed", err)
		}
	})

	t.Run("cancellation between segments", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		parts := segmentsOf(600*time.Second, 600*time.Second)
		backend := &mockBackend{results: map[string]backendResult{
			"/in.mp3":     {err: errOOM},
			parts[0].Path: {raw: rawAt("a", 0)},
			parts[1].Path: {raw: rawAt("b", 0)},
		}}
		backend.onCall = func(path string) {
			if path == parts[0].Path {
				cancel()
			}
		}
		splitter := &mockSplitter{parts: parts}

		_, err := transcribe.TranscribeWithFallback(ctx, "/in.mp3", backend, splitter, 0)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("TranscribeWithFallback() error = %v, want context.Canceled", err)
		}
		if n := len(backend.Calls()); n != 2 {
			t.Errorf("backend called %d times, want 2", n)
		}
		if splitter.Released() != 1 {
			t.Errorf("segments released %d times, want 1", splitter.Released())
		}
	})

	t.Run("cleanup failure does not mask result", func(t *testing.T) {
		t.Parallel()

		parts := segmentsOf(60 * time.Second)
		backend := &mockBackend{results: map[string]backendResult{
			"/in.mp3":     {err: errOOM},
			parts[0].Path: {raw: rawAt("a", 0)},
		}}
		splitter := &mockSplitter{parts: parts, releaseFn: func(string) error { return errors.New("busy") }}

		got, err := transcribe.TranscribeWithFallback(context.Background(), "/in.mp3", backend, splitter, 0)
		if err != nil {
			t.Fatalf("TranscribeWithFallback() unexpected error: %v", err)
		}
		if got.Text != "a" {
			t.Errorf("Text = %q, want %q", got.Text, "a")
		}
	})
}
