package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alnah/go-podscribe/internal/transcript"
)

// Format is an output format name.
type Format string

// Supported output formats.
const (
	Text Format = "txt"
	SRT  Format = "srt"
	VTT  Format = "vtt"
	JSON Format = "json"
)

var formats = []Format{Text, SRT, VTT, JSON}

// Names returns the supported format names, comma separated.
func Names() string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// ParseFormat validates a format name (case-insensitive).
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnsupportedFormat, name, Names())
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

type renderOptions struct {
	highlightWords bool
}

// RenderOption configures Render.
type RenderOption func(*renderOptions)

// WithHighlightWords renders one subtitle cue per token, with the current
// word emphasized (<u> in srt, <b> in vtt). Ignored by txt and json.
func WithHighlightWords() RenderOption {
	return func(o *renderOptions) {
		o.highlightWords = true
	}
}

// Render converts t into the content of an output file in format f.
func Render(f Format, t transcript.Transcript, opts ...RenderOption) (string, error) {
	var o renderOptions
	for _, opt := range opts {
		opt(&o)
	}

	switch f {
	case Text:
		return strings.TrimSpace(t.Text), nil
	case SRT:
		return renderSRT(t, o.highlightWords), nil
	case VTT:
		return renderVTT(t, o.highlightWords), nil
	case JSON:
		return renderJSON(t)
	default:
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnsupportedFormat, string(f), Names())
	}
}

// cue is one timed subtitle entry.
type cue struct {
	start, end float64
	text       string
}

// cues flattens t into subtitle entries: one per sentence, or one per token
// when highlighting. A highlighted token lasts until the next token starts.
func cues(t transcript.Transcript, highlight bool, openTag, closeTag string) []cue {
	var out []cue
	for _, s := range t.Sentences {
		if !highlight {
			out = append(out, cue{start: s.Start, end: s.End, text: strings.TrimSpace(s.Text)})
			continue
		}
		for i, tok := range s.Tokens {
			end := tok.End
			if i < len(s.Tokens)-1 {
				end = s.Tokens[i+1].Start
			}
			var b strings.Builder
			for j, other := range s.Tokens {
				if j == i {
					b.WriteString(emphasize(other.Text, openTag, closeTag))
				} else {
					b.WriteString(other.Text)
				}
			}
			out = append(out, cue{start: tok.Start, end: end, text: strings.TrimSpace(b.String())})
		}
	}
	return out
}

// emphasize wraps the non-space part of a token, keeping its leading space.
func emphasize(text, openTag, closeTag string) string {
	word := strings.TrimSpace(text)
	if word == "" {
		return text
	}
	return strings.Replace(text, word, openTag+word+closeTag, 1)
}

func renderSRT(t transcript.Transcript, highlight bool) string {
	var lines []string
	for i, c := range cues(t, highlight, "<u>", "</u>") {
		lines = append(lines,
			strconv.Itoa(i+1),
			Timestamp(c.start, ',')+" --> "+Timestamp(c.end, ','),
			c.text,
			"",
		)
	}
	return strings.Join(lines, "\n")
}

func renderVTT(t transcript.Transcript, highlight bool) string {
	lines := []string{"WEBVTT", ""}
	for _, c := range cues(t, highlight, "<b>", "</b>") {
		lines = append(lines,
			Timestamp(c.start, '.')+" --> "+Timestamp(c.end, '.'),
			c.text,
			"",
		)
	}
	return strings.Join(lines, "\n")
}

// Timestamp formats seconds as HH:MM:SS<marker>mmm, rounded to the nearest
// millisecond. Negative values clamp to zero.
func Timestamp(seconds float64, marker byte) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	s := ms / 1_000
	ms %= 1_000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, marker, ms)
}

type jsonToken struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

type jsonSentence struct {
	Text     string      `json:"text"`
	Start    float64     `json:"start"`
	End      float64     `json:"end"`
	Duration float64     `json:"duration"`
	Tokens   []jsonToken `json:"tokens"`
}

type jsonTranscript struct {
	Text      string         `json:"text"`
	Sentences []jsonSentence `json:"sentences"`
}

func renderJSON(t transcript.Transcript) (string, error) {
	doc := jsonTranscript{
		Text:      t.Text,
		Sentences: make([]jsonSentence, 0, len(t.Sentences)),
	}
	for _, s := range t.Sentences {
		js := jsonSentence{
			Text:     s.Text,
			Start:    round3(s.Start),
			End:      round3(s.End),
			Duration: round3(s.Duration),
			Tokens:   make([]jsonToken, 0, len(s.Tokens)),
		}
		for _, tok := range s.Tokens {
			js.Tokens = append(js.Tokens, jsonToken{
				Text:     tok.Text,
				Start:    round3(tok.Start),
				End:      round3(tok.End),
				Duration: round3(tok.Duration),
			})
		}
		doc.Sentences = append(doc.Sentences, js)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode json transcript: %w", err)
	}
	return buf.String(), nil
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}
