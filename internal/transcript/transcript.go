// Package transcript defines the timed transcript model shared by backends,
// the chunked-transcription fallback and the output renderers.
//
// All times are expressed in seconds. Backends hand back loosely typed Raw
// values; Normalize converts them into the strict model at the boundary so
// the rest of the program never touches backend-specific shapes.
package transcript

import (
	"strings"
)

// Token is the smallest timed unit produced by a backend (a word or subword).
type Token struct {
	Text     string
	Start    float64
	End      float64
	Duration float64
}

// Sentence is a timed span of speech with its tokens.
// Start and End bound the contained tokens; they are trusted from the backend.
type Sentence struct {
	Text     string
	Start    float64
	End      float64
	Duration float64
	Tokens   []Token
}

// Transcript is a full-text rendering plus its ordered sentences.
type Transcript struct {
	Text      string
	Sentences []Sentence
}

// Chronological reports whether sentence start times never decrease.
func (t Transcript) Chronological() bool {
	for i := 1; i < len(t.Sentences); i++ {
		if t.Sentences[i].Start < t.Sentences[i-1].Start {
			return false
		}
	}
	return true
}

// End returns the latest sentence end time, or 0 for an empty transcript.
func (t Transcript) End() float64 {
	var end float64
	for _, s := range t.Sentences {
		end = max(end, s.End)
	}
	return end
}

// Clone returns a deep copy of t.
func (t Transcript) Clone() Transcript {
	return ApplyOffset(t, 0)
}

// ApplyOffset returns a copy of t with every sentence and token Start/End
// shifted by seconds. Text and Duration fields are copied unchanged and t
// itself is never modified.
func ApplyOffset(t Transcript, seconds float64) Transcript {
	out := Transcript{
		Text:      t.Text,
		Sentences: make([]Sentence, len(t.Sentences)),
	}
	for i, s := range t.Sentences {
		shifted := Sentence{
			Text:     s.Text,
			Start:    s.Start + seconds,
			End:      s.End + seconds,
			Duration: s.Duration,
			Tokens:   make([]Token, len(s.Tokens)),
		}
		for j, tok := range s.Tokens {
			shifted.Tokens[j] = Token{
				Text:     tok.Text,
				Start:    tok.Start + seconds,
				End:      tok.End + seconds,
				Duration: tok.Duration,
			}
		}
		out.Sentences[i] = shifted
	}
	return out
}

// Merge combines ordered transcripts into one.
// Texts are trimmed, empty ones dropped, and the rest joined by a blank line.
// Sentences are concatenated in input order without re-sorting, so callers
// must pass parts in chronological order.
func Merge(parts ...Transcript) Transcript {
	texts := make([]string, 0, len(parts))
	sentences := make([]Sentence, 0)
	for _, p := range parts {
		if text := strings.TrimSpace(p.Text); text != "" {
			texts = append(texts, text)
		}
		sentences = append(sentences, p.Clone().Sentences...)
	}
	return Transcript{
		Text:      strings.Join(texts, "\n\n"),
		Sentences: sentences,
	}
}
