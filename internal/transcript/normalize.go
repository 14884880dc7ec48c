package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Raw is a backend result as decoded from JSON (or built by hand).
// Every field is optional and may carry an unexpected type.
//
// The conventional shape is:
//
//	{"text": "...", "sentences": [{"text", "start", "end", "duration",
//	  "tokens": [{"text", "start", "end", "duration"}]}]}
type Raw map[string]any

// Keys of the Raw convention.
const (
	KeyText      = "text"
	KeySentences = "sentences"
	KeyTokens    = "tokens"
	KeyStart     = "start"
	KeyEnd       = "end"
	KeyDuration  = "duration"
)

// DecodeRaw decodes a JSON backend result. Numbers are kept as json.Number
// so Normalize sees the exact values the backend wrote.
func DecodeRaw(data []byte) (Raw, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw Raw
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode backend result: %w", err)
	}
	return raw, nil
}

// Normalize converts a raw backend result into a Transcript.
// Missing or mistyped text becomes "" and missing or mistyped numbers become 0.
// It never panics, and the result shares no memory with raw.
func Normalize(raw Raw) Transcript {
	t := Transcript{
		Text:      stringField(raw, KeyText),
		Sentences: make([]Sentence, 0),
	}
	for _, item := range listField(raw, KeySentences) {
		s, ok := asMap(item)
		if !ok {
			continue
		}
		t.Sentences = append(t.Sentences, normalizeSentence(s))
	}
	return t
}

func normalizeSentence(m map[string]any) Sentence {
	s := Sentence{
		Text:     stringField(m, KeyText),
		Start:    numberField(m, KeyStart),
		End:      numberField(m, KeyEnd),
		Duration: numberField(m, KeyDuration),
		Tokens:   make([]Token, 0),
	}
	for _, item := range listField(m, KeyTokens) {
		tm, ok := asMap(item)
		if !ok {
			continue
		}
		s.Tokens = append(s.Tokens, Token{
			Text:     stringField(tm, KeyText),
			Start:    numberField(tm, KeyStart),
			End:      numberField(tm, KeyEnd),
			Duration: numberField(tm, KeyDuration),
		})
	}
	return s
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Raw:
		return m, true
	default:
		return nil, false
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func listField(m map[string]any, key string) []any {
	switch l := m[key].(type) {
	case []any:
		return l
	case []map[string]any:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	case []Raw:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	default:
		return nil
	}
}

func numberField(m map[string]any, key string) float64 {
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
