package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-podscribe/internal/apierr"
	"github.com/alnah/go-podscribe/internal/lang"
	"github.com/alnah/go-podscribe/internal/logging"
	"github.com/alnah/go-podscribe/internal/transcript"
)

// DefaultOpenAIModel is the only OpenAI model returning word timestamps.
const DefaultOpenAIModel = openai.Whisper1

// Default retry configuration.
const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
)

// audioTranscriber is the subset of *openai.Client used here.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Backend          = (*OpenAIBackend)(nil)
	_ Backend          = (*CommandBackend)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAIBackend transcribes audio with the OpenAI transcription API.
// Transient failures are retried with exponential backoff.
type OpenAIBackend struct {
	client     audioTranscriber
	model      string
	language   string
	prompt     string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

// OpenAIOption configures an OpenAIBackend.
type OpenAIOption func(*OpenAIBackend)

// WithOpenAIModel overrides DefaultOpenAIModel.
func WithOpenAIModel(model string) OpenAIOption {
	return func(b *OpenAIBackend) {
		if model != "" {
			b.model = model
		}
	}
}

// WithOpenAILanguage sets the language hint. Regional variants are reduced
// to their base code, the only form the API accepts.
func WithOpenAILanguage(language string) OpenAIOption {
	return func(b *OpenAIBackend) { b.language = lang.BaseCode(language) }
}

// WithPrompt provides vocabulary context to the model.
func WithPrompt(prompt string) OpenAIOption {
	return func(b *OpenAIBackend) { b.prompt = prompt }
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) OpenAIOption {
	return func(b *OpenAIBackend) {
		if n >= 0 {
			b.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) OpenAIOption {
	return func(b *OpenAIBackend) {
		if base > 0 {
			b.baseDelay = base
		}
		if max > 0 {
			b.maxDelay = max
		}
	}
}

// WithOpenAILogger sets the diagnostic logger.
func WithOpenAILogger(l *slog.Logger) OpenAIOption {
	return func(b *OpenAIBackend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewOpenAIBackend creates an OpenAIBackend using client.
func NewOpenAIBackend(client *openai.Client, opts ...OpenAIOption) *OpenAIBackend {
	return newOpenAIBackend(client, opts...)
}

func newOpenAIBackend(client audioTranscriber, opts ...OpenAIOption) *OpenAIBackend {
	b := &OpenAIBackend{
		client:     client,
		model:      DefaultOpenAIModel,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "backend.openai")
	return b
}

// Transcribe uploads audioPath and converts the verbose JSON response into
// a Raw result with sentences (API segments) and tokens (words).
// A payload rejected as too large is reported as ErrCapacity.
func (b *OpenAIBackend) Transcribe(ctx context.Context, audioPath string) (transcript.Raw, error) {
	req := openai.AudioRequest{
		Model:    b.model,
		FilePath: audioPath,
		Prompt:   b.prompt,
		Language: b.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
			openai.TranscriptionTimestampGranularitySegment,
		},
	}

	policy := apierr.Policy{
		Op:         "transcription request",
		MaxRetries: b.maxRetries,
		BaseDelay:  b.baseDelay,
		MaxDelay:   b.maxDelay,
		Logger:     b.logger,
	}
	resp, err := apierr.Do(ctx, policy, func() (openai.AudioResponse, error) {
		resp, err := b.client.CreateTranscription(ctx, req)
		if err != nil {
			return openai.AudioResponse{}, classifyError(err)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, apierr.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrCapacity, err)
		}
		return nil, err
	}
	return responseToRaw(resp), nil
}

// responseToRaw maps API segments to sentences and assigns each word to the
// segment whose span contains its start.
func responseToRaw(resp openai.AudioResponse) transcript.Raw {
	sentences := make([]any, 0, len(resp.Segments))
	w := 0
	for i, seg := range resp.Segments {
		last := i == len(resp.Segments)-1
		tokens := make([]any, 0)
		for ; w < len(resp.Words); w++ {
			word := resp.Words[w]
			if !last && word.Start >= seg.End {
				break
			}
			text := word.Word
			if len(tokens) > 0 {
				text = " " + text
			}
			tokens = append(tokens, map[string]any{
				transcript.KeyText:     text,
				transcript.KeyStart:    word.Start,
				transcript.KeyEnd:      word.End,
				transcript.KeyDuration: word.End - word.Start,
			})
		}
		sentences = append(sentences, map[string]any{
			transcript.KeyText:     strings.TrimSpace(seg.Text),
			transcript.KeyStart:    seg.Start,
			transcript.KeyEnd:      seg.End,
			transcript.KeyDuration: seg.End - seg.Start,
			transcript.KeyTokens:   tokens,
		})
	}
	return transcript.Raw{
		transcript.KeyText:      resp.Text,
		transcript.KeySentences: sentences,
	}
}

// classifyError maps OpenAI API errors to apierr sentinels.
func classifyError(err error) error {
	status, msg := 0, err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status, msg = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if classified := apierr.FromStatus(status, msg); classified != nil {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	return err
}
