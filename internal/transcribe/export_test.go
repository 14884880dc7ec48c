package transcribe

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Exports for testing. These allow black-box tests to inject dependencies
// without modifying the public API.

// AudioTranscriber mirrors the internal OpenAI client interface.
type AudioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// CommandRunner mirrors the internal process runner interface.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

// NewTestOpenAIBackend creates an OpenAIBackend with a mock client.
func NewTestOpenAIBackend(client AudioTranscriber, opts ...OpenAIOption) *OpenAIBackend {
	return newOpenAIBackend(client, opts...)
}

// WithCommandRunner replaces the process runner of a CommandBackend.
func WithCommandRunner(r CommandRunner) CommandOption {
	return func(b *CommandBackend) { b.runner = r }
}

// Function exports for unit testing internal logic.
var (
	ClassifyError   = classifyError
	ResponseToRaw   = responseToRaw
	ReadResult      = readResult
	DefaultLockPath = defaultLockPath
)

// Expand exposes placeholder substitution.
func (b *CommandBackend) Expand(audioPath, outDir string) []string {
	return b.expand(audioPath, outDir)
}
