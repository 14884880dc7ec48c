// Package transcribe turns audio files into timed transcripts through a
// pluggable Backend, falling back to segment-by-segment transcription when
// the backend runs out of capacity on the whole file.
package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/alnah/go-podscribe/internal/transcript"
)

// Backend transcribes one audio file and returns its raw result.
// Implementations include stderr or API messages in errors so that
// IsCapacityError can recognise resource exhaustion.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string) (transcript.Raw, error)
}

// BackendName identifies a Backend implementation.
type BackendName string

// Supported backends.
const (
	BackendLocal  BackendName = "local"
	BackendOpenAI BackendName = "openai"
)

// DefaultBackend is used when no backend is configured.
const DefaultBackend = BackendLocal

// BackendNames lists the supported backend names for help and error text.
func BackendNames() string {
	return strings.Join([]string{string(BackendLocal), string(BackendOpenAI)}, ", ")
}

// ParseBackend validates a backend name. Empty selects DefaultBackend.
func ParseBackend(name string) (BackendName, error) {
	switch BackendName(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultBackend, nil
	case BackendLocal:
		return BackendLocal, nil
	case BackendOpenAI:
		return BackendOpenAI, nil
	default:
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrInvalidBackend, name, BackendNames())
	}
}
