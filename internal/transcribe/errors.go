package transcribe

import "errors"

// ErrCapacity indicates the backend could not process the input in one pass
// (out of memory, buffer limits, payload too large). It triggers the
// segmented fallback.
var ErrCapacity = errors.New("backend capacity exceeded")

// ErrBackendFailed indicates the transcription backend failed for a reason
// other than capacity.
var ErrBackendFailed = errors.New("transcription backend failed")

// ErrInvalidBackend indicates an unknown backend name.
var ErrInvalidBackend = errors.New("invalid backend")

// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")
