package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrUnsupportedFormat indicates an input file has an unsupported audio extension.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output file already exists and --force was not given.
	ErrOutputExists = errors.New("output file already exists")

	// ErrInvalidDevice indicates a --device value outside the supported set.
	ErrInvalidDevice = errors.New("invalid device")

	// ErrInvalidURL indicates a download source that is not an http(s) URL.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidChunk indicates a non-positive --chunk-seconds value.
	ErrInvalidChunk = errors.New("invalid chunk duration")
)
