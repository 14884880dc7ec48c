package audio

import "errors"

// ErrInputNotFound indicates the audio file to segment does not exist.
var ErrInputNotFound = errors.New("input audio not found")

// ErrSegmentationFailed indicates ffmpeg failed to split the audio,
// or produced no segment files.
var ErrSegmentationFailed = errors.New("audio segmentation failed")

// ErrProbeFailed indicates a segment duration could not be determined.
var ErrProbeFailed = errors.New("duration probe failed")
