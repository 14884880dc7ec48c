package ffmpeg

import "errors"

// ErrNotFound indicates the ffmpeg binary is not installed and auto-download failed.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrProbeNotFound indicates no ffprobe binary is available.
// Callers fall back to parsing ffmpeg output.
var ErrProbeNotFound = errors.New("ffprobe not found")

// ErrYTDLPNotFound indicates the yt-dlp binary is not installed.
var ErrYTDLPNotFound = errors.New("yt-dlp not found")

// ErrUnsupportedPlatform indicates the OS/architecture is not supported for auto-download.
var ErrUnsupportedPlatform = errors.New("unsupported platform for FFmpeg auto-download")

// ErrChecksumMismatch indicates a downloaded file's checksum verification failed.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrDownloadFailed indicates a file download could not be completed.
var ErrDownloadFailed = errors.New("download failed")
