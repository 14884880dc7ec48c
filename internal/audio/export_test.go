package audio

import "time"

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseDurationFromFFmpegOutput exports parseDurationFromFFmpegOutput for testing.
var ParseDurationFromFFmpegOutput = parseDurationFromFFmpegOutput

// ParseTimeComponents exports parseTimeComponents for testing.
var ParseTimeComponents = parseTimeComponents

// ParseSeconds exports parseSeconds for testing.
var ParseSeconds = parseSeconds

// SegmentArgs exports segmentArgs for testing.
func SegmentArgs(inputPath, pattern string, chunk time.Duration) []string {
	return segmentArgs(inputPath, pattern, chunk)
}

// SegmentExt exports segmentExt for testing.
var SegmentExt = segmentExt

// --- Dependency injection exports ---

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner

// TempDirCreator exports tempDirCreator interface for testing.
type TempDirCreator = tempDirCreator

// FileRemover exports fileRemover interface for testing.
type FileRemover = fileRemover

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter

// NewFFprobeProberWithRunner creates an FFprobeProber with an injected runner.
func NewFFprobeProberWithRunner(path string, r commandRunner) *FFprobeProber {
	return &FFprobeProber{ffprobePath: path, cmd: r}
}

// NewFFmpegProberWithRunner creates an FFmpegProber with an injected runner.
func NewFFmpegProberWithRunner(path string, r commandRunner) *FFmpegProber {
	return &FFmpegProber{ffmpegPath: path, cmd: r}
}

// NewTempDirsWithRemover creates a TempDirs registry with an injected remover.
func NewTempDirsWithRemover(f fileRemover) *TempDirs {
	r := NewTempDirs()
	r.files = f
	return r
}
