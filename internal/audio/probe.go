package audio

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Compile-time interface implementation checks.
var (
	_ Prober = (*FFprobeProber)(nil)
	_ Prober = (*FFmpegProber)(nil)
)

// Prober reports the playback duration of an audio file.
type Prober interface {
	Probe(ctx context.Context, path string) (time.Duration, error)
}

// FFprobeProber reads the container duration with ffprobe.
type FFprobeProber struct {
	ffprobePath string
	cmd         commandRunner
}

// NewFFprobeProber creates a prober running the ffprobe binary at ffprobePath.
func NewFFprobeProber(ffprobePath string) *FFprobeProber {
	return &FFprobeProber{ffprobePath: ffprobePath, cmd: osCommandRunner{}}
}

// Probe runs ffprobe and parses the bare duration it prints.
func (p *FFprobeProber) Probe(ctx context.Context, path string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nw=1:nk=1",
		path,
	}
	output, err := p.cmd.CombinedOutput(ctx, p.ffprobePath, args)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe %s: %v: %s", ErrProbeFailed, path, err, strings.TrimSpace(string(output)))
	}
	return parseSeconds(string(output))
}

// parseSeconds parses the first line of ffprobe output ("123.456000").
func parseSeconds(output string) (time.Duration, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	line = strings.TrimSpace(line)
	secs, err := strconv.ParseFloat(line, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, fmt.Errorf("%w: unexpected ffprobe output %q", ErrProbeFailed, line)
	}
	return time.Duration(math.Round(secs * float64(time.Second))), nil
}

// FFmpegProber parses the "Duration:" banner that ffmpeg prints for its input.
// Used when no ffprobe binary is available.
type FFmpegProber struct {
	ffmpegPath string
	cmd        commandRunner
}

// NewFFmpegProber creates a prober running the ffmpeg binary at ffmpegPath.
func NewFFmpegProber(ffmpegPath string) *FFmpegProber {
	return &FFmpegProber{ffmpegPath: ffmpegPath, cmd: osCommandRunner{}}
}

// Probe runs "ffmpeg -i path" and parses its banner.
func (p *FFmpegProber) Probe(ctx context.Context, path string) (time.Duration, error) {
	// Without an output file ffmpeg exits non-zero after printing the banner,
	// so the exit status is ignored when there is something to parse.
	output, err := p.cmd.CombinedOutput(ctx, p.ffmpegPath, []string{"-hide_banner", "-nostdin", "-i", path})
	if err != nil && len(output) == 0 {
		return 0, fmt.Errorf("%w: ffmpeg %s: %v", ErrProbeFailed, path, err)
	}
	d, perr := parseDurationFromFFmpegOutput(string(output))
	if perr != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrProbeFailed, path, perr)
	}
	return d, nil
}

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// parseDurationFromFFmpegOutput extracts duration from FFmpeg stderr.
// Looks for: "Duration: HH:MM:SS.ms"
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	matches := durationRe.FindStringSubmatch(output)
	if matches == nil {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output")
	}
	return parseTimeComponents(matches[1], matches[2], matches[3], matches[4]), nil
}

// parseTimeComponents converts HH:MM:SS.frac strings to a Duration with
// millisecond precision. The fractional part may have any number of digits.
func parseTimeComponents(hours, minutes, seconds, fractional string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	ms, _ := strconv.Atoi((fractional + "000")[:3])

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}
