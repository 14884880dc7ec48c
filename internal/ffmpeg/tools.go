package ffmpeg

import (
	"fmt"
	"path/filepath"
)

// tool describes how one external binary is discovered.
type tool struct {
	name     string
	envKey   string
	notFound error

	// hints holds manual install instructions per GOOS; "" is the fallback.
	hints map[string]string
}

var (
	toolFFmpeg = tool{
		name:     "ffmpeg",
		envKey:   "FFMPEG_PATH",
		notFound: ErrNotFound,
		hints: map[string]string{
			"darwin": "To install FFmpeg manually:\n  brew install ffmpeg",
			"linux": "To install FFmpeg manually:\n" +
				"  Ubuntu/Debian: sudo apt install ffmpeg\n" +
				"  Fedora:        sudo dnf install ffmpeg\n" +
				"  Arch:          sudo pacman -S ffmpeg",
			"windows": "To install FFmpeg manually:\n  winget install ffmpeg",
			"":        "To install FFmpeg manually, download from https://ffmpeg.org/download.html",
		},
	}
	toolFFprobe = tool{
		name:     "ffprobe",
		envKey:   "FFPROBE_PATH",
		notFound: ErrProbeNotFound,
	}
	toolYTDLP = tool{
		name:     "yt-dlp",
		envKey:   "YTDLP_PATH",
		notFound: ErrYTDLPNotFound,
		hints: map[string]string{
			"darwin":  "To install yt-dlp:\n  brew install yt-dlp",
			"windows": "To install yt-dlp:\n  winget install yt-dlp",
			"":        "To install yt-dlp:\n  python3 -m pip install -U yt-dlp",
		},
	}
)

// instructions returns the install hint for goos, followed by the override
// variable pointing at the binary.
func (t tool) instructions(goos string) string {
	hint, ok := t.hints[goos]
	if !ok {
		hint = t.hints[""]
	}
	binary := t.name + " binary"
	if goos == "windows" {
		binary = t.name + binaryExtWindows
	}
	return fmt.Sprintf("%s\n\nOr set %s environment variable to your %s.", hint, t.envKey, binary)
}

// locate looks for t in its override variable, then in dirs, then in PATH.
// found is false with a nil error when t is nowhere; a set but invalid
// override is an error wrapping t.notFound.
func (r *Resolver) locate(t tool, dirs ...string) (path string, found bool, err error) {
	if envPath := r.env.Getenv(t.envKey); envPath != "" {
		if _, err := r.reader.Stat(envPath); err != nil {
			return "", false, fmt.Errorf("%w: %s is set to %q but binary not found", t.notFound, t.envKey, envPath)
		}
		return envPath, true, nil
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, r.exeName(t.name))
		if _, err := r.reader.Stat(candidate); err == nil {
			return candidate, true, nil
		}
	}

	if path, err := r.env.LookPath(t.name); err == nil {
		return path, true, nil
	}
	return "", false, nil
}

// ResolveProbe finds ffprobe using the following precedence:
//  1. FFPROBE_PATH environment variable (error if set but invalid)
//  2. next to the resolved ffmpeg binary
//  3. System PATH
//
// Returns ErrProbeNotFound when none is available; ffprobe is optional.
func (r *Resolver) ResolveProbe(ffmpegPath string) (string, error) {
	var dirs []string
	if ffmpegPath != "" {
		dirs = append(dirs, filepath.Dir(ffmpegPath))
	}
	path, found, err := r.locate(toolFFprobe, dirs...)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrProbeNotFound
	}
	return path, nil
}

// ResolveYTDLP finds yt-dlp via YTDLP_PATH or the system PATH.
// yt-dlp is never downloaded automatically.
func (r *Resolver) ResolveYTDLP() (string, error) {
	path, found, err := r.locate(toolYTDLP)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w in PATH\n\n%s", ErrYTDLPNotFound, toolYTDLP.instructions(r.goos))
	}
	return path, nil
}
