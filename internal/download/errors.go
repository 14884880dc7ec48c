package download

import (
	"errors"

	"github.com/alnah/go-podscribe/internal/ffmpeg"
)

// ErrDownloadFailed indicates yt-dlp could not produce the audio file.
var ErrDownloadFailed = errors.New("download failed")

// ErrNotFound indicates the yt-dlp binary is not available.
var ErrNotFound = ffmpeg.ErrYTDLPNotFound
