package ffmpeg

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Static ffmpeg builds from github.com/eugeneware/ffmpeg-static release b6.1.1.
const (
	ffmpegVersion   = "6.1.1"
	downloadBaseURL = "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.1.1"

	// versionFileName stores the installed version for upgrade detection.
	versionFileName = ".version"

	// maxDecompressedSize guards against decompression bombs.
	// The ffmpeg binary is ~80MB uncompressed.
	maxDecompressedSize = 200 * 1024 * 1024
)

// binaryInfo contains download metadata for ffmpeg.
type binaryInfo struct {
	URL    string // Download URL (gzipped binary)
	SHA256 string // Expected checksum of the gzipped file
}

// WithPlatformInfo overrides the platform download info (for testing downloads).
func WithPlatformInfo(info binaryInfo) ResolverOption {
	return func(res *Resolver) {
		res.platformInfo = &info
	}
}

// getPlatformInfo returns download information for the given platform.
func getPlatformInfo(goos, goarch string) (binaryInfo, bool) {
	platforms := map[string]binaryInfo{
		"darwin-arm64": {
			URL:    downloadBaseURL + "/ffmpeg-darwin-arm64.gz",
			SHA256: "8923876afa8db5585022d7860ec7e589af192f441c56793971276d450ed3bbfa",
		},
		"darwin-amd64": {
			URL:    downloadBaseURL + "/ffmpeg-darwin-x64.gz",
			SHA256: "5d8fb6f280c428d0e82cd5ee68215f0734d64f88e37dcc9e082f818c9e5025f0",
		},
		"linux-amd64": {
			URL:    downloadBaseURL + "/ffmpeg-linux-x64.gz",
			SHA256: "bfe8a8fc511530457b528c48d77b5737527b504a3797a9bc4866aeca69c2dffa",
		},
		"windows-amd64": {
			URL:    downloadBaseURL + "/ffmpeg-win32-x64.gz",
			SHA256: "8883a3dffbd0a16cf4ef95206ea05283f78908dbfb118f73c83f4951dcc06d77",
		},
	}
	info, ok := platforms[goos+"-"+goarch]
	return info, ok
}

// isInstalled reports whether our copy of ffmpeg exists with the current
// version stamp. A missing or stale stamp triggers a reinstall.
func (r *Resolver) isInstalled() (bool, error) {
	binPath, err := r.installedPath()
	if err != nil {
		return false, err
	}
	if _, err := r.reader.Stat(binPath); err != nil {
		return false, nil
	}

	dir, _ := r.installDir()
	data, err := r.reader.ReadFile(filepath.Join(dir, versionFileName))
	if err != nil {
		return false, nil
	}
	return string(data) == ffmpegVersion, nil
}

func (r *Resolver) downloadAndInstall(ctx context.Context) error {
	var info binaryInfo
	if r.platformInfo != nil {
		info = *r.platformInfo
	} else {
		var ok bool
		info, ok = getPlatformInfo(r.goos, r.goarch)
		if !ok {
			return fmt.Errorf("%w: %s-%s (supported: darwin-arm64, darwin-amd64, linux-amd64, windows-amd64)",
				ErrUnsupportedPlatform, r.goos, r.goarch)
		}
	}

	dir, err := r.installDir()
	if err != nil {
		return err
	}
	if err := r.writer.MkdirAll(dir, installDirPerm); err != nil {
		return fmt.Errorf("cannot create install directory %s: %w", dir, err)
	}

	destPath := filepath.Join(dir, r.exeName("ffmpeg"))
	if err := r.downloadBinary(ctx, info, destPath); err != nil {
		_ = r.writer.Remove(destPath)
		return fmt.Errorf("download ffmpeg: %w", err)
	}

	if err := r.writer.WriteFile(filepath.Join(dir, versionFileName), []byte(ffmpegVersion), 0o644); err != nil {
		return fmt.Errorf("write version file: %w", err)
	}
	return nil
}

// downloadBinary downloads, verifies and extracts ffmpeg to destPath.
func (r *Resolver) downloadBinary(ctx context.Context, info binaryInfo, destPath string) error {
	tempFile, err := r.writer.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tempFile.Close()
		}
		_ = r.writer.Remove(tempPath)
	}()

	if err := r.downloadToFile(ctx, info.URL, tempFile); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	closed = true

	if err := verifyChecksum(tempPath, info.SHA256); err != nil {
		return err
	}
	if err := decompressGzip(tempPath, destPath); err != nil {
		return err
	}
	if r.goos != "windows" {
		if err := r.writer.Chmod(destPath, 0o755); err != nil {
			return fmt.Errorf("make binary executable: %w", err)
		}
	}
	return nil
}

func (r *Resolver) downloadToFile(ctx context.Context, url string, dest io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %v", ErrDownloadFailed, err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d from %s", ErrDownloadFailed, resp.StatusCode, url)
	}
	if _, err := io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return nil
}

// verifyChecksum computes the SHA256 of a file and compares to expected.
func verifyChecksum(filePath, expectedSHA256 string) error {
	f, err := os.Open(filePath) // #nosec G304 -- filePath is internal temp file
	if err != nil {
		return fmt.Errorf("cannot open file for checksum: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("compute checksum: %w", err)
	}

	if actual := hex.EncodeToString(h.Sum(nil)); actual != expectedSHA256 {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expectedSHA256, actual)
	}
	return nil
}

// decompressGzip extracts gzPath to destPath through a temp file and rename,
// so destPath is either complete or absent.
func decompressGzip(gzPath, destPath string) error {
	gzFile, err := os.Open(gzPath) // #nosec G304 -- gzPath is internal temp file
	if err != nil {
		return fmt.Errorf("cannot open gzip file: %w", err)
	}
	defer func() { _ = gzFile.Close() }()

	gzReader, err := gzip.NewReader(gzFile)
	if err != nil {
		return fmt.Errorf("invalid gzip file: %w", err)
	}
	defer func() { _ = gzReader.Close() }()

	tempFile, err := os.CreateTemp(filepath.Dir(destPath), ".extract-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	success := false
	defer func() {
		_ = tempFile.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	written, err := io.Copy(tempFile, io.LimitReader(gzReader, maxDecompressedSize))
	if err != nil {
		return fmt.Errorf("decompression failed: %w", err)
	}
	if written >= maxDecompressedSize {
		return fmt.Errorf("decompression failed: file exceeds %d bytes limit", maxDecompressedSize)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("install binary: %w", err)
	}
	success = true
	return nil
}
