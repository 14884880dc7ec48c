package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-podscribe/internal/format"
)

// deriveOutputName converts an audio path to a transcript file name.
// Example: "/tmp/episode 12.mp3" + srt -> "episode 12.srt"
func deriveOutputName(audioPath string, f format.Format) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + f.Ext()
}

// checkOutputFree fails with ErrOutputExists when path exists and force is off.
func checkOutputFree(path string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w (use --force to overwrite)", path, ErrOutputExists)
	}
	return nil
}

// writeFileAtomic writes content to path.
// Without force it fails if the file already exists (O_EXCL), preventing
// accidental overwrites; on write failure the partial file is removed.
// With force the content goes to a temp file that replaces path by rename.
func writeFileAtomic(path, content string, force bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
	}
	if force {
		return replaceFile(path, content)
	}

	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w (use --force to overwrite)", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}
	return nil
}

func replaceFile(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".podscribe-*")
	if err != nil {
		return fmt.Errorf("cannot create output file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write output: %w", err)
	}
	// #nosec G302 -- transcript files are meant to be world-readable
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot replace output file: %w", err)
	}
	return nil
}
