package audio

import (
	"errors"
	"fmt"
	"sync"
)

// TempDirs tracks temporary directories that must not outlive the process.
// Segmenter registers every segment directory here; the CLI removes whatever
// is left on abort (double Ctrl+C) and on exit.
// Safe for concurrent use.
type TempDirs struct {
	mu    sync.Mutex
	dirs  map[string]struct{}
	files fileRemover
}

// NewTempDirs creates an empty registry.
func NewTempDirs() *TempDirs {
	return &TempDirs{dirs: make(map[string]struct{}), files: osFileRemover{}}
}

// Add registers dir for removal.
func (r *TempDirs) Add(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs[dir] = struct{}{}
}

// Release removes dir from disk and forgets it.
// Unknown directories are removed anyway.
func (r *TempDirs) Release(dir string) error {
	r.mu.Lock()
	delete(r.dirs, dir)
	r.mu.Unlock()

	if err := r.files.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove temp dir %s: %w", dir, err)
	}
	return nil
}

// RemoveAll removes every registered directory. Directories that fail to
// be removed stay registered.
func (r *TempDirs) RemoveAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for dir := range r.dirs {
		if err := r.files.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("remove temp dir %s: %w", dir, err))
			continue
		}
		delete(r.dirs, dir)
	}
	return errors.Join(errs...)
}

// Len returns the number of registered directories.
func (r *TempDirs) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirs)
}
