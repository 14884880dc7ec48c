package audio

import (
	"context"
	"os"
	"os/exec"
)

// commandRunner executes external commands and returns their combined output.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// tempDirCreator creates temporary directories.
type tempDirCreator interface {
	MkdirTemp(dir, pattern string) (string, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// fileRemover removes directory trees.
type fileRemover interface {
	RemoveAll(path string) error
}

// dirReader lists directory entries sorted by name.
type dirReader interface {
	ReadDir(name string) ([]os.DirEntry, error)
}

// --- Default implementations using real OS functions ---

type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name is a resolved binary path and args are built by this package
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

type osTempDirCreator struct{}

func (osTempDirCreator) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

type osFileRemover struct{}

func (osFileRemover) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

type osDirReader struct{}

func (osDirReader) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}
