package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/alnah/go-podscribe/internal/logging"
	"github.com/alnah/go-podscribe/internal/transcript"
)

// Local backend defaults.
const (
	// DefaultCommand is the argv template for the local speech-recognition CLI.
	DefaultCommand = "parakeet-mlx {input} --model {model} --output-format json --output-dir {output_dir}"

	// DefaultModel is the model passed to the local backend.
	DefaultModel = "mlx-community/parakeet-tdt-0.6b-v2"

	// DefaultDevice lets the backend pick its accelerator.
	DefaultDevice = "auto"

	lockFileName   = "backend.lock"
	lockRetryDelay = 500 * time.Millisecond
	outDirPattern  = "podscribe-out-*"
)

// Template placeholders.
const (
	placeholderInput     = "{input}"
	placeholderOutputDir = "{output_dir}"
	placeholderModel     = "{model}"
	placeholderLanguage  = "{language}"
	placeholderDevice    = "{device}"
)

// commandRunner executes the backend process.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

type osCommandRunner struct{}

func (osCommandRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- argv comes from the user's own configuration
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// CommandBackend runs a local speech-recognition CLI once per file.
// The process is memory-heavy, so runs are serialized across podscribe
// processes with a lock file.
type CommandBackend struct {
	argv     []string
	model    string
	language string
	device   string
	lockPath string
	logger   *slog.Logger
	runner   commandRunner
}

// CommandOption configures a CommandBackend.
type CommandOption func(*CommandBackend)

// WithCommandTemplate replaces DefaultCommand. The template is split on
// whitespace; quoting is not interpreted.
func WithCommandTemplate(tpl string) CommandOption {
	return func(b *CommandBackend) {
		if fields := strings.Fields(tpl); len(fields) > 0 {
			b.argv = fields
		}
	}
}

// WithModel sets the {model} placeholder.
func WithModel(model string) CommandOption {
	return func(b *CommandBackend) {
		if model != "" {
			b.model = model
		}
	}
}

// WithLanguage sets the {language} placeholder. Empty means auto-detect.
func WithLanguage(language string) CommandOption {
	return func(b *CommandBackend) { b.language = language }
}

// WithDevice sets the {device} placeholder.
func WithDevice(device string) CommandOption {
	return func(b *CommandBackend) {
		if device != "" {
			b.device = device
		}
	}
}

// WithLockPath sets the lock file used to serialize runs. Empty disables locking.
func WithLockPath(path string) CommandOption {
	return func(b *CommandBackend) { b.lockPath = path }
}

// WithCommandLogger sets the diagnostic logger.
func WithCommandLogger(l *slog.Logger) CommandOption {
	return func(b *CommandBackend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewCommandBackend creates a CommandBackend running DefaultCommand unless
// overridden.
func NewCommandBackend(opts ...CommandOption) *CommandBackend {
	b := &CommandBackend{
		argv:     strings.Fields(DefaultCommand),
		model:    DefaultModel,
		device:   DefaultDevice,
		lockPath: defaultLockPath(),
		logger:   logging.NewNop(),
		runner:   osCommandRunner{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "backend.local")
	return b
}

// defaultLockPath places the lock in the user cache dir, or the temp dir
// when no cache dir is known.
func defaultLockPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "go-podscribe", lockFileName)
}

// Transcribe runs the backend on audioPath and decodes its JSON result.
func (b *CommandBackend) Transcribe(ctx context.Context, audioPath string) (transcript.Raw, error) {
	unlock, err := b.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	outDir, err := os.MkdirTemp("", outDirPattern)
	if err != nil {
		return nil, fmt.Errorf("create backend output directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	args := b.expand(audioPath, outDir)
	b.logger.Debug("running backend", slog.String("command", args[0]), slog.Any("args", args[1:]))

	stdout, stderr, err := b.runner.Run(ctx, args[0], args[1:])
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v: %s",
			ErrBackendFailed, filepath.Base(args[0]), err, strings.TrimSpace(string(stderr)))
	}

	data, err := readResult(outDir, audioPath, stdout)
	if err != nil {
		return nil, err
	}
	raw, err := transcript.DecodeRaw(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailed, err)
	}
	return raw, nil
}

// expand substitutes placeholders in every template argument.
func (b *CommandBackend) expand(audioPath, outDir string) []string {
	r := strings.NewReplacer(
		placeholderInput, audioPath,
		placeholderOutputDir, outDir,
		placeholderModel, b.model,
		placeholderLanguage, b.languageArg(),
		placeholderDevice, b.device,
	)
	args := make([]string, len(b.argv))
	for i, a := range b.argv {
		args[i] = r.Replace(a)
	}
	return args
}

func (b *CommandBackend) languageArg() string {
	if b.language == "" {
		return "auto"
	}
	return b.language
}

// lock acquires the cross-process backend lock, waiting until it is free
// or ctx is done.
func (b *CommandBackend) lock(ctx context.Context) (func(), error) {
	if b.lockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(b.lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(b.lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire backend lock: %w", err)
	}
	if !locked {
		b.logger.Info("waiting for another transcription to finish", slog.String("lock", b.lockPath))
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire backend lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("acquire backend lock: %s is held by another process", b.lockPath)
		}
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			b.logger.Warn("failed to release backend lock", logging.Error(err))
		}
	}, nil
}

// readResult prefers <stem>.json in outDir, then any JSON file there, then
// JSON printed on stdout.
func readResult(outDir, audioPath string, stdout []byte) ([]byte, error) {
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, stem+".json")) // #nosec G304 -- outDir is our temp dir
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read backend result: %w", err)
	}

	matches, _ := filepath.Glob(filepath.Join(outDir, "*.json"))
	if len(matches) > 0 {
		data, err := os.ReadFile(matches[0]) // #nosec G304 -- outDir is our temp dir
		if err != nil {
			return nil, fmt.Errorf("read backend result: %w", err)
		}
		return data, nil
	}

	if trimmed := bytes.TrimSpace(stdout); len(trimmed) > 0 && trimmed[0] == '{' {
		return trimmed, nil
	}
	return nil, fmt.Errorf("%w: no JSON result for %s", ErrBackendFailed, filepath.Base(audioPath))
}
