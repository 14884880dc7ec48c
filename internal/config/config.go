// Package config loads podscribe's user configuration from a TOML file with
// environment variable fallbacks, and resolves output paths.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config keys, as written in config.toml and accepted by "config set".
const (
	KeyOutputDir      = "output-dir"
	KeyBackend        = "backend"
	KeyModel          = "model"
	KeyLanguage       = "language"
	KeyDevice         = "device"
	KeyFormat         = "format"
	KeyChunkSeconds   = "chunk-seconds"
	KeyBackendCommand = "backend-command"
)

// Environment variable fallbacks, used when the file leaves a key unset.
const (
	EnvOutputDir      = "PODSCRIBE_OUTPUT_DIR"
	EnvBackend        = "PODSCRIBE_BACKEND"
	EnvModel          = "PODSCRIBE_MODEL"
	EnvLanguage       = "PODSCRIBE_LANGUAGE"
	EnvDevice         = "PODSCRIBE_DEVICE"
	EnvFormat         = "PODSCRIBE_FORMAT"
	EnvChunkSeconds   = "PODSCRIBE_CHUNK_SECONDS"
	EnvBackendCommand = "PODSCRIBE_BACKEND_COMMAND"
)

const (
	appDirName = "go-podscribe"
	fileName   = "config.toml"
)

// ErrInvalidKey indicates an unknown configuration key.
var ErrInvalidKey = errors.New("invalid config key")

// ErrInvalidValue indicates a value that does not fit its key.
var ErrInvalidValue = errors.New("invalid config value")

// ErrNotDirectory indicates the output path exists but is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ErrNotWritable indicates the output directory cannot be written to.
var ErrNotWritable = errors.New("directory is not writable")

// Config holds user configuration. Zero values mean "not configured".
type Config struct {
	OutputDir      string `toml:"output-dir"`
	Backend        string `toml:"backend"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	Device         string `toml:"device"`
	Format         string `toml:"format"`
	ChunkSeconds   int    `toml:"chunk-seconds"`
	BackendCommand string `toml:"backend-command"`
}

// Keys returns every supported key in display order.
func Keys() []string {
	return []string{
		KeyOutputDir, KeyBackend, KeyModel, KeyLanguage,
		KeyDevice, KeyFormat, KeyChunkSeconds, KeyBackendCommand,
	}
}

// IsValidKey reports whether key is a supported configuration key.
func IsValidKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-podscribe.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, fileName), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// Returns an empty Config if the file doesn't exist (not an error).
func Load() (Config, error) {
	var cfg Config

	p, err := Path()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(p) // #nosec G304 -- config path is constructed from home dir
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", p, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	fallback(&cfg.OutputDir, EnvOutputDir)
	fallback(&cfg.Backend, EnvBackend)
	fallback(&cfg.Model, EnvModel)
	fallback(&cfg.Language, EnvLanguage)
	fallback(&cfg.Device, EnvDevice)
	fallback(&cfg.Format, EnvFormat)
	fallback(&cfg.BackendCommand, EnvBackendCommand)

	if cfg.ChunkSeconds == 0 {
		if v := os.Getenv(EnvChunkSeconds); v != "" {
			n, err := ParseChunkSeconds(v)
			if err != nil {
				return Config{}, fmt.Errorf("%s: %w", EnvChunkSeconds, err)
			}
			cfg.ChunkSeconds = n
		}
	}
	if cfg.ChunkSeconds < 0 {
		return Config{}, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidValue, KeyChunkSeconds, cfg.ChunkSeconds)
	}

	return cfg, nil
}

func fallback(field *string, env string) {
	if *field == "" {
		*field = os.Getenv(env)
	}
}

// ParseChunkSeconds parses a positive number of seconds.
func ParseChunkSeconds(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidValue, KeyChunkSeconds, v)
	}
	return n, nil
}

// readFile decodes the config file as a generic table so that Save keeps
// keys it does not know about.
func readFile(p string) (map[string]any, error) {
	data, err := os.ReadFile(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	table := make(map[string]any)
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", p, err)
	}
	return table, nil
}

// Save writes a single key to the config file, creating it if needed.
// Other keys are preserved; comments are not.
func Save(key, value string) error {
	if !IsValidKey(key) {
		return fmt.Errorf("%w: %q (valid: %s)", ErrInvalidKey, key, strings.Join(Keys(), ", "))
	}

	var typed any = value
	if key == KeyChunkSeconds {
		n, err := ParseChunkSeconds(value)
		if err != nil {
			return err
		}
		typed = n
	}

	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	table, err := readFile(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		table = make(map[string]any)
	}
	table[key] = typed

	return writeFile(p, table)
}

// writeFile encodes table and replaces the config file atomically.
func writeFile(p string, table map[string]any) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(table); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	values, err := List()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// List returns all config file values as strings.
func List() (map[string]string, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}

	table, err := readFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	values := make(map[string]string, len(table))
	for k, v := range table {
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}

// SortedKeys returns the keys of values in lexical order.
func SortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
//
// All paths are cleaned using filepath.Clean.
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// EnsureOutputDir checks that d is a writable directory, creating it when
// missing.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidValue, KeyOutputDir)
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.MkdirAll(d, 0o750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	}

	testFile := filepath.Join(d, ".go-podscribe-write-test")
	f, err := os.Create(testFile) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, d, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(testFile)
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, d, err)
	}
	_ = os.Remove(testFile)
	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	return p
}
