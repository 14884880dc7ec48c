package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-podscribe/internal/config"
	"github.com/alnah/go-podscribe/internal/format"
	"github.com/alnah/go-podscribe/internal/lang"
	"github.com/alnah/go-podscribe/internal/transcribe"
)

// configEnvVars maps each configuration key to its environment fallback.
var configEnvVars = map[string]string{
	config.KeyOutputDir:      config.EnvOutputDir,
	config.KeyBackend:        config.EnvBackend,
	config.KeyModel:          config.EnvModel,
	config.KeyLanguage:       config.EnvLanguage,
	config.KeyDevice:         config.EnvDevice,
	config.KeyFormat:         config.EnvFormat,
	config.KeyChunkSeconds:   config.EnvChunkSeconds,
	config.KeyBackendCommand: config.EnvBackendCommand,
}

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-podscribe/config.toml
(or $XDG_CONFIG_HOME/go-podscribe/config.toml). Unset keys fall back to
environment variables; command-line flags override both.

Supported settings:
  output-dir       Directory for transcripts and downloads (env: PODSCRIBE_OUTPUT_DIR)
  backend          local or openai                         (env: PODSCRIBE_BACKEND)
  model            Backend model                           (env: PODSCRIBE_MODEL)
  language         Language code or auto                   (env: PODSCRIBE_LANGUAGE)
  device           auto, mps, cpu or cuda                  (env: PODSCRIBE_DEVICE)
  format           txt, srt, vtt or json                   (env: PODSCRIBE_FORMAT)
  chunk-seconds    Fallback segment length                 (env: PODSCRIBE_CHUNK_SECONDS)
  backend-command  Local backend command template          (env: PODSCRIBE_BACKEND_COMMAND)`,
		Example: `  podscribe config set output-dir ~/Podcasts/transcripts
  podscribe config set backend openai
  podscribe config get chunk-seconds
  podscribe config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Values are validated before they are saved. For output-dir the directory is
created if it doesn't exist.`,
		Example: `  podscribe config set output-dir ~/Podcasts/transcripts
  podscribe config set chunk-seconds 300
  podscribe config set backend-command "parakeet-mlx {input} --output-format json --output-dir {output_dir}"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  podscribe config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable fallbacks.`,
		Example: `  podscribe config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	value, err := validateConfigValue(key, value)
	if err != nil {
		return err
	}
	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// validateConfigValue checks value for key and returns the form to store.
func validateConfigValue(key, value string) (string, error) {
	if !config.IsValidKey(key) {
		return "", fmt.Errorf("%w: %q (valid: %s)", config.ErrInvalidKey, key, strings.Join(config.Keys(), ", "))
	}

	switch key {
	case config.KeyOutputDir:
		expanded := config.ExpandPath(value)
		if err := config.EnsureOutputDir(expanded); err != nil {
			return "", fmt.Errorf("invalid output-dir: %w", err)
		}
		return expanded, nil
	case config.KeyBackend:
		b, err := transcribe.ParseBackend(value)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case config.KeyFormat:
		f, err := format.ParseFormat(value)
		if err != nil {
			return "", err
		}
		return string(f), nil
	case config.KeyLanguage:
		tag, err := lang.Parse(value)
		if err != nil {
			return "", err
		}
		return languageLabel(tag), nil
	case config.KeyDevice:
		d := strings.ToLower(strings.TrimSpace(value))
		if !slices.Contains(supportedDevices, d) {
			return "", fmt.Errorf("%w: %q (valid: %s)", ErrInvalidDevice, value, strings.Join(supportedDevices, ", "))
		}
		return d, nil
	case config.KeyChunkSeconds:
		n, err := config.ParseChunkSeconds(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(n), nil
	default:
		if strings.TrimSpace(value) == "" {
			return "", fmt.Errorf("%w: %s cannot be empty", config.ErrInvalidValue, key)
		}
		return value, nil
	}
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !config.IsValidKey(key) {
		return fmt.Errorf("%w: %q (valid: %s)", config.ErrInvalidKey, key, strings.Join(config.Keys(), ", "))
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}
	if value == "" {
		value = env.Getenv(configEnvVars[key])
	}
	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	for _, key := range config.Keys() {
		if _, ok := data[key]; ok {
			continue
		}
		if envVal := env.Getenv(configEnvVars[key]); envVal != "" {
			data[key] = envVal + " (from env)"
		}
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys() {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range config.SortedKeys(data) {
		fmt.Fprintf(env.Stdout, "%s=%s\n", key, data[key])
	}
	return nil
}
