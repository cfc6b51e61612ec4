// Package settings loads per-user runtime preferences for the dirstate CLI.
// Values come from, in increasing priority: built-in defaults, settings.toml
// in the config directory, DIRSTATE_* environment variables and bound
// command-line flags.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the loader reads, e.g.
// DIRSTATE_LOG_LEVEL for log.level.
const EnvPrefix = "DIRSTATE"

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Settings are the resolved runtime preferences.
type Settings struct {
	Log      Log           `mapstructure:"log"`
	Parallel int           `mapstructure:"parallel"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Log controls logger construction.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HumanReadable reports whether logs should use the console writer.
func (s Settings) HumanReadable() bool {
	return s.Log.Format != FormatJSON
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Log:      Log{Level: "info", Format: FormatConsole},
		Parallel: 4,
		Timeout:  30 * time.Second,
	}
}

// ConfigDir returns $XDG_CONFIG_HOME/dirstate, falling back to
// ~/.config/dirstate.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dirstate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "dirstate"), nil
}

// Loader resolves Settings through viper.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader that looks for settings.toml in dirs. With no
// dirs it uses ConfigDir, when that can be resolved.
func NewLoader(dirs ...string) *Loader {
	v := viper.New()
	v.SetConfigName("settings")
	v.SetConfigType("toml")

	if len(dirs) == 0 {
		if dir, err := ConfigDir(); err == nil {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Defaults()
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("timeout", defaults.Timeout)

	return &Loader{v: v}
}

// BindFlag makes flag override key when the user sets it.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag is nil", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("bind %s: %w", key, err)
	}
	return nil
}

// ConfigFileUsed returns the settings file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load reads the settings file when present and returns validated settings.
// A missing file is not an error.
func (l *Loader) Load() (Settings, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read settings file %s: %w", l.v.ConfigFileUsed(), err)
		}
	}

	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.Log.Level = strings.ToLower(strings.TrimSpace(s.Log.Level))
	s.Log.Format = strings.ToLower(strings.TrimSpace(s.Log.Format))

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges. Log levels are checked by the logger.
func (s Settings) Validate() error {
	switch s.Log.Format {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("log.format must be %q or %q, got %q", FormatConsole, FormatJSON, s.Log.Format)
	}
	if s.Parallel < 1 || s.Parallel > 32 {
		return fmt.Errorf("parallel must be between 1 and 32, got %d", s.Parallel)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", s.Timeout)
	}
	return nil
}
