package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(contents), 0o600))
	return dir
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	loader := NewLoader(t.TempDir())
	s, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, Defaults(), s)
	require.True(t, s.HumanReadable())
	require.Empty(t, loader.ConfigFileUsed())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := writeSettings(t, `
parallel = 8
timeout = "45s"

[log]
level = "DEBUG"
format = "json"
`)

	s, err := NewLoader(dir).Load()
	require.NoError(t, err)
	require.Equal(t, 8, s.Parallel)
	require.Equal(t, 45*time.Second, s.Timeout)
	require.Equal(t, "debug", s.Log.Level)
	require.False(t, s.HumanReadable())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := writeSettings(t, "parallel = 8\n")
	t.Setenv("DIRSTATE_PARALLEL", "2")
	t.Setenv("DIRSTATE_LOG_FORMAT", "json")

	s, err := NewLoader(dir).Load()
	require.NoError(t, err)
	require.Equal(t, 2, s.Parallel)
	require.Equal(t, FormatJSON, s.Log.Format)
}

func TestLoad_FlagOverridesEverything(t *testing.T) {
	t.Parallel()

	dir := writeSettings(t, "[log]\nlevel = \"warn\"\n")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "error"}))

	loader := NewLoader(dir)
	require.NoError(t, loader.BindFlag("log.level", flags.Lookup("log-level")))
	require.Error(t, loader.BindFlag("log.format", flags.Lookup("missing")))

	s, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "error", s.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"format":   "[log]\nformat = \"xml\"\n",
		"parallel": "parallel = 64\n",
		"timeout":  "timeout = \"-1s\"\n",
		"syntax":   "parallel = = 2\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewLoader(writeSettings(t, contents)).Load()
			require.Error(t, err)
		})
	}
}

func TestConfigDir_UsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := ConfigDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/tmp/xdg", "dirstate"), dir)
}
