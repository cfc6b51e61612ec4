package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/dirstate/internal/settings"
)

// isolateSettings keeps the user's settings.toml out of command tests.
func isolateSettings(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	original := newSettingsLoader
	newSettingsLoader = func() *settings.Loader { return settings.NewLoader(dir) }
	t.Cleanup(func() { newSettingsLoader = original })
}

func nonInteractive(t *testing.T) {
	t.Helper()

	original := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = original })
}

func writeDocument(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}
