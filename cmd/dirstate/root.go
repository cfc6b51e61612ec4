package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/dirstate/internal/logger"
	"github.com/alexisbeaulieu97/dirstate/internal/settings"
)

type rootFlags struct {
	verbose bool
	dryRun  bool
}

var (
	newSettingsLoader = func() *settings.Loader { return settings.NewLoader() }
	newLoggerFunc     = logger.New
)

// settingsFlags maps settings keys to the flag that overrides them.
var settingsFlags = map[string]string{
	"log.level":  "log-level",
	"log.format": "log-format",
	"parallel":   "parallel",
	"timeout":    "timeout",
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "dirstate",
		Short: "dirstate converges directories to a declared state",
		Long: `dirstate reads a YAML or TOML declaration of directories (path, owner,
group, mode, presence) and makes the filesystem match it, reporting what
changed. Runtime preferences are read from settings.toml in the user config
directory and from DIRSTATE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "Preview execution without making changes")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (console or json)")
	pf.Int("parallel", 0, "Steps to run concurrently when the document does not set it")

	cmd.AddCommand(newApplyCmd(flags))
	cmd.AddCommand(newVerifyCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadSettings resolves runtime settings with the flags of cmd bound on top.
func loadSettings(cmd *cobra.Command) (settings.Settings, error) {
	loader := newSettingsLoader()
	for key, name := range settingsFlags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := loader.BindFlag(key, flag); err != nil {
			return settings.Settings{}, err
		}
	}
	return loader.Load()
}

func loggerOptions(s settings.Settings, verbose bool, w io.Writer, runID string) logger.Options {
	level := s.Log.Level
	if verbose {
		level = "debug"
	}
	return logger.Options{
		Level:         level,
		HumanReadable: s.HumanReadable(),
		Writer:        w,
		RunID:         runID,
	}
}
