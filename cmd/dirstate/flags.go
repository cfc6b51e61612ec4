package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/settings"
)

func validateApplyOptions(opts applyOptions) error {
	if strings.TrimSpace(opts.ConfigPath) == "" {
		return fmt.Errorf("config file is required")
	}

	abs, err := filepath.Abs(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("config file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", abs)
	}

	return nil
}

// runLimits picks the worker count and per-step timeout for a run. The
// document's own settings win unless the matching flag was given; the user
// settings fill whatever is still unset.
type runLimits struct {
	ParallelForced bool
	TimeoutForced  bool
}

func limitsFromFlags(flags *pflag.FlagSet) runLimits {
	return runLimits{
		ParallelForced: flags.Changed("parallel"),
		TimeoutForced:  flags.Changed("timeout"),
	}
}

func (l runLimits) resolve(cfg *config.Config, s settings.Settings) (int, time.Duration) {
	parallel := 0
	if l.ParallelForced || cfg.Settings.Parallel == 0 {
		parallel = s.Parallel
	}

	timeout := time.Duration(0)
	if l.TimeoutForced || cfg.Settings.Timeout == 0 {
		timeout = s.Timeout
	}
	return parallel, timeout
}
