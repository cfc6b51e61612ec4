package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/engine"
	"github.com/alexisbeaulieu97/dirstate/internal/logger"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/settings"
	"github.com/alexisbeaulieu97/dirstate/internal/tui"
)

type applyOptions struct {
	ConfigPath     string
	DryRun         bool
	Verbose        bool
	NonInteractive bool
	Limits         runLimits
	Settings       settings.Settings
	Out            io.Writer
	Err            io.Writer
}

var (
	applyCmdRunner = runApply
	isTerminal     = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
)

func newApplyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Converge directories to a declaration document",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DryRun = root.dryRun
			opts.Verbose = root.verbose
			opts.NonInteractive = !isTerminal()
			opts.Limits = limitsFromFlags(cmd.Flags())
			opts.Out = cmd.OutOrStdout()
			opts.Err = cmd.ErrOrStderr()

			if err := validateApplyOptions(opts); err != nil {
				return err
			}

			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			opts.Settings = s

			return applyCmdRunner(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to declaration document (.yaml or .toml)")
	cmd.Flags().Duration("timeout", 0, "Per-step timeout; accepts Go duration strings (e.g. 45s)")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runApply(ctx context.Context, opts applyOptions) error {
	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	graph, err := engine.BuildDAG(cfg.Steps)
	if err != nil {
		return err
	}
	plan, err := engine.GeneratePlan(graph)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	effectiveDryRun := opts.DryRun || cfg.Settings.DryRun
	effectiveVerbose := opts.Verbose || cfg.Settings.Verbose
	interactive := !opts.NonInteractive
	runID := logger.NewRunID(time.Now())

	// Log lines would tear the progress view, so an interactive run only
	// logs when asked to.
	logWriter := opts.Err
	if interactive && !effectiveVerbose {
		logWriter = io.Discard
	}
	log, err := newLoggerFunc(loggerOptions(opts.Settings, effectiveVerbose, logWriter, runID))
	if err != nil {
		return err
	}

	registry, err := getRegistryFunc(log)
	if err != nil {
		return fmt.Errorf("prepare plugins: %w", err)
	}

	parallel, timeout := opts.Limits.resolve(cfg, opts.Settings)
	applyOpts := engine.ApplyOptions{
		DryRun:      effectiveDryRun,
		Parallel:    parallel,
		StepTimeout: timeout,
		Logger:      log,
	}

	modelState := tui.NewModel(cfg, plan, tui.Options{
		DryRun:   effectiveDryRun,
		RunID:    runID,
		OnCancel: cancel,
	})

	var report *engine.ApplyReport
	var execErr error

	if interactive {
		program := tea.NewProgram(modelState)
		applyOpts.OnStepComplete = func(res model.StepResult) {
			program.Send(tui.StepCompleteMsg{Result: res})
		}

		done := make(chan error, 1)
		go func() {
			_, runErr := program.Run()
			done <- runErr
		}()

		report, execErr = engine.ApplyConfig(ctx, cfg, registry, applyOpts)
		program.Send(tui.RunFinishedMsg{Err: execErr})
		if programErr := <-done; programErr != nil {
			return programErr
		}
	} else {
		report, execErr = engine.ApplyConfig(ctx, cfg, registry, applyOpts)
		var results []model.StepResult
		if report != nil {
			results = report.Results
		}
		fmt.Fprintln(opts.Out, modelState.WithResults(results, execErr).View())
	}

	if execErr != nil {
		return execErr
	}
	if report != nil && !report.Succeeded() {
		return fmt.Errorf("%d step(s) failed", len(report.FailedSteps))
	}
	return nil
}
