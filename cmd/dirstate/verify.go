package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/engine"
	"github.com/alexisbeaulieu97/dirstate/internal/logger"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/plugin"
	"github.com/alexisbeaulieu97/dirstate/internal/settings"
	dserrors "github.com/alexisbeaulieu97/dirstate/pkg/errors"
)

const (
	exitConfigError  = 2
	exitRuntimeError = 3
)

type verifyOptions struct {
	ConfigPath string
	Verbose    bool
	JSON       bool
	Limits     runLimits
	Settings   settings.Settings
}

type verificationExecutor interface {
	VerifySteps(execCtx *engine.ExecutionContext, steps []config.Step, defaultTimeout time.Duration) (*model.VerificationSummary, error)
}

var (
	verifyCmdRunner = runVerify

	parseConfigFunc = config.ParseConfig
	newExecutorFunc = func(log *logger.Logger) verificationExecutor {
		return engine.NewExecutor(log)
	}
	exitFunc               = os.Exit
	stdoutWriter io.Writer = os.Stdout
	stderrWriter io.Writer = os.Stderr

	printTableOutputFunc   = printTableOutput
	printVerboseOutputFunc = printVerboseOutput
	printJSONOutputFunc    = printJSONOutput
)

func newVerifyCmd(root *rootFlags) *cobra.Command {
	opts := verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify <config-file>",
		Short: "Verify directories match a declaration without making changes",
		Long: `Verify performs read-only checks to determine whether every declared
directory is in its desired state. Exit codes: 0 all steps satisfied,
1 changes needed, 2 configuration error, 3 runtime error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = args[0]
			opts.Verbose = root.verbose
			opts.Limits = limitsFromFlags(cmd.Flags())

			s, err := loadSettings(cmd)
			if err != nil {
				fmt.Fprintf(stderrWriter, "Error loading settings: %v\n", err)
				exitFunc(exitConfigError)
				return nil
			}
			opts.Settings = s

			return verifyCmdRunner(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results in JSON format")
	cmd.Flags().Duration("timeout", 30*time.Second, "Default timeout per step; accepts Go duration strings (e.g. 60s)")

	return cmd
}

func runVerify(ctx context.Context, opts verifyOptions) error {
	code, err := runVerifyInternal(ctx, opts)
	if err != nil {
		return err
	}
	exitFunc(code)
	return nil
}

func runVerifyInternal(ctx context.Context, opts verifyOptions) (int, error) {
	cfg, err := parseConfigFunc(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderrWriter, "Error parsing configuration: %v\n", err)
		return exitConfigError, nil
	}

	logOpts := loggerOptions(opts.Settings, opts.Verbose || cfg.Settings.Verbose, stderrWriter, logger.NewRunID(time.Now()))
	if opts.JSON {
		logOpts.HumanReadable = false
	}
	log, err := newLoggerFunc(logOpts)
	if err != nil {
		fmt.Fprintf(stderrWriter, "Error creating logger: %v\n", err)
		return exitRuntimeError, nil
	}

	registry, err := getRegistryFunc(log)
	if err != nil {
		fmt.Fprintf(stderrWriter, "Error preparing plugins: %v\n", err)
		return exitRuntimeError, nil
	}

	_, perStepTimeout := opts.Limits.resolve(cfg, opts.Settings)
	if perStepTimeout <= 0 && cfg.Settings.Timeout > 0 {
		perStepTimeout = time.Duration(cfg.Settings.Timeout) * time.Second
	}
	if perStepTimeout > 0 {
		var cancel context.CancelFunc
		totalTimeout := perStepTimeout * time.Duration(len(cfg.Steps))
		if len(cfg.Steps) == 0 {
			totalTimeout = perStepTimeout
		}
		ctx, cancel = context.WithTimeout(ctx, totalTimeout)
		defer cancel()
	}

	log.WithFields(map[string]any{
		"config": opts.ConfigPath,
		"steps":  len(cfg.Steps),
	}).Info("starting verification")

	executor := newExecutorFunc(log)
	execCtx := &engine.ExecutionContext{
		Config:   cfg,
		Registry: registry,
		Logger:   log,
		Context:  ctx,
	}

	summary, err := executor.VerifySteps(execCtx, cfg.Steps, perStepTimeout)
	if err != nil {
		if isConfigError(err) {
			fmt.Fprintf(stderrWriter, "Configuration error: %v\n", err)
			return exitConfigError, nil
		}
		fmt.Fprintf(stderrWriter, "Verification error: %v\n", err)
		return exitRuntimeError, nil
	}

	log.WithFields(map[string]any{
		"total":     summary.TotalSteps,
		"satisfied": summary.Satisfied,
		"missing":   summary.Missing,
		"drifted":   summary.Drifted,
		"blocked":   summary.Blocked,
		"unknown":   summary.Unknown,
		"duration":  summary.Duration.String(),
	}).Info("verification complete")

	switch {
	case opts.JSON:
		if err := printJSONOutputFunc(summary, opts.ConfigPath); err != nil {
			fmt.Fprintf(stderrWriter, "Error writing JSON output: %v\n", err)
			return exitRuntimeError, nil
		}
	case opts.Verbose:
		printVerboseOutputFunc(summary)
	default:
		printTableOutputFunc(summary)
	}

	return summary.ExitCode(), nil
}

func isConfigError(err error) bool {
	var validationErr *dserrors.ValidationError
	var parseErr *dserrors.ParseError
	var stepErr *plugin.ValidationError
	return errors.As(err, &validationErr) || errors.As(err, &parseErr) || errors.As(err, &stepErr)
}

func printTableOutput(summary *model.VerificationSummary) {
	w := stdoutWriter

	fmt.Fprintln(w, "\nVerification Results:")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%-40s %-12s %-8s %s\n", "Step ID", "Status", "Duration", "Message")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, result := range summary.Results {
		symbol := getStatusSymbol(result.Status)
		duration := fmt.Sprintf("%.2fs", result.Duration.Seconds())
		message := truncateString(result.Message, 40)

		fmt.Fprintf(w, "%-40s %-12s %-8s %s\n",
			truncateString(result.StepID, 40),
			fmt.Sprintf("%s %s", symbol, result.Status),
			duration,
			message,
		)
	}

	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "  Total:     %d\n", summary.TotalSteps)
	fmt.Fprintf(w, "  ✔ Satisfied: %d\n", summary.Satisfied)
	fmt.Fprintf(w, "  ✖ Missing:   %d\n", summary.Missing)
	fmt.Fprintf(w, "  ⚠ Drifted:   %d\n", summary.Drifted)
	fmt.Fprintf(w, "  🚫 Blocked:  %d\n", summary.Blocked)
	fmt.Fprintf(w, "  ? Unknown:  %d\n", summary.Unknown)
	fmt.Fprintf(w, "  Duration:  %s\n", summary.Duration.String())

	if summary.AllSatisfied() {
		fmt.Fprintln(w, "\n✅ All steps satisfied - no changes needed")
	} else {
		fmt.Fprintln(w, "\n❌ Changes needed - run 'dirstate apply' to fix")
	}
}

func printVerboseOutput(summary *model.VerificationSummary) {
	printTableOutput(summary)

	w := stdoutWriter
	hasDetails := false
	for _, result := range summary.Results {
		if result.Status == model.StatusDrifted && result.Details != "" {
			if !hasDetails {
				fmt.Fprintln(w, "\nDetailed Diff Output:")
				fmt.Fprintln(w, strings.Repeat("=", 80))
				hasDetails = true
			}
			fmt.Fprintf(w, "\n--- Step: %s ---\n", result.StepID)
			fmt.Fprintln(w, result.Details)
		}
		if (result.Status == model.StatusBlocked || result.Status == model.StatusUnknown) && result.Error != nil {
			if !hasDetails {
				fmt.Fprintln(w, "\nError Details:")
				fmt.Fprintln(w, strings.Repeat("=", 80))
				hasDetails = true
			}
			fmt.Fprintf(w, "\n--- Step: %s ---\n", result.StepID)
			fmt.Fprintf(w, "Error: %v\n", result.Error)
		}
	}
}

type jsonResult struct {
	StepID    string  `json:"step_id"`
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Details   string  `json:"details,omitempty"`
	Error     string  `json:"error,omitempty"`
	Duration  float64 `json:"duration_seconds"`
	Timestamp string  `json:"timestamp"`
}

type jsonSummary struct {
	TotalSteps int     `json:"total_steps"`
	Satisfied  int     `json:"satisfied"`
	Missing    int     `json:"missing"`
	Drifted    int     `json:"drifted"`
	Blocked    int     `json:"blocked"`
	Unknown    int     `json:"unknown"`
	Duration   float64 `json:"duration_seconds"`
}

type jsonOutput struct {
	ConfigFile string       `json:"config_file"`
	Summary    jsonSummary  `json:"summary"`
	Results    []jsonResult `json:"results"`
}

func printJSONOutput(summary *model.VerificationSummary, configPath string) error {
	out := jsonOutput{
		ConfigFile: configPath,
		Summary: jsonSummary{
			TotalSteps: summary.TotalSteps,
			Satisfied:  summary.Satisfied,
			Missing:    summary.Missing,
			Drifted:    summary.Drifted,
			Blocked:    summary.Blocked,
			Unknown:    summary.Unknown,
			Duration:   summary.Duration.Seconds(),
		},
		Results: make([]jsonResult, len(summary.Results)),
	}

	for i, result := range summary.Results {
		entry := jsonResult{
			StepID:    result.StepID,
			Status:    string(result.Status),
			Message:   result.Message,
			Details:   result.Details,
			Duration:  result.Duration.Seconds(),
			Timestamp: result.Timestamp.Format(time.RFC3339),
		}
		if result.Error != nil {
			entry.Error = result.Error.Error()
		}
		out.Results[i] = entry
	}

	encoder := json.NewEncoder(stdoutWriter)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func getStatusSymbol(status model.VerificationStatus) string {
	switch status {
	case model.StatusSatisfied:
		return "✔"
	case model.StatusMissing:
		return "✖"
	case model.StatusDrifted:
		return "⚠"
	case model.StatusBlocked:
		return "🚫"
	default:
		return "?"
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
