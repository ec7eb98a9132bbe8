// Package cli provides the command-line interface for testinator.
//
// Import rules:
//   - CAN import: every internal package
//   - MUST NOT be imported by any internal package
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sgeisler/testinator/internal/errors"
	"github.com/sgeisler/testinator/internal/report"
	"github.com/sgeisler/testinator/internal/toolchain"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// runtimeDeps are the collaborators a run reaches outside the process.
// Tests replace them; Execute uses the real ones.
type runtimeDeps struct {
	// runner executes rustup, rustc and cargo.
	runner toolchain.CommandRunner
	// logFile enables the rotating log file.
	logFile bool
}

// newRootCmd creates and returns the root command for the testinator CLI.
func newRootCmd(flags *Flags, info BuildInfo, deps runtimeDeps) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "testinator <config>",
		Short: "Run a crate's test suite across toolchains and feature combinations",
		Long: `testinator runs cargo test for every configured Rust toolchain against every
eligible combination of optional features, each toolchain in its own copy of
the project. Output of failing jobs is printed in full; passing jobs stay quiet.

The configuration file (.json, .yaml or .toml) names the project, the
toolchains with their dependency pins, the features with optional min_rust
constraints, the number of toolchains tested at once (par) and an optional
honggfuzz phase run after the matrix.

Exit status: 0 all passed, 1 a job failed or a fuzz target crashed,
2 invalid configuration or usage, 3 a toolchain could not be set up,
130 interrupted.`,
		Version: formatVersion(info),
		Args:    cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			flags.Resolve(v)

			if _, err := report.ParseFormat(flags.Output); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrix(cmd.Context(), cmd, flags, args[0], deps)
		},
		// SilenceUsage prevents printing usage on error
		// (we handle our own error messages)
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddFlags(cmd, flags)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command and returns the process exit status.
func Execute(ctx context.Context, info BuildInfo) int {
	flags := &Flags{}
	//nolint:contextcheck // Cobra command pattern uses cmd.Context() internally
	cmd := newRootCmd(flags, info, runtimeDeps{runner: &toolchain.ExecRunner{}, logFile: true})
	err := cmd.ExecuteContext(ctx)
	printError(cmd.ErrOrStderr(), err)
	return ExitCodeForError(err)
}

// printError writes err and a suggested action to w. Errors carrying an
// exit status are not printed; the summary already explains them.
func printError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}

	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	message, action := errors.Actionable(err)
	if message != err.Error() {
		_, _ = fmt.Fprintf(w, "  %s\n", message)
	}
	if action != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", action)
	}
}
