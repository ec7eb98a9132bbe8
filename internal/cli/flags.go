package cli

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/errors"
)

// Flags holds the command-line flags of the root command.
type Flags struct {
	// Output specifies the summary format (text or json).
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
	// Install installs every toolchain before testing.
	Install bool
	// Simple tests only the empty set, each single feature and all features.
	Simple bool
	// Plan prints the computed matrix and exits.
	Plan bool
}

// AddFlags adds the root command flags.
func AddFlags(cmd *cobra.Command, flags *Flags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", "text", "summary format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.Flags().BoolVar(&flags.Install, "install", false, "install every toolchain with rustup before testing")
	cmd.Flags().BoolVar(&flags.Simple, "simple", false, "test the empty set, each single feature and all features instead of the powerset")
	cmd.Flags().BoolVar(&flags.Plan, "plan", false, "print the test matrix as YAML and exit")
}

// BindFlags binds the flags to Viper so they can also be set through
// TESTINATOR_* environment variables (e.g. TESTINATOR_SIMPLE=true).
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	root := cmd.Root()
	for _, name := range []string{"output", "verbose", "quiet"} {
		if err := v.BindPFlag(name, root.PersistentFlags().Lookup(name)); err != nil {
			return err
		}
	}
	for _, name := range []string{"install", "simple", "plan"} {
		if err := v.BindPFlag(name, root.Flags().Lookup(name)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	return nil
}

// Resolve copies the bound values back into flags, so environment
// variables take effect where no flag was given.
func (f *Flags) Resolve(v *viper.Viper) {
	f.Output = v.GetString("output")
	f.Verbose = v.GetBool("verbose")
	f.Quiet = v.GetBool("quiet")
	f.Install = v.GetBool("install")
	f.Simple = v.GetBool("simple")
	f.Plan = v.GetBool("plan")
}

// Mode returns the matrix mode selected by the flags.
func (f *Flags) Mode() constants.MatrixMode {
	if f.Simple {
		return constants.ModeSimple
	}
	return constants.ModeFull
}

// ExitError carries the exit status of a finished run. The summary has
// already been printed when it is returned.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeForError returns the process exit status for err.
// Configuration and usage problems map to constants.ExitUsage; an
// ExitError carries its own code; anything else is constants.ExitFailure.
func ExitCodeForError(err error) int {
	if err == nil {
		return constants.ExitOK
	}

	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}

	for _, sentinel := range []error{
		errors.ErrConfigInvalid,
		errors.ErrConfigNotFound,
		errors.ErrInvalidVersion,
		errors.ErrAmbiguousEligibility,
		errors.ErrInvalidOutputFormat,
	} {
		if errors.Is(err, sentinel) {
			return constants.ExitUsage
		}
	}

	if errors.Is(err, errors.ErrInterrupted) {
		return constants.ExitInterrupted
	}

	if isInvalidInputError(err.Error()) {
		return constants.ExitUsage
	}

	return constants.ExitFailure
}

// isInvalidInputError checks if an error message indicates invalid user input.
// This catches Cobra's built-in flag and argument validation errors.
func isInvalidInputError(errMsg string) bool {
	invalidInputPatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
		"accepts 1 arg(s)",
	}

	for _, pattern := range invalidInputPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
