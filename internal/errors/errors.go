// Package errors provides centralized error handling for testinator.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// Job and fuzz outcomes are NOT errors: they are recorded as domain outcomes
// and never propagate upward. The sentinels here classify failures of the
// run itself (configuration, setup, installation, interruption).
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
var (
	// ErrConfigInvalid indicates a malformed or missing configuration field.
	// It is fatal and aborts the run before any work starts.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigNotFound indicates that the configuration file was not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidVersion indicates a toolchain identifier that is neither a
	// known channel nor a numeric version.
	ErrInvalidVersion = errors.New("invalid toolchain version")

	// ErrAmbiguousEligibility indicates that a feature's min_rust constraint
	// cannot be decided for a toolchain version without guessing an ordering.
	ErrAmbiguousEligibility = errors.New("ambiguous feature eligibility")

	// ErrToolchainInstall indicates that installing a toolchain failed.
	// It is fatal for that version only.
	ErrToolchainInstall = errors.New("toolchain installation failed")

	// ErrSetupFailed indicates that a workspace could not be prepared
	// (copy or dependency pinning). It is fatal for that version only.
	ErrSetupFailed = errors.New("workspace setup failed")

	// ErrPinFailed indicates that pinning a dependency to an exact version failed.
	ErrPinFailed = errors.New("dependency pinning failed")

	// ErrJobFailed indicates that a test invocation exited non-zero.
	ErrJobFailed = errors.New("job failed")

	// ErrFuzzCrash indicates that a fuzz target found a fault.
	ErrFuzzCrash = errors.New("fuzz target crashed")

	// ErrFuzzTargetsNotFound indicates the fuzz target directory could not be read.
	ErrFuzzTargetsNotFound = errors.New("fuzz targets not found")

	// ErrCommandFailed indicates that an external command could not be run
	// or exited non-zero.
	ErrCommandFailed = errors.New("command failed")

	// ErrCommandTimeout indicates a command exceeded its timeout duration.
	ErrCommandTimeout = errors.New("command timeout exceeded")

	// ErrInterrupted indicates the run was aborted by the operator.
	ErrInterrupted = errors.New("run interrupted")

	// ErrRunFailed indicates that at least one job or fuzz target did not succeed.
	// The CLI returns it to obtain a non-zero exit status after the summary is printed.
	ErrRunFailed = errors.New("test matrix failed")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")
)

// Is reports whether any error in err's chain matches target.
// Re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
