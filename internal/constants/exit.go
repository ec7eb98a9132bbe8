package constants

// Process exit codes.
const (
	// ExitOK means every job and fuzz target succeeded.
	ExitOK = 0
	// ExitFailure means at least one job failed or fuzz target crashed.
	ExitFailure = 1
	// ExitUsage means the config or the command line was invalid; nothing ran.
	ExitUsage = 2
	// ExitSetupFailed means a toolchain or workspace could not be prepared.
	// It takes precedence over ExitFailure.
	ExitSetupFailed = 3
	// ExitInterrupted means the run was aborted by a signal.
	ExitInterrupted = 130
)
