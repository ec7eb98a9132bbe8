package domain

import (
	"time"

	"github.com/sgeisler/testinator/internal/constants"
)

// Job is one (toolchain, combination) pair of the test matrix.
// Jobs are created by the matrix builder and consumed exactly once.
type Job struct {
	// Version is the owning toolchain's name.
	Version string `json:"version"`

	// Combination is the set of features enabled for this job.
	Combination FeatureCombination `json:"features"`

	// Index is the job's position within its version's canonical order.
	Index int `json:"index"`
}

// JobOutcome is the closed variant recorded for a job.
//
//   - Success: Duration
//   - Failure: ExitCode, Stdout, Stderr, Duration
//   - SetupFailed: Reason (the job never ran)
type JobOutcome struct {
	Kind     constants.OutcomeKind `json:"kind"`
	ExitCode int                   `json:"exit_code,omitempty"`
	Stdout   string                `json:"stdout,omitempty"`
	Stderr   string                `json:"stderr,omitempty"`
	Duration time.Duration         `json:"duration_ns,omitempty"`
	Reason   string                `json:"reason,omitempty"`
}

// Success builds a successful outcome.
func Success(d time.Duration) JobOutcome {
	return JobOutcome{Kind: constants.OutcomeSuccess, Duration: d}
}

// Failure builds an outcome for a test process that exited non-zero.
func Failure(exitCode int, stdout, stderr string, d time.Duration) JobOutcome {
	return JobOutcome{
		Kind:     constants.OutcomeFailure,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: d,
	}
}

// SetupFailed builds an outcome for a job whose workspace never came up.
func SetupFailed(reason string) JobOutcome {
	return JobOutcome{Kind: constants.OutcomeSetupFailed, Reason: reason}
}

// IsSuccess reports whether the outcome is the Success variant.
func (o JobOutcome) IsSuccess() bool {
	return o.Kind == constants.OutcomeSuccess
}

// JobResult pairs a job with its recorded outcome.
type JobResult struct {
	Job     Job        `json:"job"`
	Outcome JobOutcome `json:"outcome"`
}
