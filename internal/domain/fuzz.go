package domain

import (
	"time"

	"github.com/sgeisler/testinator/internal/constants"
)

// FuzzJob runs one fuzz target for a fixed time budget.
type FuzzJob struct {
	Target   string        `json:"target"`
	Version  string        `json:"version"`
	Duration time.Duration `json:"duration_ns"`
}

// FuzzOutcome is the closed variant recorded for a fuzz job: Success,
// Crash (Output set) or SetupFailed (Reason set, the target never ran).
type FuzzOutcome struct {
	Kind     constants.OutcomeKind `json:"kind"`
	Output   string                `json:"output,omitempty"`
	Reason   string                `json:"reason,omitempty"`
	Elapsed  time.Duration         `json:"elapsed_ns,omitempty"`
	ExitCode int                   `json:"exit_code,omitempty"`
}

// FuzzSuccess builds a successful fuzz outcome.
func FuzzSuccess(elapsed time.Duration) FuzzOutcome {
	return FuzzOutcome{Kind: constants.OutcomeSuccess, Elapsed: elapsed}
}

// FuzzCrash builds a fuzz outcome carrying the captured output.
func FuzzCrash(exitCode int, output string, elapsed time.Duration) FuzzOutcome {
	return FuzzOutcome{Kind: constants.OutcomeCrash, ExitCode: exitCode, Output: output, Elapsed: elapsed}
}

// FuzzSetupFailed builds a fuzz outcome for a phase that could not start.
func FuzzSetupFailed(reason string) FuzzOutcome {
	return FuzzOutcome{Kind: constants.OutcomeSetupFailed, Reason: reason}
}

// IsSuccess reports whether the outcome is the Success variant.
func (o FuzzOutcome) IsSuccess() bool {
	return o.Kind == constants.OutcomeSuccess
}

// FuzzResult pairs a fuzz job with its outcome.
type FuzzResult struct {
	Job     FuzzJob     `json:"job"`
	Outcome FuzzOutcome `json:"outcome"`
}
