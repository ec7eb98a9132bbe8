package report

import (
	"time"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
)

// VersionSummary counts outcomes for one toolchain.
type VersionSummary struct {
	Version     string `json:"version"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	SetupFailed int    `json:"setup_failed"`
}

// Total returns the number of recorded jobs for the version.
func (s VersionSummary) Total() int {
	return s.Passed + s.Failed + s.SetupFailed
}

// RunReport is the final result of a run.
type RunReport struct {
	RunID       string              `json:"run_id"`
	Interrupted bool                `json:"interrupted"`
	Versions    []VersionSummary    `json:"versions"`
	Jobs        []domain.JobResult  `json:"jobs"`
	Failures    []domain.JobResult  `json:"failures"`
	Fuzz        []domain.FuzzResult `json:"fuzz,omitempty"`
	NotRun      int                 `json:"not_run"`
	Duration    time.Duration       `json:"duration_ns"`
}

// Totals sums the per-version counts.
func (r *RunReport) Totals() VersionSummary {
	var t VersionSummary
	for _, v := range r.Versions {
		t.Passed += v.Passed
		t.Failed += v.Failed
		t.SetupFailed += v.SetupFailed
	}
	return t
}

// Success reports whether every job and fuzz target succeeded and the run
// was not interrupted.
func (r *RunReport) Success() bool {
	return r.ExitCode() == constants.ExitOK
}

// ExitCode maps the report to the process exit status. Interruption wins,
// then setup failures, then job failures and fuzz crashes.
func (r *RunReport) ExitCode() int {
	if r.Interrupted {
		return constants.ExitInterrupted
	}

	failed := false
	for _, j := range r.Jobs {
		switch j.Outcome.Kind {
		case constants.OutcomeSetupFailed:
			return constants.ExitSetupFailed
		case constants.OutcomeFailure:
			failed = true
		}
	}
	for _, f := range r.Fuzz {
		switch f.Outcome.Kind {
		case constants.OutcomeSetupFailed:
			return constants.ExitSetupFailed
		case constants.OutcomeCrash:
			failed = true
		}
	}

	if failed {
		return constants.ExitFailure
	}
	return constants.ExitOK
}

// Err returns nil for a successful run, otherwise ErrRunFailed joined with
// the category that decided the exit status.
func (r *RunReport) Err() error {
	switch r.ExitCode() {
	case constants.ExitOK:
		return nil
	case constants.ExitInterrupted:
		return errors.Join(errors.ErrRunFailed, errors.ErrInterrupted)
	case constants.ExitSetupFailed:
		return errors.Join(errors.ErrRunFailed, errors.ErrSetupFailed)
	}
	for _, j := range r.Jobs {
		if j.Outcome.Kind == constants.OutcomeFailure {
			return errors.Join(errors.ErrRunFailed, errors.ErrJobFailed)
		}
	}
	return errors.Join(errors.ErrRunFailed, errors.ErrFuzzCrash)
}
