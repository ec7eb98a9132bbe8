package constants

// OutcomeKind identifies which variant a job or fuzz outcome holds.
// The set is closed; the report and engine switch on it exhaustively.
type OutcomeKind string

// Job outcome kinds.
const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeFailure     OutcomeKind = "failure"
	OutcomeSetupFailed OutcomeKind = "setup_failed"
)

// Fuzz outcome kinds. OutcomeSuccess and OutcomeSetupFailed are shared.
const (
	OutcomeCrash OutcomeKind = "crash"
)

// String returns the string representation of the OutcomeKind.
func (k OutcomeKind) String() string {
	return string(k)
}

// MatrixMode selects how feature combinations are generated.
type MatrixMode string

// Matrix modes.
const (
	// ModeFull is the powerset of eligible features.
	ModeFull MatrixMode = "full"
	// ModeSimple is the empty set, each singleton and the full set.
	ModeSimple MatrixMode = "simple"
)

// String returns the string representation of the MatrixMode.
func (m MatrixMode) String() string {
	return string(m)
}
