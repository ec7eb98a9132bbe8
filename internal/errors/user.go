package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to user-facing messages.
// A slice rather than a map because errors.Is() must walk wrapped chains in order.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	{
		err: ErrAmbiguousEligibility,
		info: ErrorInfo{
			Message: "A feature's min_rust cannot be compared with a configured toolchain.",
			Action:  "Use a numeric min_rust, or only pair channel constraints with channel toolchains.",
		},
	},
	{
		err: ErrInvalidVersion,
		info: ErrorInfo{
			Message: "A toolchain identifier is neither a channel nor a numeric version.",
			Action:  "Use nightly, beta, stable (optionally date-suffixed) or a version like 1.41.0.",
		},
	},
	{
		err: ErrConfigNotFound,
		info: ErrorInfo{
			Message: "The configuration file could not be found.",
			Action:  "Check the path passed as the first argument.",
		},
	},
	{
		err: ErrConfigInvalid,
		info: ErrorInfo{
			Message: "The configuration file is invalid.",
			Action:  "Fix the field named in the error and run again.",
		},
	},
	{
		err: ErrToolchainInstall,
		info: ErrorInfo{
			Message: "A toolchain could not be installed.",
			Action:  "Check that rustup is on PATH and the toolchain name exists.",
		},
	},
	{
		err: ErrSetupFailed,
		info: ErrorInfo{
			Message: "A workspace could not be prepared.",
			Action:  "Check disk space and the requires_pinning entries for that toolchain.",
		},
	},
	{
		err: ErrInterrupted,
		info: ErrorInfo{
			Message: "The run was interrupted.",
		},
	},
	{
		err: ErrRunFailed,
		info: ErrorInfo{
			Message: "Some jobs did not pass. See the summary above.",
		},
	},
}

// getErrorInfo looks up the ErrorInfo for a given error, walking wrapped chains.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing useful to suggest.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
