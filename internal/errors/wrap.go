package errors

import "fmt"

// Wrap adds context to errors at package boundaries.
// It returns nil if err is nil, allowing for safe inline usage:
//
//	if err := m.copier.CopyTree(src, dst); err != nil {
//	    return errors.Wrap(err, "copy project tree")
//	}
//
// The original chain is preserved, so errors.Is(err, ErrSetupFailed) keeps working.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf adds formatted context to errors at package boundaries.
// It returns nil if err is nil.
//
//	return errors.Wrapf(err, "pin %s to %s", pin.Dependency, pin.Version)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// Join attaches a sentinel category to a concrete cause so both are matchable
// with errors.Is. The message reads "<category>: <cause>".
func Join(category, cause error) error {
	if cause == nil {
		return category
	}
	return fmt.Errorf("%w: %w", category, cause)
}
