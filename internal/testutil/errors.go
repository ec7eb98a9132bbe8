// Package testutil provides testing utilities for testinator.
//
// This package contains mock errors and a scripted command runner used across
// test files. It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
// These errors are used to simulate various failure scenarios in tests.
var (
	// ErrMockExit indicates a mock process exited non-zero (used in tests).
	ErrMockExit = errors.New("exit status non-zero")

	// ErrMockNotInstalled indicates a mock executable was not found (used in tests).
	ErrMockNotInstalled = errors.New("executable file not found in $PATH")

	// ErrMockNetwork indicates a mock network error occurred (used in tests).
	ErrMockNetwork = errors.New("network error")

	// ErrMockCopy indicates a mock copy failure (used in tests).
	ErrMockCopy = errors.New("copy failed")
)
