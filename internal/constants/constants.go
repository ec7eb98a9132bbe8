// Package constants provides centralized constant values used throughout testinator.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by testinator.
const (
	// AppHome is the hidden directory name where testinator keeps its logs.
	// This directory is created in the user's home directory.
	AppHome = ".testinator"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// CLILogFileName is the name of the rotating CLI log file.
	CLILogFileName = "testinator.log"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "TESTINATOR"

	// HomeEnvVar overrides the AppHome location.
	HomeEnvVar = "TESTINATOR_HOME"
)

// Log rotation settings for lumberjack.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 14
	LogCompress   = true
)

// Execution defaults.
const (
	// DefaultJobTimeout bounds a single `cargo test` invocation.
	DefaultJobTimeout = 30 * time.Minute

	// DefaultPar is used when the configuration does not set par.
	DefaultPar = 1

	// ProcessKillGrace is how long an interrupted process gets between
	// SIGTERM and SIGKILL.
	ProcessKillGrace = 5 * time.Second
)

// Toolchain channel names.
const (
	ChannelNightly = "nightly"
	ChannelBeta    = "beta"
	ChannelStable  = "stable"
)

// Files and directories handled inside a project tree.
const (
	// LockFileName is removed from every fresh workspace; lockfiles written by a
	// newer toolchain may not parse on older ones.
	LockFileName = "Cargo.lock"

	// FuzzTargetsDir holds one source file per fuzz target below the fuzz crate.
	FuzzTargetsDir = "fuzz_targets"
)

// ExcludedDirs are never copied into a workspace.
//
//nolint:gochecknoglobals // read-only lookup table
var ExcludedDirs = map[string]bool{
	"target": true,
	".git":   true,
}

// Honggfuzz environment passed to `cargo hfuzz run`.
const (
	HfuzzBuildArgsEnv = "HFUZZ_BUILD_ARGS"
	HfuzzRunArgsEnv   = "HFUZZ_RUN_ARGS"
	HfuzzBuildArgs    = "--features honggfuzz_fuzz"
)
