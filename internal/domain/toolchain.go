// Package domain provides shared domain types for testinator.
//
// Types here are plain data. Configuration-derived values (ToolchainVersion,
// Feature) are immutable once built and are shared by reference across workers.
package domain

// PinningRule forces a dependency to an exact version inside one toolchain's
// workspace before anything is built.
type PinningRule struct {
	// Dependency is the crate name passed to `cargo update -p`.
	Dependency string `json:"dependency" yaml:"dependency"`

	// Version is the exact version passed to `--precise`.
	Version string `json:"version" yaml:"version"`
}

// ToolchainVersion is one compiler toolchain under test.
type ToolchainVersion struct {
	// Name is a channel ("nightly", "stable", "beta-2020-01-01") or a numeric
	// version ("1.29.0"). It is passed verbatim as `+<name>` to cargo.
	Name string `json:"name" yaml:"name"`

	// Pins are applied in order when the workspace is prepared.
	Pins []PinningRule `json:"requires_pinning,omitempty" yaml:"requires_pinning,omitempty"`
}

// Feature is an optional cargo feature of the project under test.
type Feature struct {
	Name string `json:"name" yaml:"name"`

	// MinRust is the lowest toolchain the feature may be enabled on.
	// Empty means no constraint.
	MinRust string `json:"min_rust,omitempty" yaml:"min_rust,omitempty"`
}

// HasConstraint reports whether the feature carries a min_rust constraint.
func (f Feature) HasConstraint() bool {
	return f.MinRust != ""
}
