// Package config loads and validates the testinator run configuration.
//
// Configuration sources (highest precedence first):
//  1. Environment variables (TESTINATOR_* prefix, e.g. TESTINATOR_PAR)
//  2. The configuration file named on the command line (.json, .yaml, .toml)
//  3. Built-in defaults
//
// IMPORTANT: This package may import internal/constants, internal/domain and
// internal/errors, but MUST NOT import any other internal packages.
package config

import (
	"time"

	"github.com/sgeisler/testinator/internal/domain"
)

// Config is the immutable description of a run. After Load returns it is
// shared read-only by every component.
type Config struct {
	// Repo is the project to test. Relative paths are resolved against the
	// directory holding the configuration file.
	Repo string `json:"repo" yaml:"repo" mapstructure:"repo"`

	// Rust lists the toolchains to test, in the order results are reported.
	Rust []RustConfig `json:"rust" yaml:"rust" mapstructure:"rust"`

	// Features lists the optional cargo features that make up the matrix.
	Features []FeatureConfig `json:"features" yaml:"features" mapstructure:"features"`

	// Par bounds concurrently live workspaces and workers.
	Par int `json:"par" yaml:"par" mapstructure:"par"`

	// Fuzzing enables the fuzz phase when set.
	Fuzzing *FuzzingConfig `json:"fuzzing,omitempty" yaml:"fuzzing,omitempty" mapstructure:"fuzzing"`

	// JobTimeout bounds a single test invocation.
	// Default: 30m
	JobTimeout time.Duration `json:"job_timeout" yaml:"job_timeout" mapstructure:"job_timeout"`

	// WorkDir is the parent directory for workspaces. Empty means the OS temp dir.
	WorkDir string `json:"work_dir,omitempty" yaml:"work_dir,omitempty" mapstructure:"work_dir"`
}

// RustConfig is one entry of the `rust` list.
type RustConfig struct {
	Name            string      `json:"name" yaml:"name" mapstructure:"name"`
	RequiresPinning []PinConfig `json:"requires_pinning,omitempty" yaml:"requires_pinning,omitempty" mapstructure:"requires_pinning"`
}

// PinConfig forces Dependency to exactly Version.
type PinConfig struct {
	Dependency string `json:"dependency" yaml:"dependency" mapstructure:"dependency"`
	Version    string `json:"version" yaml:"version" mapstructure:"version"`
}

// FeatureConfig is one entry of the `features` list.
type FeatureConfig struct {
	Name    string `json:"name" yaml:"name" mapstructure:"name"`
	MinRust string `json:"min_rust,omitempty" yaml:"min_rust,omitempty" mapstructure:"min_rust"`
}

// FuzzingConfig configures the optional fuzz phase.
type FuzzingConfig struct {
	// Rust is the toolchain used to build and run fuzz targets.
	Rust string `json:"rust" yaml:"rust" mapstructure:"rust"`

	// RelPath is the fuzz crate, relative to the repository root.
	RelPath string `json:"rel_path" yaml:"rel_path" mapstructure:"rel_path"`

	// DurationS is the time budget per target, in seconds.
	DurationS int `json:"duration_s" yaml:"duration_s" mapstructure:"duration_s"`
}

// Duration returns the per-target time budget.
func (f *FuzzingConfig) Duration() time.Duration {
	return time.Duration(f.DurationS) * time.Second
}

// Versions converts the `rust` list into domain values, preserving order.
func (c *Config) Versions() []domain.ToolchainVersion {
	versions := make([]domain.ToolchainVersion, 0, len(c.Rust))
	for _, r := range c.Rust {
		v := domain.ToolchainVersion{Name: r.Name}
		for _, p := range r.RequiresPinning {
			v.Pins = append(v.Pins, domain.PinningRule{Dependency: p.Dependency, Version: p.Version})
		}
		versions = append(versions, v)
	}
	return versions
}

// Version returns the configured toolchain with the given name.
func (c *Config) Version(name string) (domain.ToolchainVersion, bool) {
	for _, v := range c.Versions() {
		if v.Name == name {
			return v, true
		}
	}
	return domain.ToolchainVersion{}, false
}

// FeatureList converts the `features` list into domain values, preserving order.
func (c *Config) FeatureList() []domain.Feature {
	features := make([]domain.Feature, 0, len(c.Features))
	for _, f := range c.Features {
		features = append(features, domain.Feature{Name: f.Name, MinRust: f.MinRust})
	}
	return features
}
