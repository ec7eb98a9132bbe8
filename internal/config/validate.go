package config

import (
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns the first failure found, wrapped around errors.ErrConfigInvalid.
//
// Validation rules:
//   - repo must not be empty
//   - rust must list at least one toolchain; names must parse and be unique
//   - every requires_pinning entry needs a dependency and an exact X.Y.Z version
//   - feature names must be non-empty and unique; min_rust must parse
//   - par must be at least 1
//   - job_timeout must be positive
//   - fuzzing, when present, needs a valid toolchain, a local rel_path and duration_s >= 1
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.Join(errors.ErrConfigInvalid, errors.ErrConfigNil)
	}

	if cfg.Repo == "" {
		return errors.Wrap(errors.ErrConfigInvalid, "repo must not be empty")
	}

	if err := validateToolchains(cfg.Rust); err != nil {
		return err
	}

	if err := validateFeatures(cfg.Features); err != nil {
		return err
	}

	if cfg.Par < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid, "par must be at least 1, got %d", cfg.Par)
	}

	if cfg.JobTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "job_timeout must be positive, got %s", cfg.JobTimeout)
	}

	if cfg.Fuzzing != nil {
		if err := validateFuzzing(cfg.Fuzzing); err != nil {
			return err
		}
	}

	return nil
}

// validateToolchains checks the `rust` list.
func validateToolchains(rust []RustConfig) error {
	if len(rust) == 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "rust must list at least one toolchain")
	}

	seen := make(map[string]bool, len(rust))
	for i, r := range rust {
		if _, err := domain.ParseVersionID(r.Name); err != nil {
			return errors.Join(errors.ErrConfigInvalid, errors.Wrapf(err, "rust[%d].name", i))
		}
		if seen[r.Name] {
			return errors.Wrapf(errors.ErrConfigInvalid, "rust[%d].name %q is listed twice", i, r.Name)
		}
		seen[r.Name] = true

		for j, pin := range r.RequiresPinning {
			if pin.Dependency == "" {
				return errors.Wrapf(errors.ErrConfigInvalid, "rust[%d].requires_pinning[%d].dependency must not be empty", i, j)
			}
			if _, err := semver.StrictNewVersion(pin.Version); err != nil {
				return errors.Wrapf(errors.ErrConfigInvalid,
					"rust[%d].requires_pinning[%d].version %q is not an exact version", i, j, pin.Version)
			}
		}
	}
	return nil
}

// validateFeatures checks the `features` list.
func validateFeatures(features []FeatureConfig) error {
	seen := make(map[string]bool, len(features))
	for i, f := range features {
		if f.Name == "" {
			return errors.Wrapf(errors.ErrConfigInvalid, "features[%d].name must not be empty", i)
		}
		if seen[f.Name] {
			return errors.Wrapf(errors.ErrConfigInvalid, "features[%d].name %q is listed twice", i, f.Name)
		}
		seen[f.Name] = true

		if f.MinRust != "" {
			if _, err := domain.ParseVersionID(f.MinRust); err != nil {
				return errors.Join(errors.ErrConfigInvalid, errors.Wrapf(err, "features[%d].min_rust", i))
			}
		}
	}
	return nil
}

// validateFuzzing checks the optional `fuzzing` section.
func validateFuzzing(f *FuzzingConfig) error {
	if _, err := domain.ParseVersionID(f.Rust); err != nil {
		return errors.Join(errors.ErrConfigInvalid, errors.Wrap(err, "fuzzing.rust"))
	}
	if f.RelPath == "" || !filepath.IsLocal(f.RelPath) {
		return errors.Wrapf(errors.ErrConfigInvalid, "fuzzing.rel_path %q must be a path inside the repo", f.RelPath)
	}
	if f.DurationS < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid, "fuzzing.duration_s must be at least 1, got %d", f.DurationS)
	}
	return nil
}
