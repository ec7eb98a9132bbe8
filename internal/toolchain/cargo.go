package toolchain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
)

// Cargo drives rustup, rustc and cargo for one run.
type Cargo struct {
	runner CommandRunner
	logger zerolog.Logger
}

// NewCargo creates a Cargo adapter. A nil runner uses ExecRunner.
func NewCargo(runner CommandRunner, logger zerolog.Logger) *Cargo {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &Cargo{runner: runner, logger: logger.With().Str("component", "toolchain").Logger()}
}

// Install installs a toolchain with `rustup toolchain install`.
func (c *Cargo) Install(ctx context.Context, version string) error {
	c.logger.Info().Str("version", version).Msg("installing toolchain")

	res, err := c.exec(ctx, Command{Name: "rustup", Args: []string{"toolchain", "install", version}})
	if err != nil {
		return errors.Join(errors.ErrToolchainInstall, errors.Wrapf(err, "rustup toolchain install %s", version))
	}
	if !res.Success() {
		return errors.Wrapf(errors.ErrToolchainInstall, "rustup toolchain install %s exited %d: %s",
			version, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Test runs `cargo +<version> test --no-default-features --features <combo>` in dir.
// A non-zero exit is reported through the result, not the error; the error is
// set only when the process could not run to completion.
func (c *Cargo) Test(ctx context.Context, version, dir string, combo domain.FeatureCombination) (*Result, error) {
	args := []string{"+" + version, "test", "--no-default-features"}
	if !combo.IsEmpty() {
		args = append(args, "--features", combo.Flag())
	}
	return c.exec(ctx, Command{Name: "cargo", Args: args, Dir: dir})
}

// GenerateLockfile writes a fresh Cargo.lock with the given toolchain.
func (c *Cargo) GenerateLockfile(ctx context.Context, version, dir string) error {
	c.logger.Debug().Str("version", version).Str("dir", dir).Msg("generating lock file")

	res, err := c.exec(ctx, Command{Name: "cargo", Args: []string{"+" + version, "generate-lockfile"}, Dir: dir})
	if err == nil && !res.Success() {
		err = fmt.Errorf("exit %d: %s: %w", res.ExitCode, strings.TrimSpace(res.Stderr), errors.ErrCommandFailed)
	}
	return errors.Wrap(err, "cargo generate-lockfile")
}

// Pin rewrites the lock state so pin.Dependency resolves to exactly pin.Version.
func (c *Cargo) Pin(ctx context.Context, version, dir string, pin domain.PinningRule) error {
	c.logger.Debug().
		Str("version", version).
		Str("dependency", pin.Dependency).
		Str("pinned", pin.Version).
		Msg("pinning dependency")

	res, err := c.exec(ctx, Command{
		Name: "cargo",
		Args: []string{"+" + version, "update", "-p", pin.Dependency, "--precise", pin.Version},
		Dir:  dir,
	})
	if err == nil && !res.Success() {
		err = fmt.Errorf("exit %d: %s: %w", res.ExitCode, strings.TrimSpace(res.Stderr), errors.ErrCommandFailed)
	}
	if err != nil {
		return errors.Join(errors.ErrPinFailed, errors.Wrapf(err, "pin %s to %s", pin.Dependency, pin.Version))
	}
	return nil
}

// Fuzz runs one honggfuzz target for budget with `cargo hfuzz run`.
// The process exits non-zero when a crash is found.
func (c *Cargo) Fuzz(ctx context.Context, version, dir, target string, budget time.Duration) (*Result, error) {
	seconds := int(budget.Round(time.Second) / time.Second)
	return c.exec(ctx, Command{
		Name: "cargo",
		Args: []string{"+" + version, "hfuzz", "run", target},
		Dir:  dir,
		Env: []string{
			constants.HfuzzBuildArgsEnv + "=" + constants.HfuzzBuildArgs,
			fmt.Sprintf("%s=--run_time %d --exit_upon_crash -v", constants.HfuzzRunArgsEnv, seconds),
		},
	})
}

// ChannelVersion returns the release a channel currently points at, parsed
// from `rustc +<channel> --version` ("rustc 1.45.0 (5c1f21c3b 2020-07-13)").
func (c *Cargo) ChannelVersion(ctx context.Context, channel string) (*semver.Version, error) {
	res, err := c.exec(ctx, Command{Name: "rustc", Args: []string{"+" + channel, "--version"}})
	if err == nil && !res.Success() {
		err = fmt.Errorf("exit %d: %w", res.ExitCode, errors.ErrCommandFailed)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "rustc +%s --version", channel)
	}
	return parseRustcVersion(res.Stdout)
}

// parseRustcVersion extracts the version from `rustc --version` output.
func parseRustcVersion(out string) (*semver.Version, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return nil, errors.Wrapf(errors.ErrInvalidVersion, "unexpected rustc output %q", strings.TrimSpace(out))
	}
	v, err := semver.NewVersion(fields[1])
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidVersion, "unexpected rustc output %q", strings.TrimSpace(out))
	}
	return v, nil
}

// exec runs cmd and folds a plain non-zero exit into the result, so the
// returned error only signals that the process did not run to completion.
func (c *Cargo) exec(ctx context.Context, cmd Command) (*Result, error) {
	res, err := c.runner.Run(ctx, cmd)
	if res == nil {
		res = &Result{ExitCode: -1}
	}
	if err != nil && res.ExitCode > 0 && ctx.Err() == nil {
		err = nil
	}
	if err != nil && res.ExitCode == 0 {
		res.ExitCode = -1
	}
	return res, err
}
