// Package fuzz runs honggfuzz targets after the test matrix.
//
// The runner prepares its own workspace for the nominated toolchain,
// discovers the targets under <rel_path>/fuzz_targets and runs each one
// for a fixed time budget, one after another. A crashing target does not
// stop the others.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors,
//     internal/report, internal/toolchain, internal/workspace, std lib
//   - MUST NOT import: internal/engine, internal/cli
package fuzz

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sgeisler/testinator/internal/clock"
	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
	"github.com/sgeisler/testinator/internal/report"
	"github.com/sgeisler/testinator/internal/toolchain"
	"github.com/sgeisler/testinator/internal/workspace"
)

// Toolchain is the part of toolchain.Cargo the runner drives.
type Toolchain interface {
	Fuzz(ctx context.Context, version, dir, target string, budget time.Duration) (*toolchain.Result, error)
}

// Config describes the fuzz phase.
type Config struct {
	// Version is the toolchain to fuzz with, including any pins.
	Version domain.ToolchainVersion
	// RelPath is the fuzz crate relative to the project root.
	RelPath string
	// Budget is the run time of each target.
	Budget time.Duration
}

// Runner executes the fuzz phase.
type Runner struct {
	config     Config
	toolchain  Toolchain
	workspaces workspace.Manager
	results    *report.Aggregator
	clock      clock.Clock
	logger     zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used to time targets.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner.
func NewRunner(cfg Config, tc Toolchain, ws workspace.Manager, results *report.Aggregator, opts ...Option) *Runner {
	r := &Runner{
		config:     cfg,
		toolchain:  tc,
		workspaces: ws,
		results:    results,
		clock:      clock.RealClock{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run prepares a workspace and fuzzes every target in name order.
// Outcomes are recorded with the aggregator.
func (r *Runner) Run(ctx context.Context) {
	version := r.config.Version.Name
	setupJob := domain.FuzzJob{Version: version, Duration: r.config.Budget}

	ws, err := r.workspaces.Acquire(ctx, r.config.Version)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.results.RecordFuzz(setupJob, domain.FuzzSetupFailed(err.Error()))
		return
	}
	defer func() {
		if err := r.workspaces.Release(ws); err != nil {
			r.logger.Warn().Err(err).Str("version", version).Msg("failed to release fuzz workspace")
		}
	}()

	dir := filepath.Join(ws.Dir, r.config.RelPath)
	targets, err := DiscoverTargets(dir)
	if err != nil {
		r.results.RecordFuzz(setupJob, domain.FuzzSetupFailed(err.Error()))
		return
	}
	if len(targets) == 0 {
		r.logger.Warn().Str("dir", dir).Msg("no fuzz targets found")
		return
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			return
		}
		job := domain.FuzzJob{Target: target, Version: version, Duration: r.config.Budget}
		r.results.FuzzStarted(job)
		r.results.RecordFuzz(job, r.runTarget(ctx, dir, job))
	}
}

func (r *Runner) runTarget(ctx context.Context, dir string, job domain.FuzzJob) domain.FuzzOutcome {
	start := r.clock.Now()
	res, err := r.toolchain.Fuzz(ctx, job.Version, dir, job.Target, job.Duration)
	elapsed := r.clock.Now().Sub(start)

	if res == nil {
		res = &toolchain.Result{ExitCode: -1}
	}
	if err == nil && res.Success() {
		return domain.FuzzSuccess(elapsed)
	}

	output := res.CombinedOutput()
	if err != nil {
		output = strings.TrimRight(output, "\n") + "\ntestinator: " + err.Error() + "\n"
	}
	exitCode := res.ExitCode
	if exitCode == 0 {
		exitCode = -1
	}
	return domain.FuzzCrash(exitCode, output, elapsed)
}

// DiscoverTargets lists the fuzz targets of the fuzz crate at dir: the file
// stems (up to the first dot) in its fuzz_targets directory, sorted and
// de-duplicated.
func DiscoverTargets(dir string) ([]string, error) {
	targetsDir := filepath.Join(dir, constants.FuzzTargetsDir)
	entries, err := os.ReadDir(targetsDir)
	if err != nil {
		return nil, errors.Join(errors.ErrFuzzTargetsNotFound, err)
	}

	targets := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem, _, _ := strings.Cut(e.Name(), ".")
		if stem == "" {
			continue
		}
		targets = append(targets, stem)
	}
	slices.Sort(targets)
	return slices.Compact(targets), nil
}
