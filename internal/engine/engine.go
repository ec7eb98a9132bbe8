// Package engine runs the test matrix.
//
// One worker runs per toolchain, at most Par of them at a time. A worker
// acquires its workspace once, runs the toolchain's jobs one after another
// in canonical order and records an outcome for every job; a failing job
// never stops its siblings. When the run context is cancelled in-flight
// processes are killed, jobs not yet started are skipped and every
// workspace is released before Run returns.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors,
//     internal/matrix, internal/report, internal/toolchain, internal/workspace, std lib
//   - MUST NOT import: internal/cli
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sgeisler/testinator/internal/clock"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
	"github.com/sgeisler/testinator/internal/matrix"
	"github.com/sgeisler/testinator/internal/report"
	"github.com/sgeisler/testinator/internal/toolchain"
	"github.com/sgeisler/testinator/internal/workspace"
)

// Toolchain is the part of toolchain.Cargo the engine drives.
type Toolchain interface {
	Install(ctx context.Context, version string) error
	Test(ctx context.Context, version, dir string, combo domain.FeatureCombination) (*toolchain.Result, error)
}

// FuzzPhase runs after the matrix and records its own outcomes.
type FuzzPhase interface {
	Run(ctx context.Context)
}

// Config holds the execution settings for a run.
type Config struct {
	// Par bounds how many toolchains run at once.
	Par int
	// JobTimeout bounds a single test process. Zero means no bound.
	JobTimeout time.Duration
	// Install installs every toolchain before any workspace is created.
	Install bool
}

// Engine executes a matrix.Plan.
type Engine struct {
	config     Config
	toolchain  Toolchain
	workspaces workspace.Manager
	results    *report.Aggregator
	fuzz       FuzzPhase
	clock      clock.Clock
	logger     zerolog.Logger

	// installed is set once the install pre-phase ran; installErrs holds
	// its failures keyed by toolchain name.
	installed   bool
	installErrs map[string]error
}

// Option configures an Engine.
type Option func(*Engine)

// WithFuzzPhase sets the phase run after the matrix.
func WithFuzzPhase(f FuzzPhase) Option {
	return func(e *Engine) {
		e.fuzz = f
	}
}

// WithClock sets the clock used to time jobs.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine.
func New(cfg Config, tc Toolchain, ws workspace.Manager, results *report.Aggregator, opts ...Option) *Engine {
	if cfg.Par < 1 {
		cfg.Par = 1
	}
	e := &Engine{
		config:     cfg,
		toolchain:  tc,
		workspaces: ws,
		results:    results,
		clock:      clock.RealClock{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes every job of plan, then the fuzz phase, and returns the
// report. It never returns early on job failures; cancellation of ctx
// stops the run and marks the report as interrupted.
func (e *Engine) Run(ctx context.Context, plan *matrix.Plan) *report.RunReport {
	e.results.SetPlanned(plan.TotalJobs())
	e.logger.Info().
		Int("versions", len(plan.Versions)).
		Int("jobs", plan.TotalJobs()).
		Int("par", e.config.Par).
		Str("mode", plan.Mode.String()).
		Msg("starting test matrix")

	if !e.installed {
		versions := make([]domain.ToolchainVersion, 0, len(plan.Versions))
		for _, vp := range plan.Versions {
			versions = append(versions, vp.Version)
		}
		e.Install(ctx, versions)
	}
	installErrs := e.installErrs

	// Workers return nil so one toolchain's trouble never cancels another.
	var g errgroup.Group
	g.SetLimit(e.config.Par)
	for _, vp := range plan.Versions {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			e.runVersion(ctx, vp, installErrs[vp.Version.Name])
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() == nil && e.fuzz != nil {
		e.fuzz.Run(ctx)
	}

	if ctx.Err() != nil {
		e.results.MarkInterrupted()
	}
	if e.workspaces.Live() > 0 {
		if err := e.workspaces.ReleaseAll(); err != nil {
			e.logger.Warn().Err(err).Msg("failed to release workspaces")
		}
	}

	return e.results.Report()
}

// Install runs the install pre-phase sequentially when Config.Install is set.
// A failed install turns every job of that toolchain SetupFailed in Run.
// Run performs the pre-phase itself unless Install was called first, which
// lets callers install before they need the toolchains to build the plan.
func (e *Engine) Install(ctx context.Context, versions []domain.ToolchainVersion) {
	e.installed = true
	e.installErrs = make(map[string]error)
	if !e.config.Install {
		return
	}
	for _, v := range versions {
		if ctx.Err() != nil {
			break
		}
		if err := e.toolchain.Install(ctx, v.Name); err != nil {
			if ctx.Err() != nil {
				break
			}
			e.logger.Error().Err(err).Str("version", v.Name).Msg("toolchain installation failed")
			e.installErrs[v.Name] = err
		}
	}
}

// runVersion is the worker body for one toolchain.
func (e *Engine) runVersion(ctx context.Context, vp matrix.VersionPlan, installErr error) {
	if ctx.Err() != nil {
		return
	}
	if installErr != nil {
		e.failAll(vp.Jobs, installErr)
		return
	}

	ws, err := e.workspaces.Acquire(ctx, vp.Version)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.logger.Error().Err(err).Str("version", vp.Version.Name).Msg("workspace setup failed")
		e.failAll(vp.Jobs, err)
		return
	}
	defer func() {
		if err := e.workspaces.Release(ws); err != nil {
			e.logger.Warn().Err(err).Str("version", vp.Version.Name).Msg("failed to release workspace")
		}
	}()

	for _, job := range vp.Jobs {
		if ctx.Err() != nil {
			return
		}
		e.results.JobStarted(job)
		e.results.RecordJob(job, e.runJob(ctx, ws, job))
	}
}

// failAll records SetupFailed for every job of a toolchain.
func (e *Engine) failAll(jobs []domain.Job, cause error) {
	reason := cause.Error()
	for _, job := range jobs {
		e.results.RecordJob(job, domain.SetupFailed(reason))
	}
}

// runJob runs a single test invocation and classifies its result.
func (e *Engine) runJob(ctx context.Context, ws *workspace.Workspace, job domain.Job) domain.JobOutcome {
	jobCtx := ctx
	if e.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, e.config.JobTimeout)
		defer cancel()
	}

	start := e.clock.Now()
	res, err := e.toolchain.Test(jobCtx, job.Version, ws.Dir, job.Combination)
	elapsed := e.clock.Now().Sub(start)

	if res == nil {
		res = &toolchain.Result{ExitCode: -1}
	}
	if err == nil {
		if res.Success() {
			return domain.Success(elapsed)
		}
		return domain.Failure(res.ExitCode, res.Stdout, res.Stderr, elapsed)
	}

	// The process did not run to completion: it could not start, was
	// killed by the job timeout, or was interrupted.
	var cause error
	switch {
	case ctx.Err() != nil:
		cause = errors.Join(errors.ErrInterrupted, err)
	case jobCtx.Err() != nil:
		cause = errors.Wrapf(errors.ErrCommandTimeout, "job exceeded %s", e.config.JobTimeout)
	default:
		cause = errors.Join(errors.ErrCommandFailed, err)
	}
	exitCode := res.ExitCode
	if exitCode == 0 {
		exitCode = -1
	}
	return domain.Failure(exitCode, res.Stdout, appendNote(res.Stderr, cause), elapsed)
}

func appendNote(stderr string, cause error) string {
	note := fmt.Sprintf("testinator: %v", cause)
	if stderr == "" {
		return note + "\n"
	}
	if !strings.HasSuffix(stderr, "\n") {
		stderr += "\n"
	}
	return stderr + note + "\n"
}
