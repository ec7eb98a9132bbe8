package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sgeisler/testinator/internal/config"
	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/engine"
	"github.com/sgeisler/testinator/internal/errors"
	"github.com/sgeisler/testinator/internal/fuzz"
	"github.com/sgeisler/testinator/internal/logging"
	"github.com/sgeisler/testinator/internal/matrix"
	"github.com/sgeisler/testinator/internal/report"
	"github.com/sgeisler/testinator/internal/signal"
	"github.com/sgeisler/testinator/internal/toolchain"
	"github.com/sgeisler/testinator/internal/workspace"
)

// runMatrix loads the configuration, builds the plan and either prints it
// (--plan) or executes it and prints the summary. With --install the
// toolchains are installed before the plan is built, since resolving a
// channel's release needs that channel installed.
func runMatrix(ctx context.Context, cmd *cobra.Command, flags *Flags, cfgPath string, deps runtimeDeps) error {
	logger, closer, logErr := logging.New(logging.Options{
		Verbose:     flags.Verbose,
		Quiet:       flags.Quiet,
		Console:     cmd.ErrOrStderr(),
		DisableFile: !deps.logFile,
	})
	defer func() { _ = closer.Close() }()
	if logErr != nil {
		logger.Warn().Err(logErr).Msg("log file unavailable, logging to console only")
	}
	ctx = logger.WithContext(ctx)

	cfg, err := config.Load(ctx, cfgPath)
	if err != nil {
		return err
	}

	cargo := toolchain.NewCargo(deps.runner, logger)
	versions := cfg.Versions()
	features := cfg.FeatureList()

	if flags.Plan {
		plan, err := buildPlan(ctx, cargo, versions, features, flags.Mode(), logger)
		if err != nil {
			return err
		}
		return writePlan(cmd.OutOrStdout(), plan)
	}

	format, err := report.ParseFormat(flags.Output)
	if err != nil {
		return err
	}

	handler := signal.NewHandler(ctx, logger)
	defer handler.Stop()
	runCtx := handler.Context()

	// Failure output goes next to the logs when stdout carries JSON.
	failureOut := cmd.OutOrStdout()
	if format == report.FormatJSON {
		failureOut = cmd.ErrOrStderr()
	}

	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.Name)
	}
	results := report.NewAggregator(names, failureOut, logger)
	runLogger := results.Logger()

	workspaces := workspace.NewManager(cfg.Repo, cfg.Par, cargo,
		workspace.WithWorkDir(cfg.WorkDir),
		workspace.WithLogger(runLogger),
	)

	opts := []engine.Option{engine.WithLogger(runLogger)}
	if cfg.Fuzzing != nil {
		opts = append(opts, engine.WithFuzzPhase(newFuzzPhase(cfg, cargo, workspaces, results, runLogger)))
	}

	eng := engine.New(engine.Config{
		Par:        cfg.Par,
		JobTimeout: cfg.JobTimeout,
		Install:    flags.Install,
	}, cargo, workspaces, results, opts...)

	eng.Install(runCtx, versions)
	if runCtx.Err() != nil {
		return errors.Wrap(errors.ErrInterrupted, "toolchain installation")
	}

	plan, err := buildPlan(runCtx, cargo, versions, features, flags.Mode(), logger)
	if err != nil {
		return err
	}

	runReport := eng.Run(runCtx, plan)

	if err := report.Render(cmd.OutOrStdout(), runReport, format); err != nil {
		return err
	}

	if err := runReport.Err(); err != nil {
		return &ExitError{Code: runReport.ExitCode(), Err: err}
	}
	return nil
}

// buildPlan resolves the channels the eligibility rules need and expands
// the matrix.
func buildPlan(ctx context.Context, r channelResolver, versions []domain.ToolchainVersion, features []domain.Feature, mode constants.MatrixMode, logger zerolog.Logger) (*matrix.Plan, error) {
	policy := matrix.NewPolicy(resolveChannels(ctx, r, versions, features, logger))
	return matrix.Build(versions, features, mode, policy)
}

// newFuzzPhase builds the fuzz runner. Pins configured for the fuzz
// toolchain under `rust` apply to its workspace too.
func newFuzzPhase(cfg *config.Config, cargo *toolchain.Cargo, ws workspace.Manager, results *report.Aggregator, logger zerolog.Logger) *fuzz.Runner {
	version, ok := cfg.Version(cfg.Fuzzing.Rust)
	if !ok {
		version = domain.ToolchainVersion{Name: cfg.Fuzzing.Rust}
	}
	return fuzz.NewRunner(fuzz.Config{
		Version: version,
		RelPath: cfg.Fuzzing.RelPath,
		Budget:  cfg.Fuzzing.Duration(),
	}, cargo, ws, results, fuzz.WithLogger(logger))
}

// channelResolver reports the release a channel currently points at.
type channelResolver interface {
	ChannelVersion(ctx context.Context, channel string) (*semver.Version, error)
}

// resolveChannels looks up only the channel toolchains the eligibility rules
// need, each by its full name so dated channels resolve to their own release.
// A channel that cannot be resolved is left out; any pair depending on it
// then fails the build as ambiguous.
func resolveChannels(ctx context.Context, r channelResolver, versions []domain.ToolchainVersion, features []domain.Feature, logger zerolog.Logger) map[string]*semver.Version {
	resolved := make(map[string]*semver.Version)
	for _, ch := range matrix.UnresolvedChannels(versions, features) {
		v, err := r.ChannelVersion(ctx, ch)
		if err != nil {
			logger.Warn().Err(err).Str("channel", ch).Msg("could not resolve channel release")
			continue
		}
		logger.Debug().Str("channel", ch).Str("release", v.String()).Msg("resolved channel")
		resolved[ch] = v
	}
	return resolved
}

// writePlan prints the plan as YAML.
func writePlan(w io.Writer, plan *matrix.Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}
