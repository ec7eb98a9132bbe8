package fuzz_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
	"github.com/sgeisler/testinator/internal/fuzz"
	"github.com/sgeisler/testinator/internal/report"
	"github.com/sgeisler/testinator/internal/testutil"
	"github.com/sgeisler/testinator/internal/toolchain"
	"github.com/sgeisler/testinator/internal/workspace"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte("fn main() {}\n"), 0o600))
	}
}

type fixture struct {
	fake     *testutil.FakeRunner
	results  *report.Aggregator
	out      *bytes.Buffer
	manager  *workspace.DefaultManager
	workDir  string
	repo     string
	runner   *fuzz.Runner
	versions domain.ToolchainVersion
}

func newFixture(t *testing.T, version domain.ToolchainVersion, targets ...string) *fixture {
	t.Helper()
	repo := filepath.Join(t.TempDir(), "proj")
	writeFiles(t, repo, "Cargo.toml")
	for _, target := range targets {
		writeFiles(t, repo, filepath.Join("fuzz", "fuzz_targets", target))
	}

	f := &fixture{fake: testutil.NewFakeRunner(), out: &bytes.Buffer{}, workDir: t.TempDir(), repo: repo, versions: version}
	cargo := toolchain.NewCargo(f.fake, zerolog.Nop())
	f.manager = workspace.NewManager(repo, 1, cargo, workspace.WithWorkDir(f.workDir))
	f.results = report.NewAggregator([]string{version.Name}, f.out, zerolog.Nop())
	f.runner = fuzz.NewRunner(fuzz.Config{Version: version, RelPath: "fuzz", Budget: 30 * time.Second}, cargo, f.manager, f.results)
	return f
}

func TestDiscoverTargets(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"fuzz_targets/tx.rs",
		"fuzz_targets/block.rs",
		"fuzz_targets/block.rs.orig",
		"fuzz_targets/.gitkeep",
	)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fuzz_targets", "corpus"), 0o750))

	targets, err := fuzz.DiscoverTargets(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"block", "tx"}, targets)
}

func TestDiscoverTargets_Missing(t *testing.T) {
	_, err := fuzz.DiscoverTargets(t.TempDir())
	require.ErrorIs(t, err, errors.ErrFuzzTargetsNotFound)
}

func TestRunner_RunsTargetsInOrder(t *testing.T) {
	f := newFixture(t, domain.ToolchainVersion{Name: "nightly"}, "tx.rs", "block.rs", "script.rs")

	f.runner.Run(context.Background())

	calls := f.fake.Calls()
	require.Len(t, calls, 3)
	var lines []string
	for _, c := range calls {
		lines = append(lines, testutil.Line(c))
		assert.Equal(t, "fuzz", filepath.Base(c.Dir))
		assert.Contains(t, c.Env, "HFUZZ_RUN_ARGS=--run_time 30 --exit_upon_crash -v")
	}
	assert.Equal(t, []string{
		"cargo +nightly hfuzz run block",
		"cargo +nightly hfuzz run script",
		"cargo +nightly hfuzz run tx",
	}, lines)

	r := f.results.Report()
	require.Len(t, r.Fuzz, 3)
	for _, res := range r.Fuzz {
		assert.True(t, res.Outcome.IsSuccess(), res.Job.Target)
	}
	assert.Empty(t, f.out.String())
	assert.Equal(t, 0, f.manager.Live())
}

func TestRunner_CrashDoesNotStopSiblings(t *testing.T) {
	f := newFixture(t, domain.ToolchainVersion{Name: "nightly"}, "a.rs", "b.rs", "c.rs")
	f.fake.SetResponse("cargo +nightly hfuzz run b", testutil.FakeResponse{ExitCode: 1, Stdout: "crash found", Stderr: "SIGABRT"})

	f.runner.Run(context.Background())

	r := f.results.Report()
	require.Len(t, r.Fuzz, 3)
	assert.Equal(t, constants.OutcomeSuccess, r.Fuzz[0].Outcome.Kind)
	assert.Equal(t, constants.OutcomeCrash, r.Fuzz[1].Outcome.Kind)
	assert.Equal(t, "crash found\nSIGABRT", r.Fuzz[1].Outcome.Output)
	assert.Equal(t, 1, r.Fuzz[1].Outcome.ExitCode)
	assert.Equal(t, constants.OutcomeSuccess, r.Fuzz[2].Outcome.Kind)
	assert.Contains(t, f.out.String(), "CRASH fuzz target=b")
	assert.Equal(t, constants.ExitFailure, r.ExitCode())
}

func TestRunner_MissingTargetsIsSetupFailure(t *testing.T) {
	f := newFixture(t, domain.ToolchainVersion{Name: "nightly"})

	f.runner.Run(context.Background())

	r := f.results.Report()
	require.Len(t, r.Fuzz, 1)
	assert.Equal(t, constants.OutcomeSetupFailed, r.Fuzz[0].Outcome.Kind)
	assert.Contains(t, r.Fuzz[0].Outcome.Reason, "fuzz targets not found")
	assert.Empty(t, f.fake.Calls())
	assert.Equal(t, 0, f.manager.Live())
}

func TestRunner_AppliesPinsAndReportsPinFailure(t *testing.T) {
	version := domain.ToolchainVersion{Name: "1.29.0", Pins: []domain.PinningRule{{Dependency: "cc", Version: "1.0.41"}}}
	f := newFixture(t, version, "a.rs")
	f.fake.SetPrefixResponse("cargo +1.29.0 update", testutil.FakeResponse{ExitCode: 101})

	f.runner.Run(context.Background())

	r := f.results.Report()
	require.Len(t, r.Fuzz, 1)
	assert.Equal(t, constants.OutcomeSetupFailed, r.Fuzz[0].Outcome.Kind)
	assert.Empty(t, f.fake.LinesWithPrefix("cargo +1.29.0 hfuzz"))
	assert.Equal(t, constants.ExitSetupFailed, r.ExitCode())
}

func TestRunner_CancelledBeforeStart(t *testing.T) {
	f := newFixture(t, domain.ToolchainVersion{Name: "nightly"}, "a.rs")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.runner.Run(ctx)

	assert.Empty(t, f.results.Report().Fuzz)
	assert.Empty(t, f.fake.Calls())
	entries, err := os.ReadDir(f.workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
