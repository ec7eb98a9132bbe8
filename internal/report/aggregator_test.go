package report_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgeisler/testinator/internal/clock"
	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/report"
)

func job(version string, index int, features ...string) domain.Job {
	return domain.Job{Version: version, Combination: domain.NewFeatureCombination(features...), Index: index}
}

func newAggregator(t *testing.T, versions ...string) (*report.Aggregator, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, logs bytes.Buffer
	a := report.NewAggregator(versions, &out, zerolog.New(&logs),
		report.WithRunID("run-1"),
		report.WithClock(clock.NewStepClock(time.Unix(0, 0), time.Second)))
	return a, &out, &logs
}

func TestAggregator_SuccessOutputIsNeverPrinted(t *testing.T) {
	a, out, logs := newAggregator(t, "stable")

	j := job("stable", 0, "a")
	a.JobStarted(j)
	a.RecordJob(j, domain.Success(time.Second))

	assert.Empty(t, out.String())
	assert.Contains(t, logs.String(), `"message":"job started"`)
	assert.Contains(t, logs.String(), `"message":"job succeeded"`)
	assert.Contains(t, logs.String(), `"run_id":"run-1"`)
	assert.Contains(t, logs.String(), `"features":"[a]"`)
}

func TestAggregator_FailureOutputIsPrintedInFull(t *testing.T) {
	a, out, logs := newAggregator(t, "stable")

	stdout := strings.Repeat("running test ... FAILED\n", 200)
	a.RecordJob(job("stable", 1, "a", "b"), domain.Failure(101, stdout, "thread 'main' panicked", time.Second))

	got := out.String()
	assert.Contains(t, got, "==== FAILED rust=stable features=[a,b] exit=101 ====")
	assert.Contains(t, got, "---- stdout ----\n"+stdout)
	assert.Contains(t, got, "---- stderr ----\nthread 'main' panicked\n")
	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), `"exit_code":101`)
}

func TestAggregator_SetupFailureReasonPrintedOncePerVersion(t *testing.T) {
	a, out, _ := newAggregator(t, "1.29.0")

	for i := range 3 {
		a.RecordJob(job("1.29.0", i), domain.SetupFailed("pin cc to 1.0.41: exit 101"))
	}

	assert.Equal(t, 1, strings.Count(out.String(), "SETUP FAILED rust=1.29.0"))
	r := a.Report()
	assert.Equal(t, 3, r.Versions[0].SetupFailed)
	assert.Len(t, r.Failures, 3)
}

func TestAggregator_ReportOrdering(t *testing.T) {
	a, _, _ := newAggregator(t, "nightly", "stable", "1.29.0")

	// Record in an order unrelated to the configured one.
	a.RecordJob(job("1.29.0", 1, "a"), domain.Success(0))
	a.RecordJob(job("stable", 2, "a", "b"), domain.Success(0))
	a.RecordJob(job("nightly", 0), domain.Success(0))
	a.RecordJob(job("stable", 0), domain.Failure(1, "", "", 0))
	a.RecordJob(job("1.29.0", 0), domain.Success(0))
	a.RecordJob(job("stable", 1, "a"), domain.Success(0))

	r := a.Report()
	var got []string
	for _, j := range r.Jobs {
		got = append(got, j.Job.Version+" "+j.Job.Combination.String())
	}
	assert.Equal(t, []string{
		"nightly []",
		"stable []",
		"stable [a]",
		"stable [a,b]",
		"1.29.0 []",
		"1.29.0 [a]",
	}, got)

	require.Len(t, r.Versions, 3)
	assert.Equal(t, report.VersionSummary{Version: "nightly", Passed: 1}, r.Versions[0])
	assert.Equal(t, report.VersionSummary{Version: "stable", Passed: 2, Failed: 1}, r.Versions[1])
	assert.Equal(t, report.VersionSummary{Version: "1.29.0", Passed: 2}, r.Versions[2])
	assert.Equal(t, 3, r.Versions[1].Total())
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, time.Second, r.Duration)
}

func TestAggregator_ConcurrentRecording(t *testing.T) {
	versions := []string{"nightly", "beta", "stable", "1.41.0"}
	a, _, _ := newAggregator(t, versions...)
	a.SetPlanned(len(versions) * 25)

	var wg sync.WaitGroup
	for _, v := range versions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 25 {
				j := job(v, i)
				a.JobStarted(j)
				a.RecordJob(j, domain.Success(time.Millisecond))
			}
		}()
	}
	wg.Wait()

	r := a.Report()
	assert.Len(t, r.Jobs, 100)
	assert.Equal(t, 0, r.NotRun)
	for _, s := range r.Versions {
		assert.Equal(t, 25, s.Passed, s.Version)
	}
}

func TestAggregator_NotRunAndInterrupted(t *testing.T) {
	a, _, logs := newAggregator(t, "stable")
	a.SetPlanned(5)
	a.RecordJob(job("stable", 0), domain.Success(0))
	a.RecordJob(job("stable", 1), domain.Failure(-1, "", "", 0))
	a.MarkInterrupted()
	a.MarkInterrupted()

	r := a.Report()
	assert.True(t, r.Interrupted)
	assert.Equal(t, 3, r.NotRun)
	assert.Equal(t, constants.ExitInterrupted, r.ExitCode())
	assert.Equal(t, 1, strings.Count(logs.String(), "run interrupted"))
}

func TestAggregator_Fuzz(t *testing.T) {
	a, out, logs := newAggregator(t, "nightly")

	ok := domain.FuzzJob{Target: "parse", Version: "nightly", Duration: time.Minute}
	bad := domain.FuzzJob{Target: "decode", Version: "nightly", Duration: time.Minute}
	a.FuzzStarted(ok)
	a.RecordFuzz(ok, domain.FuzzSuccess(time.Minute))
	a.FuzzStarted(bad)
	a.RecordFuzz(bad, domain.FuzzCrash(1, "SIGSEGV in decode", time.Second))

	assert.NotContains(t, out.String(), "parse")
	assert.Contains(t, out.String(), "==== CRASH fuzz target=decode rust=nightly exit=1 ====\n---- output ----\nSIGSEGV in decode\n")
	assert.Contains(t, logs.String(), `"target":"parse"`)

	r := a.Report()
	require.Len(t, r.Fuzz, 2)
	assert.Equal(t, constants.ExitFailure, r.ExitCode())
}

func TestAggregator_FuzzSetupFailure(t *testing.T) {
	a, out, _ := newAggregator(t, "nightly")

	a.RecordFuzz(domain.FuzzJob{Version: "nightly"}, domain.FuzzSetupFailed("fuzz targets not found"))

	assert.Contains(t, out.String(), "SETUP FAILED fuzz rust=nightly")
	assert.Equal(t, constants.ExitSetupFailed, a.Report().ExitCode())
}

func TestAggregator_NilWriter(t *testing.T) {
	a := report.NewAggregator([]string{"stable"}, nil, zerolog.Nop())
	assert.NotEmpty(t, a.RunID())

	assert.NotPanics(t, func() {
		a.RecordJob(job("stable", 0), domain.Failure(1, "out", "err", 0))
	})
}
