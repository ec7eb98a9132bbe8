package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sgeisler/testinator/internal/clock"
	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(a *Aggregator) {
		a.runID = id
	}
}

// WithClock sets the clock used for the run duration.
func WithClock(c clock.Clock) Option {
	return func(a *Aggregator) {
		a.clock = c
	}
}

// Aggregator records outcomes from concurrent workers.
type Aggregator struct {
	logger zerolog.Logger
	out    io.Writer
	clock  clock.Clock
	runID  string

	mu          sync.Mutex
	order       map[string]int
	versions    []string
	planned     int
	jobs        []domain.JobResult
	fuzz        []domain.FuzzResult
	setupShown  map[string]bool
	interrupted bool
	started     time.Time
}

// NewAggregator creates an Aggregator for the given versions, in config order.
// Failure output is written to out.
func NewAggregator(versions []string, out io.Writer, logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		out:        out,
		clock:      clock.RealClock{},
		runID:      uuid.NewString(),
		order:      make(map[string]int, len(versions)),
		versions:   slices.Clone(versions),
		setupShown: make(map[string]bool),
	}
	for i, v := range versions {
		a.order[v] = i
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.out == nil {
		a.out = io.Discard
	}
	a.logger = logger.With().Str("run_id", a.runID).Logger()
	a.started = a.clock.Now()
	return a
}

// RunID returns the identifier attached to every log event of this run.
func (a *Aggregator) RunID() string {
	return a.runID
}

// Logger returns the run-scoped logger.
func (a *Aggregator) Logger() zerolog.Logger {
	return a.logger
}

// SetPlanned records how many jobs the matrix contains, for the not-run count.
func (a *Aggregator) SetPlanned(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.planned = n
}

// MarkInterrupted flags the run as aborted.
func (a *Aggregator) MarkInterrupted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.interrupted {
		a.interrupted = true
		a.logger.Warn().Msg("run interrupted, stopping remaining jobs")
	}
}

// JobStarted logs the start of a job.
func (a *Aggregator) JobStarted(job domain.Job) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger.Info().
		Str("version", job.Version).
		Str("features", job.Combination.String()).
		Msg("job started")
}

// RecordJob stores the outcome of a job. Non-success outcomes have their
// captured output written to the failure writer.
func (a *Aggregator) RecordJob(job domain.Job, outcome domain.JobOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.jobs = append(a.jobs, domain.JobResult{Job: job, Outcome: outcome})

	switch outcome.Kind {
	case constants.OutcomeSuccess:
		a.logger.Info().
			Str("version", job.Version).
			Str("features", job.Combination.String()).
			Dur("duration", outcome.Duration).
			Msg("job succeeded")
	case constants.OutcomeFailure:
		a.logger.Error().
			Str("version", job.Version).
			Str("features", job.Combination.String()).
			Int("exit_code", outcome.ExitCode).
			Dur("duration", outcome.Duration).
			Msg("job failed")
		a.writeBlock(fmt.Sprintf("FAILED rust=%s features=%s exit=%d", job.Version, job.Combination, outcome.ExitCode),
			section{"stdout", outcome.Stdout}, section{"stderr", outcome.Stderr})
	case constants.OutcomeSetupFailed:
		a.logger.Error().
			Str("version", job.Version).
			Str("features", job.Combination.String()).
			Str("reason", outcome.Reason).
			Msg("job not run, setup failed")
		// every job of the version carries the same reason; print it once
		if !a.setupShown[job.Version] {
			a.setupShown[job.Version] = true
			a.writeBlock(fmt.Sprintf("SETUP FAILED rust=%s", job.Version), section{"reason", outcome.Reason})
		}
	default:
		a.logger.Warn().
			Str("version", job.Version).
			Str("kind", outcome.Kind.String()).
			Msg("unexpected job outcome")
	}
}

// FuzzStarted logs the start of a fuzz target.
func (a *Aggregator) FuzzStarted(job domain.FuzzJob) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger.Info().
		Str("version", job.Version).
		Str("target", job.Target).
		Dur("budget", job.Duration).
		Msg("fuzzing started")
}

// RecordFuzz stores the outcome of a fuzz target.
func (a *Aggregator) RecordFuzz(job domain.FuzzJob, outcome domain.FuzzOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fuzz = append(a.fuzz, domain.FuzzResult{Job: job, Outcome: outcome})

	switch outcome.Kind {
	case constants.OutcomeSuccess:
		a.logger.Info().
			Str("version", job.Version).
			Str("target", job.Target).
			Dur("elapsed", outcome.Elapsed).
			Msg("fuzzing succeeded")
	case constants.OutcomeCrash:
		a.logger.Error().
			Str("version", job.Version).
			Str("target", job.Target).
			Int("exit_code", outcome.ExitCode).
			Msg("fuzz target crashed")
		a.writeBlock(fmt.Sprintf("CRASH fuzz target=%s rust=%s exit=%d", job.Target, job.Version, outcome.ExitCode),
			section{"output", outcome.Output})
	case constants.OutcomeSetupFailed:
		a.logger.Error().
			Str("version", job.Version).
			Str("target", job.Target).
			Str("reason", outcome.Reason).
			Msg("fuzzing setup failed")
		a.writeBlock(fmt.Sprintf("SETUP FAILED fuzz rust=%s", job.Version), section{"reason", outcome.Reason})
	default:
		a.logger.Warn().
			Str("target", job.Target).
			Str("kind", outcome.Kind.String()).
			Msg("unexpected fuzz outcome")
	}
}

type section struct {
	name string
	body string
}

// writeBlock prints a delimited failure block. Callers hold a.mu, so blocks
// from different workers never interleave.
func (a *Aggregator) writeBlock(title string, sections ...section) {
	var b strings.Builder
	fmt.Fprintf(&b, "==== %s ====\n", title)
	for _, s := range sections {
		fmt.Fprintf(&b, "---- %s ----\n", s.name)
		b.WriteString(s.body)
		if s.body != "" && !strings.HasSuffix(s.body, "\n") {
			b.WriteByte('\n')
		}
	}
	if _, err := io.WriteString(a.out, b.String()); err != nil {
		a.logger.Warn().Err(err).Msg("failed to write failure output")
	}
}

// Report builds the final RunReport. Jobs are ordered by version in config
// order, then by their canonical position.
func (a *Aggregator) Report() *RunReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	jobs := slices.Clone(a.jobs)
	slices.SortStableFunc(jobs, func(x, y domain.JobResult) int {
		if c := a.rank(x.Job.Version) - a.rank(y.Job.Version); c != 0 {
			return c
		}
		if c := x.Job.Index - y.Job.Index; c != 0 {
			return c
		}
		return x.Job.Combination.Compare(y.Job.Combination)
	})

	versions := slices.Clone(a.versions)
	for _, j := range jobs {
		if !slices.Contains(versions, j.Job.Version) {
			versions = append(versions, j.Job.Version)
		}
	}

	r := &RunReport{
		RunID:       a.runID,
		Interrupted: a.interrupted,
		Versions:    make([]VersionSummary, len(versions)),
		Jobs:        jobs,
		Fuzz:        slices.Clone(a.fuzz),
		Duration:    a.clock.Now().Sub(a.started),
	}
	summaries := make(map[string]*VersionSummary, len(versions))
	for i, v := range versions {
		r.Versions[i].Version = v
		summaries[v] = &r.Versions[i]
	}

	for _, j := range jobs {
		s := summaries[j.Job.Version]
		switch j.Outcome.Kind {
		case constants.OutcomeSuccess:
			s.Passed++
		case constants.OutcomeFailure:
			s.Failed++
			r.Failures = append(r.Failures, j)
		case constants.OutcomeSetupFailed:
			s.SetupFailed++
			r.Failures = append(r.Failures, j)
		}
	}

	if notRun := a.planned - len(jobs); notRun > 0 {
		r.NotRun = notRun
	}
	return r
}

// rank returns a version's config position; unknown versions sort last.
func (a *Aggregator) rank(version string) int {
	if i, ok := a.order[version]; ok {
		return i
	}
	return len(a.order)
}
