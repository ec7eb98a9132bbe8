package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sgeisler/testinator/internal/toolchain"
)

// FakeResponse scripts the result of a command.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Err is returned as-is. A non-zero ExitCode without Err returns ErrMockExit.
	Err error
	// Delay holds the call for this long unless the context ends first.
	Delay time.Duration
	// Block holds the call until the context ends.
	Block bool
}

// FakeRunner is a concurrency-safe toolchain.CommandRunner that answers from
// a script and records every call. Commands are matched by their command
// line (see Line): exact matches win, then the longest registered prefix.
// Unmatched commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	exact     map[string]FakeResponse
	prefix    map[string]FakeResponse
	calls     []toolchain.Command
	active    int
	maxActive int
	started   chan string
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		exact:   make(map[string]FakeResponse),
		prefix:  make(map[string]FakeResponse),
		started: make(chan string, 1024),
	}
}

// Line renders a command the way FakeRunner matches it: name and args joined by spaces.
func Line(cmd toolchain.Command) string {
	return strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
}

// SetResponse scripts the response for an exact command line.
func (f *FakeRunner) SetResponse(line string, resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exact[line] = resp
}

// SetPrefixResponse scripts the response for every command line starting with prefix.
func (f *FakeRunner) SetPrefixResponse(prefix string, resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefix[prefix] = resp
}

// Started delivers the command line of each call as it begins.
func (f *FakeRunner) Started() <-chan string {
	return f.started
}

// Run implements toolchain.CommandRunner.
func (f *FakeRunner) Run(ctx context.Context, cmd toolchain.Command) (*toolchain.Result, error) {
	line := Line(cmd)

	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	resp := f.lookupLocked(line)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	select {
	case f.started <- line:
	default:
	}

	if resp.Block {
		<-ctx.Done()
		return &toolchain.Result{ExitCode: -1}, ctx.Err()
	}
	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return &toolchain.Result{ExitCode: -1}, ctx.Err()
		case <-timer.C:
		}
	}

	result := &toolchain.Result{
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		ExitCode: resp.ExitCode,
		Duration: resp.Delay,
	}
	err := resp.Err
	if err == nil && resp.ExitCode != 0 {
		err = ErrMockExit
	}
	return result, err
}

func (f *FakeRunner) lookupLocked(line string) FakeResponse {
	if resp, ok := f.exact[line]; ok {
		return resp
	}
	best := ""
	var found FakeResponse
	for p, resp := range f.prefix {
		if strings.HasPrefix(line, p) && len(p) > len(best) {
			best, found = p, resp
		}
	}
	return found
}

// Calls returns a copy of every command run so far, in call order.
func (f *FakeRunner) Calls() []toolchain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]toolchain.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// Lines returns the command lines of every call so far, in call order.
func (f *FakeRunner) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = Line(c)
	}
	return out
}

// LinesWithPrefix returns the command lines starting with prefix.
func (f *FakeRunner) LinesWithPrefix(prefix string) []string {
	var out []string
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

// MaxActive reports the highest number of calls observed in flight at once.
func (f *FakeRunner) MaxActive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

var _ toolchain.CommandRunner = (*FakeRunner)(nil)
