package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
	"github.com/sgeisler/testinator/internal/testutil"
	"github.com/sgeisler/testinator/internal/toolchain"
	"github.com/sgeisler/testinator/internal/workspace"
)

// newProject lays out a small cargo project with build output, VCS metadata and a lock file.
func newProject(t *testing.T) string {
	t.Helper()
	repo := filepath.Join(t.TempDir(), "bitcoin-rs")
	files := map[string]string{
		"Cargo.toml":             "[package]\nname = \"bitcoin-rs\"\n",
		"Cargo.lock":             "# generated\n",
		"src/lib.rs":             "pub fn f() {}\n",
		"target/debug/artifact":  "binary",
		".git/HEAD":              "ref: refs/heads/master\n",
		"fuzz/fuzz_targets/a.rs": "fn main() {}\n",
	}
	for name, content := range files {
		path := filepath.Join(repo, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return repo
}

func newManager(t *testing.T, par int, opts ...workspace.Option) (*workspace.DefaultManager, *testutil.FakeRunner, string) {
	t.Helper()
	fake := testutil.NewFakeRunner()
	workDir := t.TempDir()
	opts = append([]workspace.Option{workspace.WithWorkDir(workDir)}, opts...)
	m := workspace.NewManager(newProject(t), par, toolchain.NewCargo(fake, zerolog.Nop()), opts...)
	return m, fake, workDir
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	list, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names
}

func TestAcquire_CopiesProject(t *testing.T) {
	m, fake, workDir := newManager(t, 1)

	ws, err := m.Acquire(context.Background(), domain.ToolchainVersion{Name: "stable"})
	require.NoError(t, err)

	assert.Equal(t, workDir, filepath.Dir(ws.Root))
	assert.Contains(t, filepath.Base(ws.Root), "bitcoin-rs-stable-")
	assert.Equal(t, filepath.Join(ws.Root, "bitcoin-rs"), ws.Dir)

	assert.FileExists(t, filepath.Join(ws.Dir, "Cargo.toml"))
	assert.FileExists(t, filepath.Join(ws.Dir, "src", "lib.rs"))
	assert.FileExists(t, filepath.Join(ws.Dir, "fuzz", "fuzz_targets", "a.rs"))
	assert.NoFileExists(t, filepath.Join(ws.Dir, "Cargo.lock"))
	assert.NoDirExists(t, filepath.Join(ws.Dir, "target"))
	assert.NoDirExists(t, filepath.Join(ws.Dir, ".git"))

	assert.Empty(t, fake.Calls(), "no pins means no cargo invocations")
	assert.Equal(t, 1, m.Live())

	require.NoError(t, m.Release(ws))
	assert.NoDirExists(t, ws.Root)
	assert.Equal(t, 0, m.Live())
}

func TestAcquire_AppliesPinsInOrder(t *testing.T) {
	m, fake, _ := newManager(t, 1)
	version := domain.ToolchainVersion{
		Name: "1.29.0",
		Pins: []domain.PinningRule{
			{Dependency: "cc", Version: "1.0.41"},
			{Dependency: "serde", Version: "1.0.98"},
		},
	}

	ws, err := m.Acquire(context.Background(), version)
	require.NoError(t, err)
	defer func() { _ = m.Release(ws) }()

	assert.Equal(t, []string{
		"cargo +1.29.0 generate-lockfile",
		"cargo +1.29.0 update -p cc --precise 1.0.41",
		"cargo +1.29.0 update -p serde --precise 1.0.98",
	}, fake.Lines())
	for _, c := range fake.Calls() {
		assert.Equal(t, ws.Dir, c.Dir)
	}
}

func TestAcquire_PinFailureRollsBack(t *testing.T) {
	var events []workspace.Event
	m, fake, workDir := newManager(t, 1, workspace.WithObserver(func(e workspace.Event) {
		events = append(events, e)
	}))
	fake.SetPrefixResponse("cargo +1.29.0 update -p cc", testutil.FakeResponse{ExitCode: 101, Stderr: "no matching package"})

	version := domain.ToolchainVersion{
		Name: "1.29.0",
		Pins: []domain.PinningRule{{Dependency: "cc", Version: "1.0.41"}, {Dependency: "serde", Version: "1.0.98"}},
	}
	ws, err := m.Acquire(context.Background(), version)

	require.Error(t, err)
	assert.Nil(t, ws)
	require.ErrorIs(t, err, errors.ErrSetupFailed)
	require.ErrorIs(t, err, errors.ErrPinFailed)
	assert.Empty(t, entries(t, workDir), "failed workspace must be removed")
	assert.Equal(t, 0, m.Live())
	assert.Empty(t, events)
	assert.Empty(t, fake.LinesWithPrefix("cargo +1.29.0 update -p serde"), "pinning stops at the first failure")

	// The slot came back.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ws, err = m.Acquire(ctx, domain.ToolchainVersion{Name: "stable"})
	require.NoError(t, err)
	require.NoError(t, m.Release(ws))
}

func TestAcquire_LockfileFailure(t *testing.T) {
	m, fake, _ := newManager(t, 1)
	fake.SetPrefixResponse("cargo +1.29.0 generate-lockfile", testutil.FakeResponse{ExitCode: 101})

	_, err := m.Acquire(context.Background(), domain.ToolchainVersion{
		Name: "1.29.0",
		Pins: []domain.PinningRule{{Dependency: "cc", Version: "1.0.41"}},
	})
	require.ErrorIs(t, err, errors.ErrSetupFailed)
	require.ErrorIs(t, err, errors.ErrPinFailed)
	assert.Empty(t, fake.LinesWithPrefix("cargo +1.29.0 update"))
}

type failingCopier struct{}

func (failingCopier) CopyTree(_, _ string) error { return testutil.ErrMockCopy }

func TestAcquire_CopyFailure(t *testing.T) {
	m, _, workDir := newManager(t, 1, workspace.WithCopier(failingCopier{}))

	_, err := m.Acquire(context.Background(), domain.ToolchainVersion{Name: "stable"})
	require.ErrorIs(t, err, errors.ErrSetupFailed)
	require.ErrorIs(t, err, testutil.ErrMockCopy)
	assert.Empty(t, entries(t, workDir))
	assert.Equal(t, 0, m.Live())
}

func TestAcquire_EmptyVersion(t *testing.T) {
	m, _, _ := newManager(t, 1)

	_, err := m.Acquire(context.Background(), domain.ToolchainVersion{})
	require.ErrorIs(t, err, errors.ErrEmptyValue)
}

func TestAcquire_BlocksAtCapacity(t *testing.T) {
	m, _, _ := newManager(t, 1)
	assert.Equal(t, 1, m.Capacity())

	first, err := m.Acquire(context.Background(), domain.ToolchainVersion{Name: "stable"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.Acquire(ctx, domain.ToolchainVersion{Name: "beta"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, errors.ErrSetupFailed)

	require.NoError(t, m.Release(first))

	second, err := m.Acquire(context.Background(), domain.ToolchainVersion{Name: "beta"})
	require.NoError(t, err)
	require.NoError(t, m.Release(second))
}

func TestAcquire_NeverExceedsPar(t *testing.T) {
	const par = 2
	var (
		mu      sync.Mutex
		maxLive int
	)
	m, _, workDir := newManager(t, par, workspace.WithObserver(func(e workspace.Event) {
		mu.Lock()
		defer mu.Unlock()
		if e.Live > maxLive {
			maxLive = e.Live
		}
	}))

	versions := []string{"nightly", "beta", "stable", "1.41.0", "1.29.0"}
	var wg sync.WaitGroup
	for _, v := range versions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ws, err := m.Acquire(context.Background(), domain.ToolchainVersion{Name: v})
			if !assert.NoError(t, err) {
				return
			}
			time.Sleep(10 * time.Millisecond)
			assert.NoError(t, m.Release(ws))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxLive, par)
	assert.Positive(t, maxLive)
	assert.Equal(t, 0, m.Live())
	assert.Empty(t, entries(t, workDir))
}

func TestRelease_Idempotent(t *testing.T) {
	var released int
	m, _, _ := newManager(t, 1, workspace.WithObserver(func(e workspace.Event) {
		if e.Kind == workspace.EventReleased {
			released++
		}
	}))

	ws, err := m.Acquire(context.Background(), domain.ToolchainVersion{Name: "stable"})
	require.NoError(t, err)

	require.NoError(t, m.Release(ws))
	require.NoError(t, m.Release(ws))
	require.NoError(t, m.Release(nil))
	assert.Equal(t, 1, released)

	// A double release must not free a second slot.
	held, err := m.Acquire(context.Background(), domain.ToolchainVersion{Name: "beta"})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.Acquire(ctx, domain.ToolchainVersion{Name: "nightly"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, m.Release(held))
}

func TestReleaseAll(t *testing.T) {
	m, _, workDir := newManager(t, 3)

	for _, v := range []string{"nightly", "beta", "stable"} {
		_, err := m.Acquire(context.Background(), domain.ToolchainVersion{Name: v})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, m.Live())
	assert.Len(t, entries(t, workDir), 3)

	require.NoError(t, m.ReleaseAll())
	assert.Equal(t, 0, m.Live())
	assert.Empty(t, entries(t, workDir))
}

func TestNewManager_ClampsPar(t *testing.T) {
	m := workspace.NewManager(t.TempDir(), 0, nil)
	assert.Equal(t, 1, m.Capacity())
}

func TestAcquire_PinsWithoutPinner(t *testing.T) {
	m := workspace.NewManager(newProject(t), 1, nil, workspace.WithWorkDir(t.TempDir()))

	_, err := m.Acquire(context.Background(), domain.ToolchainVersion{
		Name: "1.29.0",
		Pins: []domain.PinningRule{{Dependency: "cc", Version: "1.0.41"}},
	})
	require.ErrorIs(t, err, errors.ErrPinFailed)
}
