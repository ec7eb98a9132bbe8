package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/domain"
	"github.com/sgeisler/testinator/internal/errors"
)

// Directory permission for workspace roots.
const dirPerm = 0o750

// Workspace is one live, isolated copy of the project.
type Workspace struct {
	// Version is the toolchain this workspace was prepared for.
	Version domain.ToolchainVersion
	// Root is the temporary directory owned by the workspace.
	Root string
	// Dir is the project copy inside Root; commands run here.
	Dir string
}

// Pinner rewrites the dependency lock state of a project copy.
// toolchain.Cargo implements it.
type Pinner interface {
	GenerateLockfile(ctx context.Context, version, dir string) error
	Pin(ctx context.Context, version, dir string, pin domain.PinningRule) error
}

// Manager hands out workspaces and takes them back.
type Manager interface {
	// Acquire blocks until a slot is free, then prepares a workspace for
	// version. Setup failures wrap ErrSetupFailed and leave nothing behind.
	Acquire(ctx context.Context, version domain.ToolchainVersion) (*Workspace, error)

	// Release removes the workspace and frees its slot. Releasing twice is a no-op.
	Release(ws *Workspace) error

	// Live reports how many workspaces are currently acquired.
	Live() int

	// ReleaseAll releases every live workspace.
	ReleaseAll() error
}

// EventKind classifies an Observer event.
type EventKind string

// Observer event kinds.
const (
	EventAcquired EventKind = "acquired"
	EventReleased EventKind = "released"
)

// Event is reported to the Observer after each acquire and release.
type Event struct {
	Kind    EventKind
	Version string
	Dir     string
	// Live is the live workspace count right after the event.
	Live int
}

// Observer receives workspace lifecycle events. It is called synchronously
// and must not call back into the manager.
type Observer func(Event)

// Option configures a DefaultManager.
type Option func(*DefaultManager)

// WithWorkDir sets the parent directory for workspaces. Empty means os.TempDir.
func WithWorkDir(dir string) Option {
	return func(m *DefaultManager) {
		m.workDir = dir
	}
}

// WithCopier replaces the project copier.
func WithCopier(c Copier) Option {
	return func(m *DefaultManager) {
		m.copier = c
	}
}

// WithObserver installs a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(m *DefaultManager) {
		m.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *DefaultManager) {
		m.logger = logger
	}
}

// DefaultManager implements Manager on the local filesystem.
type DefaultManager struct {
	repo     string
	project  string
	workDir  string
	capacity int
	sem      *semaphore.Weighted
	copier   Copier
	pinner   Pinner
	observer Observer
	logger   zerolog.Logger

	mu   sync.Mutex
	live map[*Workspace]struct{}
}

// NewManager creates a DefaultManager copying repo, with at most par live
// workspaces. par below 1 is treated as 1.
func NewManager(repo string, par int, pinner Pinner, opts ...Option) *DefaultManager {
	if par < 1 {
		par = 1
	}
	m := &DefaultManager{
		repo:     repo,
		project:  filepath.Base(filepath.Clean(repo)),
		capacity: par,
		sem:      semaphore.NewWeighted(int64(par)),
		copier:   &DirCopier{Exclude: constants.ExcludedDirs},
		pinner:   pinner,
		logger:   zerolog.Nop(),
		live:     make(map[*Workspace]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Capacity returns the maximum number of live workspaces.
func (m *DefaultManager) Capacity() int {
	return m.capacity
}

// Acquire implements Manager.
func (m *DefaultManager) Acquire(ctx context.Context, version domain.ToolchainVersion) (*Workspace, error) {
	if version.Name == "" {
		return nil, fmt.Errorf("failed to acquire workspace: version %w", errors.ErrEmptyValue)
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "wait for workspace slot for %s", version.Name)
	}
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrapf(err, "wait for workspace slot for %s", version.Name)
	}

	ws, err := m.prepare(ctx, version)
	if err != nil {
		m.sem.Release(1)
		return nil, errors.Join(errors.ErrSetupFailed, errors.Wrapf(err, "prepare workspace for %s", version.Name))
	}

	m.mu.Lock()
	m.live[ws] = struct{}{}
	live := len(m.live)
	m.mu.Unlock()

	m.logger.Debug().
		Str("version", version.Name).
		Str("dir", ws.Dir).
		Int("live", live).
		Msg("workspace acquired")
	m.notify(Event{Kind: EventAcquired, Version: version.Name, Dir: ws.Dir, Live: live})

	return ws, nil
}

// prepare builds the workspace directory. On failure the directory is removed.
func (m *DefaultManager) prepare(ctx context.Context, version domain.ToolchainVersion) (ws *Workspace, err error) {
	parent := m.workDir
	if parent == "" {
		parent = os.TempDir()
	}
	if err = os.MkdirAll(parent, dirPerm); err != nil {
		return nil, errors.Wrap(err, "create work dir")
	}

	root, err := os.MkdirTemp(parent, dirPattern(m.project, version.Name))
	if err != nil {
		return nil, errors.Wrap(err, "create workspace directory")
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(root); rmErr != nil {
				m.logger.Warn().Err(rmErr).Str("dir", root).Msg("failed to remove workspace after setup failure")
			}
		}
	}()

	dir := filepath.Join(root, m.project)
	if err = m.copier.CopyTree(m.repo, dir); err != nil {
		return nil, errors.Wrap(err, "copy project tree")
	}

	// A lock file written by a newer toolchain can break older ones.
	if rmErr := os.Remove(filepath.Join(dir, constants.LockFileName)); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, errors.Wrap(rmErr, "remove lock file")
	}

	if err = m.applyPins(ctx, version, dir); err != nil {
		return nil, err
	}

	return &Workspace{Version: version, Root: root, Dir: dir}, nil
}

// applyPins regenerates the lock file and pins each dependency in config order.
func (m *DefaultManager) applyPins(ctx context.Context, version domain.ToolchainVersion, dir string) error {
	if len(version.Pins) == 0 {
		return nil
	}
	if m.pinner == nil {
		return errors.Wrap(errors.ErrPinFailed, "no pinner configured")
	}

	if err := m.pinner.GenerateLockfile(ctx, version.Name, dir); err != nil {
		return errors.Join(errors.ErrPinFailed, err)
	}
	for _, pin := range version.Pins {
		if err := m.pinner.Pin(ctx, version.Name, dir, pin); err != nil {
			return err
		}
	}
	return nil
}

// Release implements Manager.
func (m *DefaultManager) Release(ws *Workspace) error {
	if ws == nil {
		return nil
	}

	m.mu.Lock()
	if _, ok := m.live[ws]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.live, ws)
	live := len(m.live)
	m.mu.Unlock()

	err := os.RemoveAll(ws.Root)
	m.sem.Release(1)

	m.logger.Debug().
		Str("version", ws.Version.Name).
		Str("dir", ws.Dir).
		Int("live", live).
		Msg("workspace released")
	m.notify(Event{Kind: EventReleased, Version: ws.Version.Name, Dir: ws.Dir, Live: live})

	return errors.Wrapf(err, "remove workspace %s", ws.Root)
}

// Live implements Manager.
func (m *DefaultManager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// ReleaseAll implements Manager. Every workspace is released even when some
// removals fail; the first failure is returned.
func (m *DefaultManager) ReleaseAll() error {
	m.mu.Lock()
	all := make([]*Workspace, 0, len(m.live))
	for ws := range m.live {
		all = append(all, ws)
	}
	m.mu.Unlock()

	var first error
	for _, ws := range all {
		if err := m.Release(ws); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *DefaultManager) notify(e Event) {
	if m.observer != nil {
		m.observer(e)
	}
}

// dirPattern builds the os.MkdirTemp pattern "<project>-<version>-*".
func dirPattern(project, version string) string {
	clean := strings.Map(func(r rune) rune {
		if r == os.PathSeparator || r == '/' || r == '*' {
			return '_'
		}
		return r
	}, version)
	return project + "-" + clean + "-*"
}

var _ Manager = (*DefaultManager)(nil)
