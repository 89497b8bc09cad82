package loader

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/module"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

// DefaultTmpSuffix is appended to a module path to name the copy that is
// actually loaded.
const DefaultTmpSuffix = ".tmp"

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithObserver subscribes o to state transitions.
func WithObserver(o Observer) Option {
	return func(ld *Loader) {
		ld.Subscribe(o)
	}
}

// WithTmpSuffix changes the suffix of the side copy.
func WithTmpSuffix(s string) Option {
	return func(ld *Loader) {
		if s != "" {
			ld.tmpSuffix = s
		}
	}
}

type tracked struct {
	modTime time.Time
	inst    module.Instance
	snap    *module.Snapshot
	err     error
	path    string
	name    string
	loads   int
	id      typedesc.ModuleID
	state   State
}

// Loader tracks module files and drives each through unload, load,
// registration and state restore when its file changes. All work happens
// on the calling goroutine.
type Loader struct {
	reg       *registry.Registry
	opener    module.Opener
	log       *zap.Logger
	modules   []*tracked
	observers []Observer
	tmpSuffix string
}

// New creates a loader that registers into reg and opens files with opener.
func New(reg *registry.Registry, opener module.Opener, opts ...Option) *Loader {
	l := &Loader{
		reg:       reg,
		opener:    opener,
		log:       zap.NewNop(),
		tmpSuffix: DefaultTmpSuffix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe adds an observer.
func (l *Loader) Subscribe(o Observer) {
	if o != nil {
		l.observers = append(l.observers, o)
	}
}

// Track attaches a module record for path and performs the initial load.
// A failed load leaves the module tracked in FailedLoad; the next change to
// the file retries it.
func (l *Loader) Track(ctx context.Context, path string) (typedesc.ModuleID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, errors.Load(path, err)
	}
	for _, m := range l.modules {
		if m.path == abs {
			return m.id, nil
		}
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return 0, errors.Load(abs, err)
	}
	name := filepath.Base(abs)
	id, err := l.reg.AttachModule(registry.ModuleRecord{Name: name, Path: abs, ModTime: fi.ModTime()})
	if err != nil {
		return 0, err
	}

	m := &tracked{id: id, path: abs, name: name, modTime: fi.ModTime(), state: Unloaded}
	l.modules = append(l.modules, m)
	l.log.Info("tracking module", zap.String("path", abs), zap.Uint16("id", uint16(id)))

	return id, l.load(ctx, m)
}

// Poll compares each tracked file's modification time with the one last
// seen and reloads modules whose time differs in either direction. It
// returns the number of reloads attempted and the load failures among them.
func (l *Loader) Poll(ctx context.Context) (int, error) {
	var errs []error
	n := 0
	for _, m := range l.modules {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		fi, err := os.Stat(m.path)
		if err != nil {
			// Mid-rebuild; the next poll sees the new file.
			l.log.Debug("module file unavailable", zap.String("path", m.path), zap.Error(err))
			continue
		}
		if fi.ModTime().Equal(m.modTime) {
			continue
		}
		m.modTime = fi.ModTime()
		n++
		if err := l.reload(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return n, stderrors.Join(errs...)
}

// Reload forces the reload sequence for the tracked module whose name or
// path is name.
func (l *Loader) Reload(ctx context.Context, name string) error {
	m := l.find(name)
	if m == nil {
		return errors.NotFound(errors.PhaseLookup, "module", name)
	}
	if fi, err := os.Stat(m.path); err == nil {
		m.modTime = fi.ModTime()
	}
	return l.reload(ctx, m)
}

// Watch polls every interval until ctx is done.
func (l *Loader) Watch(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, err := l.Poll(ctx); err != nil && ctx.Err() == nil {
				l.log.Warn("poll finished with load failures", zap.Error(err))
			}
		}
	}
}

// Close unloads every module without exporting state and removes the side
// copies.
func (l *Loader) Close(ctx context.Context) error {
	var errs []error
	for _, m := range l.modules {
		if m.inst != nil {
			l.reg.UnregisterModule(m.id)
			if err := m.inst.Close(ctx); err != nil {
				errs = append(errs, err)
			}
			m.inst = nil
			l.setLoaded(m, false)
			l.transition(m, Unloaded, nil)
		}
		if err := os.Remove(l.tmpPath(m)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (l *Loader) reload(ctx context.Context, m *tracked) error {
	l.transition(m, ChangeDetected, nil)
	snap := l.unload(ctx, m)
	return l.loadWith(ctx, m, snap)
}

// unload exports state, lets the module unregister, removes whatever it
// left behind, and closes it.
func (l *Loader) unload(ctx context.Context, m *tracked) *module.Snapshot {
	if m.inst == nil {
		return nil
	}
	l.transition(m, Unloading, nil)

	snap, err := m.inst.ExportState(ctx)
	if err != nil {
		l.log.Warn("state export failed, continuing without state",
			zap.String("module", m.name), zap.Error(err))
		snap = nil
	}
	m.snap = snap

	info := m.inst.Info()
	scope := l.reg.Scope(m.id)
	if info.Unregister != nil {
		if err := info.Unregister(ctx, scope); err != nil {
			l.log.Warn("module unregister failed", zap.String("module", m.name), zap.Error(err))
		}
	}
	if n := l.reg.UnregisterModule(m.id); n > 0 {
		l.log.Debug("unregistered module types",
			zap.String("module", m.name),
			zap.Int("count", n),
			zap.Bool("module_offered_unregister", info.Unregister != nil))
	}

	if err := m.inst.Close(ctx); err != nil {
		l.log.Warn("module close failed", zap.String("module", m.name), zap.Error(err))
	}
	m.inst = nil
	l.setLoaded(m, false)
	return snap
}

func (l *Loader) load(ctx context.Context, m *tracked) error {
	return l.loadWith(ctx, m, nil)
}

func (l *Loader) loadWith(ctx context.Context, m *tracked, snap *module.Snapshot) error {
	l.transition(m, Loading, nil)

	tmp := l.tmpPath(m)
	if err := copyFile(m.path, tmp); err != nil {
		return l.fail(m, errors.Load(m.path, err))
	}
	inst, err := l.opener.Open(ctx, tmp)
	if err != nil {
		if !stderrors.Is(err, errors.ErrLoadFailure) {
			err = errors.Load(tmp, err)
		}
		return l.fail(m, err)
	}
	m.inst = inst

	l.transition(m, Registering, nil)
	info := inst.Info()
	if info.Name != "" {
		m.name = info.Name
	}
	rec, _ := l.reg.Module(m.id)
	rec.Name = m.name
	rec.Version = info.Version
	rec.Handle = inst
	rec.ModTime = m.modTime
	rec.Loaded = true
	_ = l.reg.UpdateModule(rec)

	scope := l.reg.Scope(m.id)
	var regErr error
	if info.Register != nil {
		if regErr = info.Register(ctx, scope); regErr != nil {
			l.log.Warn("module registration incomplete",
				zap.String("module", m.name), zap.Error(regErr))
		}
	}

	l.transition(m, Restoring, nil)
	var fixErr error
	switch {
	case info.Fixup != nil && m.loads > 0:
		if fixErr = info.Fixup(ctx, scope, snap); fixErr != nil {
			l.log.Warn("state restore failed",
				zap.String("module", m.name), zap.Error(fixErr))
		}
	case snap != nil:
		l.log.Debug("module takes no state, dropping snapshot", zap.String("module", m.name))
	}
	m.snap = nil
	m.loads++

	err = stderrors.Join(regErr, fixErr)
	l.transition(m, Loaded, err)
	if m.loads > 1 {
		l.log.Info("module reloaded",
			zap.String("module", m.name),
			zap.Uint32("version", info.Version),
			zap.Int("loads", m.loads))
	}
	return err
}

func (l *Loader) fail(m *tracked, err error) error {
	m.snap = nil
	l.log.Warn("module load failed",
		zap.String("module", m.name),
		zap.String("path", m.path),
		zap.Error(err))
	l.transition(m, FailedLoad, err)
	return err
}

func (l *Loader) setLoaded(m *tracked, loaded bool) {
	if rec, ok := l.reg.Module(m.id); ok {
		rec.Loaded = loaded
		if !loaded {
			rec.Handle = nil
		}
		_ = l.reg.UpdateModule(rec)
	}
}

func (l *Loader) transition(m *tracked, to State, err error) {
	from := m.state
	m.state = to
	m.err = err
	l.log.Debug("module state",
		zap.String("module", m.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	e := Event{Module: m.name, Path: m.path, ID: m.id, From: from, To: to, Err: err}
	for _, o := range l.observers {
		o.OnModuleEvent(e)
	}
}

func (l *Loader) find(name string) *tracked {
	for _, m := range l.modules {
		if m.name == name || m.path == name {
			return m
		}
	}
	return nil
}

func (l *Loader) tmpPath(m *tracked) string {
	return m.path + l.tmpSuffix
}

// Status describes a tracked module.
type Status struct {
	ModTime time.Time
	// Err is the error reported with the last transition.
	Err   error
	Name  string
	Path  string
	Loads int
	ID    typedesc.ModuleID
	State State
}

// Status reports the state of a tracked module.
func (l *Loader) Status(id typedesc.ModuleID) (Status, bool) {
	for _, m := range l.modules {
		if m.id == id {
			return Status{
				ModTime: m.modTime,
				Err:     m.err,
				Name:    m.name,
				Path:    m.path,
				Loads:   m.loads,
				ID:      m.id,
				State:   m.state,
			}, true
		}
	}
	return Status{}, false
}

// Instance returns the running instance of a tracked module, or nil while it
// is not loaded.
func (l *Loader) Instance(id typedesc.ModuleID) module.Instance {
	for _, m := range l.modules {
		if m.id == id {
			return m.inst
		}
	}
	return nil
}

// Modules returns the ids of tracked modules in tracking order.
func (l *Loader) Modules() []typedesc.ModuleID {
	ids := make([]typedesc.ModuleID, len(l.modules))
	for i, m := range l.modules {
		ids[i] = m.id
	}
	return ids
}
