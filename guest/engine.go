package guest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/module"
)

// Config holds engine settings.
type Config struct {
	// MemoryLimitPages caps each guest's memory in 64KiB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for engine and guest log output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithConfig applies cfg.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// Engine runs guest modules in one wazero runtime that provides the
// hotreflect host module. It implements module.Opener.
type Engine struct {
	runtime wazero.Runtime
	log     *zap.Logger
	cfg     Config
}

// NewEngine creates the runtime and instantiates the host module.
func NewEngine(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	rc := wazero.NewRuntimeConfig()
	if e.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	e.runtime = wazero.NewRuntimeWithConfig(ctx, rc)

	if err := e.instantiateHost(ctx, e.runtime); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindNotInitialized, err, "instantiate host module")
	}
	return e, nil
}

// Close releases the runtime and every guest still open in it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Open reads, compiles and instantiates the module at path.
func (e *Engine) Open(ctx context.Context, path string) (module.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load(path, err)
	}
	return e.Instantiate(ctx, filepath.Base(path), data)
}

// Instantiate loads a guest from bytes. label names it in errors and logs
// until its module info is read.
func (e *Engine) Instantiate(ctx context.Context, label string, wasm []byte) (*Instance, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load(label, err)
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Load(label, err)
	}

	inst, err := newInstance(ctx, e, label, mod, compiled)
	if err != nil {
		_ = mod.Close(ctx)
		_ = compiled.Close(ctx)
		return nil, err
	}

	e.log.Debug("guest instantiated",
		zap.String("label", label),
		zap.String("module", inst.info.Name),
		zap.Uint32("version", inst.info.Version))
	return inst, nil
}

var _ module.Opener = (*Engine)(nil)
