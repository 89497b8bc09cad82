package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/hotreflect/config"
	"github.com/wippyai/hotreflect/guest"
	"github.com/wippyai/hotreflect/loader"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

type options struct {
	configPath  string
	modules     string
	jsonType    string
	logLevel    string
	watch       bool
	interactive bool
	demo        bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to "+config.FileName)
	flag.StringVar(&o.modules, "module", "", "Module files to load (comma-separated)")
	flag.StringVar(&o.jsonType, "json", "", "Print every live instance of the named type as JSON")
	flag.StringVar(&o.logLevel, "log", "", "Log level (overrides the config file)")
	flag.BoolVar(&o.watch, "watch", false, "Reload modules when their files change")
	flag.BoolVar(&o.interactive, "i", false, "Interactive inspector with TUI")
	flag.BoolVar(&o.demo, "demo", false, "Run the built-in game module and access benchmarks")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: hotreflect -module <file.wasm>[,<file.wasm>...] [-json Type] [-watch]")
	fmt.Fprintln(os.Stderr, "       hotreflect -config hotreflect.toml [-i]  (interactive mode)")
	fmt.Fprintln(os.Stderr, "       hotreflect -demo")
}

func run(o options) error {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	for _, p := range strings.Split(o.modules, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Modules = append(cfg.Modules, config.Module{Path: p})
		}
	}

	var demoDir string
	if o.demo {
		dir, err := os.MkdirTemp("", "hotreflect-demo-")
		if err != nil {
			return fmt.Errorf("create demo dir: %w", err)
		}
		defer os.RemoveAll(dir)
		demoDir = dir
		cfg.Modules = append(cfg.Modules, config.Module{Path: filepath.Join(dir, demoModule)})
		if err := writeDemoModule(demoDir, 1); err != nil {
			return err
		}
	}

	if len(cfg.Modules) == 0 {
		usage()
		return fmt.Errorf("no modules to load")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := newHost(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer h.close(context.Background())

	for _, p := range cfg.ModulePaths() {
		if _, err := h.loader.Track(ctx, p); err != nil {
			// The module stays tracked and loads on its next change.
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	out := os.Stdout
	tty := term.IsTerminal(int(out.Fd()))

	switch {
	case o.interactive:
		if !tty {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(ctx, h, o.watch)
	case o.demo:
		if err := runDemo(ctx, h, out, demoDir, tty); err != nil {
			return err
		}
	case o.jsonType != "":
		if err := dumpJSON(ctx, h, out, o.jsonType); err != nil {
			return err
		}
	default:
		printSummary(out, h)
	}

	if o.watch {
		h.loader.Subscribe(loader.ObserverFunc(func(e loader.Event) {
			if e.To == loader.Loaded || e.To == loader.FailedLoad {
				printEvent(out, e)
			}
		}))
		fmt.Fprintf(out, "\nWatching %d module(s), ctrl+c to stop\n", len(cfg.Modules))
		if err := h.loader.Watch(ctx, cfg.Loader.PollInterval.Duration); err != nil && ctx.Err() == nil {
			return err
		}
	}
	return nil
}

// host wires the registry, the guest engine and the loader together.
type host struct {
	cfg    *config.Config
	log    *zap.Logger
	reg    *registry.Registry
	engine *guest.Engine
	loader *loader.Loader
}

func newHost(ctx context.Context, cfg *config.Config, log *zap.Logger) (*host, error) {
	reg := registry.New(cfg.RegistryConfig(), registry.WithLogger(log.Named("registry")))
	if err := registerCore(reg); err != nil {
		return nil, err
	}

	engine, err := guest.NewEngine(ctx,
		guest.WithLogger(log.Named("guest")),
		guest.WithConfig(cfg.EngineConfig()))
	if err != nil {
		return nil, err
	}

	opts := append(cfg.LoaderOptions(), loader.WithLogger(log.Named("loader")))
	return &host{
		cfg:    cfg,
		log:    log,
		reg:    reg,
		engine: engine,
		loader: loader.New(reg, engine, opts...),
	}, nil
}

func (h *host) close(ctx context.Context) {
	if err := h.loader.Close(ctx); err != nil {
		h.log.Warn("loader close", zap.Error(err))
	}
	if err := h.engine.Close(ctx); err != nil {
		h.log.Warn("engine close", zap.Error(err))
	}
}

// registerCore registers the engine types that never change under the
// core module.
func registerCore(reg *registry.Registry) error {
	core := reg.Scope(0)
	for _, t := range []typedesc.Type{
		{Name: "float", Size: 4, Align: 4, Version: 1},
		{Name: "uint32", Size: 4, Align: 4, Version: 1},
	} {
		if _, err := core.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, h *host) {
	fmt.Fprintf(w, "Modules:\n")
	for _, mr := range h.reg.Modules() {
		status := "core"
		if mr.ID != 0 {
			if st, ok := h.loader.Status(mr.ID); ok {
				status = st.State.String()
			}
		}
		fmt.Fprintf(w, "  [%d] %s v%d (%s)\n", mr.ID, mr.Name, mr.Version, status)
	}

	fmt.Fprintf(w, "\nTypes:\n")
	h.reg.Each(func(t *typedesc.Type) bool {
		fmt.Fprintf(w, "  [%d] %s v%d size=%d fields=%d module=%d\n",
			t.ID, t.Name, t.Version, t.Size, len(t.Fields), t.Module)
		return true
	})
	printStats(w, h.reg)
}

func printStats(w io.Writer, reg *registry.Registry) {
	s := reg.Stats()
	fmt.Fprintf(w, "\nRegistry stats:\n")
	fmt.Fprintf(w, "  Types registered: %d (%d valid) of %d\n", s.Types, s.ValidTypes, s.Capacity)
	fmt.Fprintf(w, "  Modules: %d of %d\n", s.Modules, s.ModuleCapacity)
	fmt.Fprintf(w, "  Hash index: %d used, %d deleted of %d slots, avg probe %.2f\n",
		s.IndexUsed, s.IndexDeleted, s.IndexSlots, s.AvgProbe)
}

func printEvent(w io.Writer, e loader.Event) {
	if e.Err != nil {
		fmt.Fprintf(w, "%s: %s (%v)\n", e.Module, e.To, e.Err)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", e.Module, e.To)
}
