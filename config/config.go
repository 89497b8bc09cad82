// Package config handles hotreflect.toml host configuration.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/guest"
	"github.com/wippyai/hotreflect/loader"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

// FileName is the conventional configuration file name.
const FileName = "hotreflect.toml"

// DefaultPollInterval is how often the loader checks module files.
const DefaultPollInterval = 500 * time.Millisecond

// Config represents a hotreflect.toml file.
type Config struct {
	Log      Log      `toml:"log"`
	Loader   Loader   `toml:"loader"`
	Modules  []Module `toml:"module"`
	Registry Registry `toml:"registry"`

	// Dir is the directory containing the file (set at load time). Relative
	// module paths resolve against it.
	Dir string `toml:"-"`
}

// Registry sets the registry's fixed capacities.
type Registry struct {
	MaxTypes   int `toml:"max_types"`
	MaxModules int `toml:"max_modules"`
	MaxFields  int `toml:"max_fields"`
}

// Loader configures module polling and the guest engine.
type Loader struct {
	TmpSuffix        string   `toml:"tmp_suffix"`
	PollInterval     Duration `toml:"poll_interval"`
	MemoryLimitPages uint32   `toml:"memory_limit_pages"`
}

// Log configures the host logger.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Module is a module file to track.
type Module struct {
	Path string `toml:"path"`
}

// Duration is a time.Duration written as a string such as "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: Log{Level: "info"},
		Loader: Loader{
			TmpSuffix:    loader.DefaultTmpSuffix,
			PollInterval: Duration{DefaultPollInterval},
		},
		Registry: Registry{
			MaxTypes:   registry.DefaultMaxTypes,
			MaxModules: registry.DefaultMaxModules,
			MaxFields:  typedesc.MaxFields,
		},
	}
}

// Load parses the file at path over the defaults and validates the result.
// Keys the configuration does not know are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "resolve "+path)
	}
	return c, nil
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(text, c)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Value(keys).
			Build()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks capacities, intervals and the log level.
func (c *Config) Validate() error {
	invalid := func(section, key, detail string, args ...any) error {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(section, key).
			Detail(detail, args...).
			Build()
	}

	r := c.Registry
	if r.MaxTypes <= 0 {
		return invalid("registry", "max_types", "must be positive, got %d", r.MaxTypes)
	}
	// The core record always takes one module slot.
	if r.MaxModules < 2 {
		return invalid("registry", "max_modules", "must be at least 2, got %d", r.MaxModules)
	}
	if r.MaxFields <= 0 || r.MaxFields > typedesc.MaxFields {
		return invalid("registry", "max_fields", "must be in 1..%d, got %d", typedesc.MaxFields, r.MaxFields)
	}

	l := c.Loader
	if l.PollInterval.Duration <= 0 {
		return invalid("loader", "poll_interval", "must be positive, got %s", l.PollInterval.Duration)
	}
	if l.TmpSuffix == "" || strings.ContainsAny(l.TmpSuffix, `/\`) {
		return invalid("loader", "tmp_suffix", "must be a non-empty file name suffix, got %q", l.TmpSuffix)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log", "level", "%v", err)
	}

	if len(c.Modules)+1 > r.MaxModules {
		return invalid("registry", "max_modules", "%d modules configured, room for %d", len(c.Modules), r.MaxModules-1)
	}
	for i, m := range c.Modules {
		if m.Path == "" {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("module", "path").
				Detail("module %d has no path", i).
				Build()
		}
	}
	return nil
}

// ModulePaths returns the configured module paths, relative ones resolved
// against the configuration's directory.
func (c *Config) ModulePaths() []string {
	paths := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		p := m.Path
		if !filepath.IsAbs(p) && c.Dir != "" {
			p = filepath.Join(c.Dir, p)
		}
		paths[i] = p
	}
	return paths
}

// RegistryConfig converts the [registry] section.
func (c *Config) RegistryConfig() registry.Config {
	return registry.Config{
		MaxTypes:   c.Registry.MaxTypes,
		MaxModules: c.Registry.MaxModules,
		MaxFields:  c.Registry.MaxFields,
	}
}

// EngineConfig converts the engine settings of the [loader] section.
func (c *Config) EngineConfig() guest.Config {
	return guest.Config{MemoryLimitPages: c.Loader.MemoryLimitPages}
}

// LoaderOptions returns loader options for the [loader] section.
func (c *Config) LoaderOptions() []loader.Option {
	return []loader.Option{loader.WithTmpSuffix(c.Loader.TmpSuffix)}
}

// Logger builds the host logger described by the [log] section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
