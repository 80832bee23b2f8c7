package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/uidelegate/internal/config/loader"
	"github.com/dshills/uidelegate/internal/delegate"
	"github.com/dshills/uidelegate/internal/event"
	"github.com/dshills/uidelegate/internal/logging"
)

// Config is the uidelegate configuration.
type Config struct {
	Logging  Logging  `toml:"logging" json:"logging"`
	Delegate Delegate `toml:"delegate" json:"delegate"`
	Bus      Bus      `toml:"bus" json:"bus"`
}

// Logging configures the process logger.
type Logging struct {
	// Level is trace, debug, info, warn, error or off.
	Level string `toml:"level" json:"level"`
	// Format is console or json.
	Format string `toml:"format" json:"format"`
}

// Delegate configures the delegation engine.
type Delegate struct {
	// Emitter is the emitter native events are published under.
	Emitter string `toml:"emitter" json:"emitter"`
	// OutsideSuffix marks outside topics, as in "clickoutside".
	OutsideSuffix string `toml:"outside_suffix" json:"outside_suffix"`
	// UnsupportedEvents are event names subscriptions are refused for.
	UnsupportedEvents []string `toml:"unsupported_events" json:"unsupported_events"`
}

// Bus configures the event bus.
type Bus struct {
	// QueueSize is the capacity of the deferred task queue.
	QueueSize int `toml:"queue_size" json:"queue_size"`
	// HandlerTimeout bounds each subscriber call. Zero disables it.
	HandlerTimeout Duration `toml:"handler_timeout" json:"handler_timeout"`
}

// Duration is a time.Duration written as a string, like "1.5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: logging.FormatConsole,
		},
		Delegate: Delegate{
			Emitter:           event.DefaultEmitter,
			OutsideSuffix:     delegate.DefaultOutsideSuffix,
			UnsupportedEvents: []string{"mouseenter", "mouseleave"},
		},
		Bus: Bus{
			QueueSize: 1024,
		},
	}
}

// Sources names the layers Load reads.
type Sources struct {
	// Path is a TOML file. Empty skips the file layer; a missing file is
	// not an error.
	Path string

	// FS reads Path. Nil means the OS file system.
	FS loader.FileSystem

	// Environ lists the environment. Nil means os.Environ.
	Environ func() []string
}

// Load reads defaults, the file at path and the environment.
func Load(path string) (*Config, error) {
	return LoadFrom(Sources{Path: path})
}

// LoadFrom layers the defaults, src.Path and the environment, then
// validates the result.
func LoadFrom(src Sources) (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	if src.Path != "" {
		fsys := src.FS
		if fsys == nil {
			fsys = loader.DefaultFS()
		}
		file, err := loader.NewTOMLLoaderWithFS(fsys, src.Path).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, file)
	}

	env, err := loader.NewEnvLoader(loader.EnvPrefix).WithEnviron(src.Environ).Load()
	if err != nil {
		return nil, err
	}
	merged = loader.DeepMerge(merged, env)
	normalizeLists(merged)

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalizeLists turns single values given for list settings into lists.
func normalizeLists(m map[string]any) {
	d, ok := m["delegate"].(map[string]any)
	if !ok {
		return
	}
	switch v := d["unsupported_events"].(type) {
	case string:
		if v == "" {
			d["unsupported_events"] = []any{}
		} else {
			d["unsupported_events"] = []any{v}
		}
	}
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for _, de := range strict.Errors {
				keys = append(keys, strings.Join(de.Key(), "."))
			}
			return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, strings.Join(keys, ", "))
		}
		return nil, &ValidationError{
			Message: err.Error(),
			Code:    ErrCodeTypeMismatch,
		}
	}
	return &cfg, nil
}

// Validate checks every setting and returns all failures joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(path, msg string, value any, code ValidationErrorCode) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value, Code: code})
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "must be trace, debug, info, warn, error or off", c.Logging.Level, ErrCodeInvalidEnum)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		add("logging.format", "must be console or json", c.Logging.Format, ErrCodeInvalidEnum)
	}

	if c.Delegate.Emitter == "" {
		add("delegate.emitter", "is required", c.Delegate.Emitter, ErrCodeRequiredMissing)
	} else if !validName(c.Delegate.Emitter) {
		add("delegate.emitter", `must not contain ":", "*" or spaces`, c.Delegate.Emitter, ErrCodePatternMismatch)
	}
	if c.Delegate.OutsideSuffix == "" {
		add("delegate.outside_suffix", "is required", c.Delegate.OutsideSuffix, ErrCodeRequiredMissing)
	} else if !validName(c.Delegate.OutsideSuffix) {
		add("delegate.outside_suffix", `must not contain ":", "*" or spaces`, c.Delegate.OutsideSuffix, ErrCodePatternMismatch)
	}
	for _, name := range c.Delegate.UnsupportedEvents {
		if name == "" || !validName(name) {
			add("delegate.unsupported_events", "invalid event name", name, ErrCodePatternMismatch)
		}
	}

	if c.Bus.QueueSize <= 0 {
		add("bus.queue_size", "must be positive", c.Bus.QueueSize, ErrCodeOutOfRange)
	}
	if c.Bus.HandlerTimeout < 0 {
		add("bus.handler_timeout", "must not be negative", c.Bus.HandlerTimeout.Std(), ErrCodeOutOfRange)
	}

	return errors.Join(errs...)
}

func validName(s string) bool {
	return !strings.ContainsAny(s, ":* \t\n")
}

// LoggingConfig returns the logger configuration for component.
func (c *Config) LoggingConfig(component string) logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Component: component,
	}
}

// BusOptions returns the event bus options the configuration describes.
func (c *Config) BusOptions(logger zerolog.Logger) []event.BusOption {
	return []event.BusOption{
		event.WithQueueSize(c.Bus.QueueSize),
		event.WithHandlerTimeout(c.Bus.HandlerTimeout.Std()),
		event.WithDefaultEmitter(c.Delegate.Emitter),
		event.WithLogger(logger),
	}
}

// DelegateOptions returns the delegation engine options the configuration
// describes.
func (c *Config) DelegateOptions(logger zerolog.Logger) []delegate.Option {
	return []delegate.Option{
		delegate.WithEmitter(c.Delegate.Emitter),
		delegate.WithOutsideSuffix(c.Delegate.OutsideSuffix),
		delegate.WithUnsupportedEvents(c.Delegate.UnsupportedEvents...),
		delegate.WithLogger(logger),
	}
}
