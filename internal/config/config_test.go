package config

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFS map[string]string

func (m memFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func env(vars ...string) func() []string {
	return func() []string { return vars }
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "UI", cfg.Delegate.Emitter)
	assert.Equal(t, "outside", cfg.Delegate.OutsideSuffix)
	assert.Equal(t, []string{"mouseenter", "mouseleave"}, cfg.Delegate.UnsupportedEvents)
	assert.Equal(t, 1024, cfg.Bus.QueueSize)
	assert.Zero(t, cfg.Bus.HandlerTimeout)
}

func TestLoadFrom_DefaultsOnly(t *testing.T) {
	cfg, err := LoadFrom(Sources{Environ: env()})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	cfg, err := LoadFrom(Sources{Path: "/nope.toml", FS: memFS{}, Environ: env()})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFrom_File(t *testing.T) {
	fsys := memFS{"/etc/uidelegate.toml": `
[logging]
level = "debug"
format = "json"

[delegate]
outside_suffix = "away"
unsupported_events = ["pointerenter"]

[bus]
queue_size = 8
handler_timeout = "250ms"
`}

	cfg, err := LoadFrom(Sources{Path: "/etc/uidelegate.toml", FS: fsys, Environ: env()})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "UI", cfg.Delegate.Emitter, "unset keys keep their defaults")
	assert.Equal(t, "away", cfg.Delegate.OutsideSuffix)
	assert.Equal(t, []string{"pointerenter"}, cfg.Delegate.UnsupportedEvents)
	assert.Equal(t, 8, cfg.Bus.QueueSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Bus.HandlerTimeout.Std())
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	fsys := memFS{"/c.toml": `
[logging]
level = "debug"

[bus]
queue_size = 8
`}

	cfg, err := LoadFrom(Sources{
		Path: "/c.toml",
		FS:   fsys,
		Environ: env(
			"UIDELEGATE_LOG_LEVEL=error",
			"UIDELEGATE_DELEGATE_EMITTER=APP",
			"UIDELEGATE_DELEGATE_UNSUPPORTED_EVENTS=mouseenter",
			"UIDELEGATE_BUS_HANDLER_TIMEOUT=1s",
		),
	})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "APP", cfg.Delegate.Emitter)
	assert.Equal(t, []string{"mouseenter"}, cfg.Delegate.UnsupportedEvents)
	assert.Equal(t, 8, cfg.Bus.QueueSize)
	assert.Equal(t, time.Second, cfg.Bus.HandlerTimeout.Std())
}

func TestLoadFrom_EmptyListFromEnv(t *testing.T) {
	cfg, err := LoadFrom(Sources{Environ: env("UIDELEGATE_DELEGATE_UNSUPPORTED_EVENTS=")})
	require.NoError(t, err)
	assert.Empty(t, cfg.Delegate.UnsupportedEvents)
}

func TestLoadFrom_ParseError(t *testing.T) {
	fsys := memFS{"/bad.toml": "[logging\nlevel = 1"}

	_, err := LoadFrom(Sources{Path: "/bad.toml", FS: fsys, Environ: env()})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/bad.toml", perr.Path)
}

func TestLoadFrom_UnknownSetting(t *testing.T) {
	fsys := memFS{"/c.toml": `
[delegate]
emiter = "UI"
`}

	_, err := LoadFrom(Sources{Path: "/c.toml", FS: fsys, Environ: env()})
	require.ErrorIs(t, err, ErrUnknownSetting)
	assert.Contains(t, err.Error(), "emiter")
}

func TestLoadFrom_TypeMismatch(t *testing.T) {
	_, err := LoadFrom(Sources{Environ: env("UIDELEGATE_BUS_QUEUE_SIZE=lots")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ErrCodeTypeMismatch, verr.Code)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoadFrom_BadDuration(t *testing.T) {
	_, err := LoadFrom(Sources{Environ: env("UIDELEGATE_BUS_HANDLER_TIMEOUT=soon")})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		path   string
		code   ValidationErrorCode
	}{
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level", ErrCodeInvalidEnum},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format", ErrCodeInvalidEnum},
		{"empty emitter", func(c *Config) { c.Delegate.Emitter = "" }, "delegate.emitter", ErrCodeRequiredMissing},
		{"emitter separator", func(c *Config) { c.Delegate.Emitter = "U:I" }, "delegate.emitter", ErrCodePatternMismatch},
		{"wildcard emitter", func(c *Config) { c.Delegate.Emitter = "*" }, "delegate.emitter", ErrCodePatternMismatch},
		{"empty suffix", func(c *Config) { c.Delegate.OutsideSuffix = "" }, "delegate.outside_suffix", ErrCodeRequiredMissing},
		{"suffix space", func(c *Config) { c.Delegate.OutsideSuffix = "out side" }, "delegate.outside_suffix", ErrCodePatternMismatch},
		{"event name", func(c *Config) { c.Delegate.UnsupportedEvents = []string{""} }, "delegate.unsupported_events", ErrCodePatternMismatch},
		{"queue size", func(c *Config) { c.Bus.QueueSize = 0 }, "bus.queue_size", ErrCodeOutOfRange},
		{"timeout", func(c *Config) { c.Bus.HandlerTimeout = Duration(-time.Second) }, "bus.handler_timeout", ErrCodeOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.path, verr.Path)
			assert.Equal(t, tt.code, verr.Code)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	cfg.Bus.QueueSize = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "bus.queue_size")

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Len(t, joined.Unwrap(), 2)
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))

	assert.Error(t, d.UnmarshalText([]byte("90")))
}

func TestConfig_Options(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.BusOptions(zerolog.Nop()), 4)
	assert.Len(t, cfg.DelegateOptions(zerolog.Nop()), 4)

	lc := cfg.LoggingConfig("replay")
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "replay", lc.Component)
}

func TestValidationErrorCode_String(t *testing.T) {
	assert.Equal(t, "out_of_range", ErrCodeOutOfRange.String())
	assert.Equal(t, "invalid_enum", ErrCodeInvalidEnum.String())
	assert.Equal(t, "unknown", ValidationErrorCode(99).String())
}
