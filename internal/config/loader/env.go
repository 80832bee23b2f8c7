package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "UIDELEGATE_"

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "UIDELEGATE_")
	mapping map[string]string // Env var -> config path
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		environ: os.Environ,
	}
}

// defaultEnvMapping maps the variables whose section or key contains an
// underscore and so cannot be derived from the name.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "LOG_LEVEL":                   "logging.level",
		prefix + "LOG_FORMAT":                  "logging.format",
		prefix + "DELEGATE_OUTSIDE_SUFFIX":     "delegate.outside_suffix",
		prefix + "DELEGATE_UNSUPPORTED_EVENTS": "delegate.unsupported_events",
		prefix + "BUS_QUEUE_SIZE":              "bus.queue_size",
		prefix + "BUS_HANDLER_TIMEOUT":         "bus.handler_timeout",
	}
}

// Load reads environment variables and returns a configuration map.
// Empty values count as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if path, mapped := l.mapping[name]; mapped {
			setByPath(config, path, parseValue(value))
			continue
		}
		if !strings.HasPrefix(name, l.prefix) {
			continue
		}
		// UIDELEGATE_DELEGATE_EMITTER -> delegate.emitter
		setByPath(config, l.envToPath(name), parseValue(value))
	}

	return config, nil
}

// WithEnviron replaces the environment source, os.Environ by default.
func (l *EnvLoader) WithEnviron(environ func() []string) *EnvLoader {
	if environ != nil {
		l.environ = environ
	}
	return l
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// envToPath converts UIDELEGATE_BUS_QUEUE_SIZE to bus.queue_size: the
// first word names the section, the rest the key.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok {
		return section
	}
	return section + "." + key
}

// parseValue converts a variable to the TOML type it stands for. Duration
// strings stay strings; the config decoder parses them.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	// JSON arrays, or a comma separated list
	if strings.HasPrefix(s, "[") {
		var v []any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		list := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		return list
	}

	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
