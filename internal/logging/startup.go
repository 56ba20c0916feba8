package logging

import (
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects the build identity, service endpoint, configuration,
// and feature flags of a command, then emits a single structured zerolog
// event summarising how it was configured.
type StartupLogger struct {
	name         string
	commitHash   string
	buildTime    string
	serviceURL   string
	initDuration time.Duration

	features map[string]bool
	config   map[string]string
}

// NewStartupLogger creates a StartupLogger for the given command name
// (e.g. "compress-cli").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// CommitHash sets the git commit hash baked into the binary at build time.
func (s *StartupLogger) CommitHash(hash string) *StartupLogger {
	s.commitHash = hash
	return s
}

// BuildTime sets the UTC build timestamp baked into the binary at build time.
func (s *StartupLogger) BuildTime(t string) *StartupLogger {
	s.buildTime = t
	return s
}

// ServiceURL records the compression service endpoint.
func (s *StartupLogger) ServiceURL(u string) *StartupLogger {
	s.serviceURL = u
	return s
}

// Feature registers a boolean feature flag (e.g. "passwordProtection").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
// Never pass passwords here.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long startup took.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits a single structured INFO log event with all collected information.
func (s *StartupLogger) Log() {
	s.LogTo(log.Logger)
}

// LogTo is Log against an explicit logger.
func (s *StartupLogger) LogTo(logger zerolog.Logger) {
	evt := logger.Info()

	app := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("os", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Str("logLevel", EnvOrDefault(LevelEnv, "info"))
	if s.commitHash != "" {
		app = app.Str("commitHash", s.commitHash)
	}
	if s.buildTime != "" {
		app = app.Str("buildTime", s.buildTime)
	}
	evt = evt.Dict("app", app)

	if s.serviceURL != "" {
		evt = evt.Str("serviceUrl", s.serviceURL)
	}

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for _, k := range sortedKeys(s.features) {
			d = d.Bool(k, s.features[k])
		}
		evt = evt.Dict("features", d)
	}

	if len(s.config) > 0 {
		d := zerolog.Dict()
		for _, k := range sortedKeys(s.config) {
			d = d.Str(k, s.config[k])
		}
		evt = evt.Dict("config", d)
	}

	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
