package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader builds a Config from a hierarchy of sources. From lowest to highest
// priority:
//  1. Default values
//  2. base.yaml
//  3. <environment>.yaml
//  4. local.yaml (development only)
//  5. Environment variables
type Loader struct {
	basePath    string
	environment Environment
	lookup      func(string) (string, bool)
}

// NewLoader creates a loader reading files from basePath. The environment
// is taken from ARCHIVE_ENV when env is empty.
func NewLoader(basePath string, env Environment) *Loader {
	if env == "" {
		env = Environment(strings.ToLower(os.Getenv("ARCHIVE_ENV")))
	}
	if env == "" {
		env = Development
	}
	return &Loader{
		basePath:    basePath,
		environment: env,
		lookup:      os.LookupEnv,
	}
}

// BasePath is the directory configuration files are read from.
func (l *Loader) BasePath() string {
	return l.basePath
}

// Load reads every source and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	cfg.Environment = l.environment
	sources := []string{"defaults"}

	files := []string{"base", string(l.environment)}
	if l.environment == Development {
		files = append(files, "local")
	}
	for _, name := range files {
		path, err := l.loadFile(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", name, err)
		}
		if path != "" {
			sources = append(sources, path)
		}
	}

	l.loadEnvironmentVariables(cfg)
	sources = append(sources, "environment")
	cfg.LoadedFrom = sources

	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile merges <name>.yaml or <name>.yml into cfg. A missing file is not
// an error; the returned path is empty in that case.
func (l *Loader) loadFile(name string, cfg *Config) (string, error) {
	if l.basePath == "" {
		return "", nil
	}
	for _, ext := range []string{"yaml", "yml"} {
		path := filepath.Join(l.basePath, name+"."+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return path, nil
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

// loadEnvironmentVariables overlays variables onto cfg. The unprefixed
// SUPABASE_* names are accepted so an existing web app .env can be reused.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	l.setString(&cfg.Supabase.URL, "SUPABASE_URL", "ARCHIVE_SUPABASE_URL")
	l.setString(&cfg.Supabase.AnonKey, "SUPABASE_ANON_KEY", "ARCHIVE_SUPABASE_ANON_KEY")
	l.setString(&cfg.Supabase.Schema, "ARCHIVE_SUPABASE_SCHEMA")
	l.setString(&cfg.Store.Backend, "ARCHIVE_STORE_BACKEND")
	l.setDuration(&cfg.Store.Timeout, "ARCHIVE_STORE_TIMEOUT")

	l.setString(&cfg.Tables.Visual, "ARCHIVE_TABLE_VISUAL")
	l.setString(&cfg.Tables.System, "ARCHIVE_TABLE_SYSTEM")
	l.setString(&cfg.Tables.Community, "ARCHIVE_TABLE_COMMUNITY")
	l.setString(&cfg.Tables.Workflow, "ARCHIVE_TABLE_WORKFLOW")
	l.setString(&cfg.Tables.Likes, "ARCHIVE_TABLE_LIKES")

	l.setString(&cfg.Session.StorePath, "ARCHIVE_SESSION_PATH")
	l.setDuration(&cfg.Notices.TTL, "ARCHIVE_NOTICE_TTL")
	l.setString(&cfg.Logging.Level, "ARCHIVE_LOG_LEVEL", "LOG_LEVEL")

	l.setString(&cfg.Server.Host, "ARCHIVE_SERVER_HOST")
	if v, ok := l.get("ARCHIVE_SERVER_PORT", "PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v, ok := l.get("ARCHIVE_ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	l.setBool(&cfg.CircuitBreaker.Enabled, "ARCHIVE_BREAKER_ENABLED")
	l.setBool(&cfg.Metrics.Enabled, "ARCHIVE_METRICS_ENABLED")
	l.setBool(&cfg.Tracing.Enabled, "ARCHIVE_TRACING_ENABLED")
	l.setString(&cfg.Tracing.Endpoint, "ARCHIVE_TRACING_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v, ok := l.get("ARCHIVE_TRACING_SAMPLE_RATE"); ok {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.SampleRate = rate
		}
	}
}

// get returns the first non-empty variable among keys.
func (l *Loader) get(keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := l.lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (l *Loader) setString(dst *string, keys ...string) {
	if v, ok := l.get(keys...); ok {
		*dst = v
	}
}

func (l *Loader) setBool(dst *bool, keys ...string) {
	if v, ok := l.get(keys...); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func (l *Loader) setDuration(dst *time.Duration, keys ...string) {
	if v, ok := l.get(keys...); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load is a convenience wrapper around NewLoader(basePath, "").Load().
func Load(basePath string) (*Config, error) {
	return NewLoader(basePath, "").Load()
}

// MustLoad loads the configuration or panics.
func MustLoad(basePath string) *Config {
	cfg, err := Load(basePath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
