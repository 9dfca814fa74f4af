package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
)

func newTestLoader(dir string, env Environment, vars map[string]string) *Loader {
	l := NewLoader(dir, env)
	l.lookup = func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
	return l
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// TestLoad_Defaults loads with no files and only the required variables.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := newTestLoader(t.TempDir(), Development, map[string]string{
		"SUPABASE_URL":      "https://project.supabase.co",
		"SUPABASE_ANON_KEY": "anon",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, BackendSupabase, cfg.Store.Backend)
	assert.Equal(t, "https://project.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, 2400*time.Millisecond, cfg.Notices.TTL)
	assert.Equal(t, catalog.DefaultCollections(), cfg.Collections())
	assert.Equal(t, catalog.DefaultFacets(), cfg.FacetTable())
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
}

// TestLoad_FileHierarchy checks base < environment < local < variables.
func TestLoad_FileHierarchy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
store:
  backend: memory
logging:
  level: warn
server:
  port: 9000
tables:
  likes: base_likes
`)
	writeFile(t, dir, "development.yaml", `
logging:
  level: debug
tables:
  likes: dev_likes
notices:
  ttl: 3s
`)
	writeFile(t, dir, "local.yml", `
server:
  port: 9100
`)

	cfg, err := newTestLoader(dir, Development, map[string]string{
		"ARCHIVE_SERVER_PORT": "9200",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "dev_likes", cfg.Tables.Likes)
	assert.Equal(t, 3*time.Second, cfg.Notices.TTL)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Len(t, cfg.LoadedFrom, 5)
}

// TestLoad_LocalIgnoredOutsideDevelopment keeps local overrides out of production.
func TestLoad_LocalIgnoredOutsideDevelopment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "store:\n  backend: memory\n")
	writeFile(t, dir, "local.yaml", "server:\n  port: 9100\n")

	cfg, err := newTestLoader(dir, Production, nil).Load()
	require.NoError(t, err)

	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, 0.1, cfg.Tracing.SampleRate)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "store: [not a map")

	_, err := newTestLoader(dir, Development, nil).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base")
}

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Supabase.URL = "https://project.supabase.co"
		cfg.Supabase.AnonKey = "anon"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "supabase backend without credentials",
			mutate:  func(c *Config) { c.Supabase.AnonKey = "" },
			wantErr: "anon_key",
		},
		{
			name:   "memory backend needs no credentials",
			mutate: func(c *Config) { c.Store.Backend = BackendMemory; c.Supabase = Supabase{} },
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Store.Backend = "mongo" },
			wantErr: "Backend",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "Port",
		},
		{
			name:    "empty likes table",
			mutate:  func(c *Config) { c.Tables.Likes = "" },
			wantErr: "Likes",
		},
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.CircuitBreaker.FailureThreshold = 1.5 },
			wantErr: "FailureThreshold",
		},
		{
			name:    "tracing without endpoint",
			mutate:  func(c *Config) { c.Tracing.Enabled = true },
			wantErr: "Endpoint",
		},
		{
			name: "facet for unknown type",
			mutate: func(c *Config) {
				c.Facets = map[string]catalog.FacetSpec{"video": {Field: "volume"}}
			},
			wantErr: "video",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFacetTableOverrides(t *testing.T) {
	cfg := Default()
	cfg.Facets = map[string]catalog.FacetSpec{
		"workflow": {Field: catalog.FieldModel},
	}

	table := cfg.FacetTable()
	assert.Equal(t, catalog.FacetSpec{Field: catalog.FieldModel, Default: "WORKFLOW"}, table[catalog.ItemTypeWorkflow])
	assert.Equal(t, catalog.DefaultFacets()[catalog.ItemTypeVisual], table[catalog.ItemTypeVisual])
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "store:\n  backend: memory\nlogging:\n  level: info\n")
	loader := newTestLoader(dir, Staging, nil)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := newWatcher(loader, initial, nil, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var levels []string
	w.OnChange(func(c *Config) {
		mu.Lock()
		levels = append(levels, c.Logging.Level)
		mu.Unlock()
	})

	writeFile(t, dir, "base.yaml", "store:\n  backend: memory\nlogging:\n  level: debug\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(levels) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "debug", w.Config().Logging.Level)
}

func TestWatcher_InvalidReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "store:\n  backend: memory\n")
	loader := newTestLoader(dir, Staging, nil)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := newWatcher(loader, initial, nil, 10*time.Millisecond)
	require.NoError(t, err)

	called := make(chan struct{}, 1)
	w.OnChange(func(*Config) { called <- struct{}{} })

	writeFile(t, dir, "base.yaml", "store:\n  backend: mongo\n")
	time.Sleep(200 * time.Millisecond)
	w.Stop()

	assert.Len(t, called, 0)
	assert.Same(t, initial, w.Config())
}

func TestWatcher_RequiresBasePath(t *testing.T) {
	_, err := NewWatcher(NewLoader("", Development), Default(), nil)
	assert.Error(t, err)
}
