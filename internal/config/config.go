// Package config loads the archive client configuration from defaults, yaml
// files and the environment, and validates the result.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

// Config is the complete client configuration.
type Config struct {
	Environment    Environment                  `yaml:"environment" validate:"required,oneof=development staging production"`
	Store          Store                        `yaml:"store"`
	Supabase       Supabase                     `yaml:"supabase"`
	Tables         Tables                       `yaml:"tables"`
	Facets         map[string]catalog.FacetSpec `yaml:"facets"`
	Session        Session                      `yaml:"session"`
	Notices        Notices                      `yaml:"notices"`
	Logging        Logging                      `yaml:"logging"`
	Server         Server                       `yaml:"server"`
	CircuitBreaker CircuitBreaker               `yaml:"circuit_breaker"`
	Metrics        Metrics                      `yaml:"metrics"`
	Tracing        Tracing                      `yaml:"tracing"`

	// Metadata
	LoadedFrom []string `yaml:"-"`
}

// Store selects the remote store backend.
type Store struct {
	Backend string        `yaml:"backend" validate:"required,oneof=supabase memory"`
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
}

// Supabase holds the remote project coordinates.
type Supabase struct {
	URL     string `yaml:"url" validate:"omitempty,url"`
	AnonKey string `yaml:"anon_key"`
	Schema  string `yaml:"schema"`
}

// Tables names the remote collection per item type and the likes table.
type Tables struct {
	Visual    string `yaml:"visual" validate:"required"`
	System    string `yaml:"system" validate:"required"`
	Community string `yaml:"community" validate:"required"`
	Workflow  string `yaml:"workflow" validate:"required"`
	Likes     string `yaml:"likes" validate:"required"`
}

// Session configures where the signed-in session is persisted.
type Session struct {
	StorePath string `yaml:"store_path" validate:"required"`
}

// Notices configures transient notifications.
type Notices struct {
	TTL time.Duration `yaml:"ttl" validate:"gt=0"`
}

// Logging configures the structured logger.
type Logging struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Server configures the local JSON API.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// CircuitBreaker configures the breaker in front of the remote store.
type CircuitBreaker struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests" validate:"min=1"`
	Interval         time.Duration `yaml:"interval" validate:"gt=0"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests" validate:"min=1"`
}

// Metrics configures the prometheus collector.
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required"`
}

// Tracing configures OTLP trace export.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name" validate:"required"`
	Endpoint    string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	SampleRate  float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Default returns the configuration used before any file or variable is applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		Store: Store{
			Backend: BackendSupabase,
			Timeout: 15 * time.Second,
		},
		Supabase: Supabase{
			Schema: "public",
		},
		Tables: Tables{
			Visual:    "prompts",
			System:    "functional_prompts",
			Community: "community_visuals",
			Workflow:  "workflows",
			Likes:     "user_likes",
		},
		Session: Session{
			StorePath: ".archive/session.db",
		},
		Notices: Notices{
			TTL: 2400 * time.Millisecond,
		},
		Logging: Logging{
			Level: "info",
		},
		Server: Server{
			Host:            "127.0.0.1",
			Port:            8787,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000"},
		},
		CircuitBreaker: CircuitBreaker{
			Enabled:          true,
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "archive",
		},
		Tracing: Tracing{
			ServiceName: "archive-client",
			SampleRate:  1.0,
		},
	}
}

// applyEnvironmentDefaults tightens settings for non-development environments.
func (c *Config) applyEnvironmentDefaults() {
	switch c.Environment {
	case Production:
		if c.Tracing.SampleRate == 1.0 {
			c.Tracing.SampleRate = 0.1
		}
		if c.Logging.Level == "debug" {
			c.Logging.Level = "info"
		}
	case Development:
		c.Tracing.SampleRate = 1.0
	}
}

var validate = validator.New()

// Validate checks struct constraints plus the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return invalid(describe(err))
	}

	if c.Store.Backend == BackendSupabase {
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return invalid("supabase backend requires supabase.url and supabase.anon_key")
		}
	}

	for name, spec := range c.Facets {
		if _, err := catalog.ParseItemType(name); err != nil {
			return invalid(fmt.Sprintf("facets: unknown item type %q", name))
		}
		if spec.Field == "" {
			return invalid(fmt.Sprintf("facets.%s: field is required", name))
		}
	}

	return nil
}

// Collections returns the remote collection table.
func (c *Config) Collections() catalog.Collections {
	return catalog.Collections{
		ByType: map[catalog.ItemType]string{
			catalog.ItemTypeVisual:    c.Tables.Visual,
			catalog.ItemTypeSystem:    c.Tables.System,
			catalog.ItemTypeCommunity: c.Tables.Community,
			catalog.ItemTypeWorkflow:  c.Tables.Workflow,
		},
		Likes: c.Tables.Likes,
	}
}

// FacetTable returns the built-in facet table with configured overrides applied.
func (c *Config) FacetTable() catalog.FacetTable {
	table := catalog.DefaultFacets()
	for name, spec := range c.Facets {
		t, err := catalog.ParseItemType(name)
		if err != nil {
			continue
		}
		if spec.Default == "" {
			spec.Default = table.Spec(t).Default
		}
		table[t] = spec
	}
	return table
}

// Address is the listen address of the local API.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func invalid(details string) error {
	return apperrors.Validation(apperrors.CodeInvalidConfig.String(), "invalid configuration").
		WithDetails(details).
		Build()
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
