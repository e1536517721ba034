// Package config loads and validates the service configuration.
//
// Configuration is layered. From lowest to highest priority:
//  1. defaults compiled into the binary
//  2. base.yaml
//  3. <environment>.yaml
//  4. local.yaml (development only)
//  5. environment variables
//
// The result is validated with struct tags before it is handed out.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
	Test        Environment = "test"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// Config is the complete service configuration.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development staging production test"`
	LogLevel    string      `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	Server        Server        `yaml:"server"`
	Store         Store         `yaml:"store"`
	Analytics     Analytics     `yaml:"analytics"`
	Events        Events        `yaml:"events"`
	Observability Observability `yaml:"observability"`
	RateLimit     RateLimit     `yaml:"rate_limit"`
	CORS          CORS          `yaml:"cors"`

	// LoadedFrom lists the sources that contributed, in load order.
	LoadedFrom []string `yaml:"-"`
}

type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

// Addr returns host:port.
func (s Server) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type Store struct {
	Backend           string   `yaml:"backend" validate:"required,oneof=memory dynamodb postgres badger"`
	LoaderConcurrency int      `yaml:"loader_concurrency" validate:"min=1,max=64"`
	SeedFile          string   `yaml:"seed_file"`
	DynamoDB          DynamoDB `yaml:"dynamodb"`
	Postgres          Postgres `yaml:"postgres"`
	Badger            Badger   `yaml:"badger"`
	Breaker           Breaker  `yaml:"breaker"`
}

type DynamoDB struct {
	TableName string `yaml:"table_name"`
	IndexName string `yaml:"index_name"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
}

type Postgres struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns" validate:"min=0"`
}

type Badger struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

type Breaker struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"min=0,max=1"`
	MinRequests      uint32        `yaml:"min_requests"`
}

type Analytics struct {
	// MaxWorkers of zero sizes the pool from the runtime environment.
	MaxWorkers          int           `yaml:"max_workers" validate:"min=0,max=64"`
	ParallelThreshold   int           `yaml:"parallel_threshold" validate:"min=0"`
	SimilarityTimeout   time.Duration `yaml:"similarity_timeout" validate:"gt=0"`
	DefaultSimilarLimit int           `yaml:"default_similar_limit" validate:"min=0,max=100"`
	CentralityLimit     int           `yaml:"centrality_limit" validate:"min=1,max=100"`
	GapSuggestions      []string      `yaml:"gap_suggestions" validate:"dive,required"`
}

type Events struct {
	Enabled      bool   `yaml:"enabled"`
	Provider     string `yaml:"provider" validate:"omitempty,oneof=log eventbridge"`
	EventBusName string `yaml:"event_bus_name"`
	Source       string `yaml:"source"`
	Region       string `yaml:"region"`
}

type Observability struct {
	MetricsEnabled bool    `yaml:"metrics_enabled"`
	MetricsPath    string  `yaml:"metrics_path" validate:"omitempty,startswith=/"`
	Namespace      string  `yaml:"namespace"`
	TracingEnabled bool    `yaml:"tracing_enabled"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	ServiceName    string  `yaml:"service_name"`
	SampleRate     float64 `yaml:"sample_rate" validate:"min=0,max=1"`
}

type RateLimit struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gt=0"`
	Burst             int           `yaml:"burst" validate:"min=1"`
	IdleTTL           time.Duration `yaml:"idle_ttl" validate:"gt=0"`
}

type CORS struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" validate:"min=0"`
}

var validate = validator.New()

// Validate checks field constraints and the settings each backend needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var problems []string
	switch c.Store.Backend {
	case BackendDynamoDB:
		if c.Store.DynamoDB.TableName == "" {
			problems = append(problems, "store.dynamodb.table_name is required")
		}
		if c.Store.DynamoDB.IndexName == "" {
			problems = append(problems, "store.dynamodb.index_name is required")
		}
	case BackendPostgres:
		if c.Store.Postgres.URL == "" {
			problems = append(problems, "store.postgres.url is required")
		}
	case BackendBadger:
		if c.Store.Badger.Path == "" && !c.Store.Badger.InMemory {
			problems = append(problems, "store.badger.path is required unless in_memory is set")
		}
	}
	if c.Events.Enabled && c.Events.Provider == "eventbridge" && c.Events.EventBusName == "" {
		problems = append(problems, "events.event_bus_name is required for eventbridge")
	}
	if c.Observability.TracingEnabled && c.Observability.OTLPEndpoint == "" {
		problems = append(problems, "observability.otlp_endpoint is required when tracing is enabled")
	}
	if c.Environment == Production && c.Store.Backend == BackendMemory {
		problems = append(problems, "the memory store cannot be used in production")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsDevelopment reports whether hot reload and verbose errors apply.
func (c *Config) IsDevelopment() bool { return c.Environment == Development }

// Defaults returns the configuration used before any file or variable is applied.
func Defaults(env Environment) *Config {
	return &Config{
		Environment: env,
		LogLevel:    "info",
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Store: Store{
			Backend:           BackendMemory,
			LoaderConcurrency: 8,
			DynamoDB: DynamoDB{
				TableName: "kbgraph-" + string(env),
				IndexName: "GSI1",
				Region:    "us-east-1",
			},
			Postgres: Postgres{MaxConns: 10},
			Badger:   Badger{Path: "./data/kbgraph"},
			Breaker: Breaker{
				Enabled:          true,
				MaxRequests:      5,
				Interval:         30 * time.Second,
				Timeout:          60 * time.Second,
				FailureThreshold: 0.8,
				MinRequests:      5,
			},
		},
		Analytics: Analytics{
			ParallelThreshold:   200,
			SimilarityTimeout:   10 * time.Second,
			DefaultSimilarLimit: 5,
			CentralityLimit:     10,
		},
		Events: Events{
			Provider: "log",
			Source:   "kbgraph.categories",
			Region:   "us-east-1",
		},
		Observability: Observability{
			MetricsEnabled: true,
			MetricsPath:    "/metrics",
			Namespace:      "kbgraph",
			ServiceName:    "kbgraph",
			SampleRate:     0.1,
		},
		RateLimit: RateLimit{
			RequestsPerSecond: 20,
			Burst:             40,
			IdleTTL:           10 * time.Minute,
		},
		CORS: CORS{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		},
	}
}
