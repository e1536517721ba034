package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader builds a Config from files under a directory plus the environment.
type Loader struct {
	basePath    string
	environment Environment
	lookupEnv   func(string) (string, bool)
}

// NewLoader creates a loader reading from basePath. An empty basePath means "config".
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{basePath: basePath, environment: env, lookupEnv: os.LookupEnv}
}

// FromEnvironment creates a loader from ENVIRONMENT and CONFIG_DIR.
func FromEnvironment() *Loader {
	env := Environment(strings.ToLower(os.Getenv("ENVIRONMENT")))
	if env == "" {
		env = Development
	}
	return NewLoader(os.Getenv("CONFIG_DIR"), env)
}

// BasePath is the directory the loader reads.
func (l *Loader) BasePath() string { return l.basePath }

// Load applies every layer and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults(l.environment)
	cfg.LoadedFrom = []string{"defaults"}

	layers := []string{"base", string(l.environment)}
	if l.environment == Development {
		layers = append(layers, "local")
	}
	for _, name := range layers {
		path, err := l.loadFile(name, cfg)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", name, err)
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	if err := l.applyEnvironment(cfg); err != nil {
		return nil, err
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	// A file may not move the config to another environment.
	cfg.Environment = l.environment

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) (string, error) {
	for _, ext := range []string{"yaml", "yml"} {
		path := filepath.Join(l.basePath, name+"."+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return path, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return path, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return path, nil
	}
	return "", os.ErrNotExist
}

// applyEnvironment overlays environment variables, the highest priority layer.
func (l *Loader) applyEnvironment(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := l.lookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("LOG_LEVEL", &cfg.LogLevel)
	str("SERVER_HOST", &cfg.Server.Host)
	if v, ok := l.lookupEnv("SERVER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	str("STORE_BACKEND", &cfg.Store.Backend)
	str("SEED_FILE", &cfg.Store.SeedFile)
	str("TABLE_NAME", &cfg.Store.DynamoDB.TableName)
	str("INDEX_NAME", &cfg.Store.DynamoDB.IndexName)
	str("DYNAMODB_ENDPOINT", &cfg.Store.DynamoDB.Endpoint)
	str("DATABASE_URL", &cfg.Store.Postgres.URL)
	str("BADGER_PATH", &cfg.Store.Badger.Path)
	if v, ok := l.lookupEnv("AWS_REGION"); ok && v != "" {
		cfg.Store.DynamoDB.Region = v
		cfg.Events.Region = v
	}

	str("EVENT_BUS_NAME", &cfg.Events.EventBusName)
	str("EVENTS_PROVIDER", &cfg.Events.Provider)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Observability.OTLPEndpoint)
	str("OTEL_SERVICE_NAME", &cfg.Observability.ServiceName)

	for key, dst := range map[string]*bool{
		"EVENTS_ENABLED":     &cfg.Events.Enabled,
		"METRICS_ENABLED":    &cfg.Observability.MetricsEnabled,
		"TRACING_ENABLED":    &cfg.Observability.TracingEnabled,
		"RATE_LIMIT_ENABLED": &cfg.RateLimit.Enabled,
		"CORS_ENABLED":       &cfg.CORS.Enabled,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	return nil
}
