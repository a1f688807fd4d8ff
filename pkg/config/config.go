package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader drivers accepted by LoaderConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverHTTP     = "http"
)

// Config is the top level configuration of the dashboards server and CLI.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Loader        LoaderConfig        `yaml:"loader"`
	Redis         RedisConfig         `yaml:"redis"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	HTTPLoader    HTTPLoaderConfig    `yaml:"http_loader"`
	Observability ObservabilityConfig `yaml:"observability"`
	App           AppConfig           `yaml:"app"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	BasePath        string        `yaml:"base_path" validate:"required,startswith=/"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// LoaderConfig selects the saved object backend. Manifest, when set, seeds the
// backend with dashboards at startup.
type LoaderConfig struct {
	Driver   string `yaml:"driver" validate:"required,oneof=memory redis postgres http"`
	Manifest string `yaml:"manifest"`
}

type RedisConfig struct {
	Addr   string `yaml:"addr"`
	DB     int    `yaml:"db" validate:"gte=0"`
	Prefix string `yaml:"prefix"`
}

type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	EnsureSchema bool   `yaml:"ensure_schema"`
}

type HTTPLoaderConfig struct {
	BaseURL           string               `yaml:"base_url" validate:"omitempty,url"`
	APIKey            string               `yaml:"api_key"`
	Timeout           time.Duration        `yaml:"timeout" validate:"gte=0"`
	DeleteConcurrency int                  `yaml:"delete_concurrency" validate:"gte=0"`
	CircuitBreaker    CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	MinRequests      uint32        `yaml:"min_requests"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gte=0,lte=1"`
}

type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// MetricsConfig exposes Prometheus metrics and the plain net/http API on a
// separate admin listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
}

// AppConfig carries the UI capability flags of the dashboards app.
type AppConfig struct {
	HideWriteControls bool `yaml:"hide_write_controls"`
	CreateNew         bool `yaml:"create_new"`
	ShowWriteControls bool `yaml:"show_write_controls"`
}

// Defaults returns a Config that runs an in-memory server on :8080.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			BasePath:        "/app/dashboards",
			ShutdownTimeout: 10 * time.Second,
		},
		Loader: LoaderConfig{
			Driver: DriverMemory,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "dashboards",
		},
		HTTPLoader: HTTPLoaderConfig{
			Timeout:           10 * time.Second,
			DeleteConcurrency: 4,
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests:      5,
				Interval:         30 * time.Second,
				Timeout:          60 * time.Second,
				MinRequests:      5,
				FailureThreshold: 0.8,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Metrics: MetricsConfig{
				Enabled: true,
				Addr:    ":9100",
				Path:    "/metrics",
			},
		},
		App: AppConfig{
			CreateNew:         true,
			ShowWriteControls: true,
		},
	}
}

// Load reads a YAML config file, applies DASHBOARD_* environment overrides and
// validates the result. An empty path skips the file and starts from Defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the settings each loader driver needs.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, formatFieldError(fe))
		}
	}

	switch c.Loader.Driver {
	case DriverRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, "redis.addr is required for the redis loader")
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, "postgres.dsn is required for the postgres loader")
		}
	case DriverHTTP:
		if c.HTTPLoader.BaseURL == "" {
			errs = append(errs, "http_loader.base_url is required for the http loader")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// formatFieldError renders a validation failure using the yaml path of the field,
// e.g. "loader.driver must be one of memory redis postgres http".
func formatFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.Index(path, "."); idx >= 0 {
		path = path[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", path, fe.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", path, fe.Param())
	case "url":
		return path + " must be a valid url"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", path, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}

// applyEnvOverrides reads DASHBOARD_* environment variables. Only the fields
// deployments commonly change are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DASHBOARD_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DASHBOARD_LOADER_DRIVER"); v != "" {
		cfg.Loader.Driver = v
	}
	if v := os.Getenv("DASHBOARD_LOADER_MANIFEST"); v != "" {
		cfg.Loader.Manifest = v
	}
	if v := os.Getenv("DASHBOARD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DASHBOARD_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("DASHBOARD_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("DASHBOARD_HTTP_LOADER_BASE_URL"); v != "" {
		cfg.HTTPLoader.BaseURL = v
	}
	if v := os.Getenv("DASHBOARD_HTTP_LOADER_API_KEY"); v != "" {
		cfg.HTTPLoader.APIKey = v
	}
	if v := os.Getenv("DASHBOARD_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("DASHBOARD_APP_HIDE_WRITE_CONTROLS"); v != "" {
		if hide, err := strconv.ParseBool(v); err == nil {
			cfg.App.HideWriteControls = hide
		}
	}
}
