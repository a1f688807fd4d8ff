package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_valid(t *testing.T) {
	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 15s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Loader.Driver != DriverRedis {
		t.Errorf("Loader.Driver = %q, want redis", cfg.Loader.Driver)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 || cfg.Redis.Prefix != "osd" {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.HTTPLoader.CircuitBreaker.MinRequests != 10 {
		t.Errorf("CircuitBreaker.MinRequests = %d, want 10", cfg.HTTPLoader.CircuitBreaker.MinRequests)
	}
	// Unset nested fields keep their defaults.
	if cfg.HTTPLoader.CircuitBreaker.MaxRequests != 5 {
		t.Errorf("CircuitBreaker.MaxRequests = %d, want default 5", cfg.HTTPLoader.CircuitBreaker.MaxRequests)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Observability.LogLevel)
	}
	if !cfg.App.HideWriteControls {
		t.Error("App.HideWriteControls = false, want true")
	}
}

func TestLoad_missing_file(t *testing.T) {
	if _, err := Load("testdata/nonexistent.yaml"); err == nil {
		t.Fatal("Load() with missing file should return error")
	}
}

func TestLoad_empty_path_uses_defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Loader.Driver != DriverMemory {
		t.Errorf("Loader.Driver = %q, want memory", cfg.Loader.Driver)
	}
}

func TestLoad_driver_requirements(t *testing.T) {
	_, err := Load("testdata/missing_dsn.yaml")
	if err == nil {
		t.Fatal("Load() without postgres dsn should return error")
	}
	if !strings.Contains(err.Error(), "postgres.dsn is required") {
		t.Errorf("error = %v, want postgres.dsn message", err)
	}
}

func TestLoad_reports_every_field(t *testing.T) {
	_, err := Load("testdata/bad_driver.yaml")
	if err == nil {
		t.Fatal("Load() with bad driver should return error")
	}
	msg := err.Error()
	for _, want := range []string{
		"loader.driver must be one of memory redis postgres http",
		`server.base_path must start with "/"`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestLoad_env_overrides(t *testing.T) {
	t.Setenv("DASHBOARD_SERVER_ADDR", ":7000")
	t.Setenv("DASHBOARD_LOADER_DRIVER", "postgres")
	t.Setenv("DASHBOARD_POSTGRES_DSN", "postgres://localhost/dashboards")
	t.Setenv("DASHBOARD_REDIS_DB", "not-a-number")
	t.Setenv("DASHBOARD_APP_HIDE_WRITE_CONTROLS", "true")

	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Server.Addr = %q, want :7000", cfg.Server.Addr)
	}
	if cfg.Loader.Driver != DriverPostgres {
		t.Errorf("Loader.Driver = %q, want postgres", cfg.Loader.Driver)
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("Redis.DB = %d, want 2 (invalid override ignored)", cfg.Redis.DB)
	}
	if !cfg.App.HideWriteControls {
		t.Error("App.HideWriteControls = false, want true")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("default LogLevel = %q, want info", cfg.Observability.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults().Validate() error = %v", err)
	}
}
