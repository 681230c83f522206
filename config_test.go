package pgfleet_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgfleet "github.com/pgfleet/pgfleet"
	"github.com/rs/zerolog"
)

// testLogger returns a disabled zerolog logger for tests.
func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// validConfig returns a minimal valid Config for testing. No connection is
// ever opened against these entries.
func validConfig() pgfleet.Config {
	return pgfleet.Config{
		Databases: map[string]pgfleet.DatabaseConfig{
			"orders": {Host: "db1.internal", Port: 5432, User: "reader", Password: "secret"},
			"users":  {Host: "db2.internal", Port: 5433, User: "reader", Password: "secret", Database: "users_prod"},
		},
	}
}

// writeConfigFile writes content to a pgfleet.yaml in a fresh temp dir and
// returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pgfleet.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// expectPanic calls f and asserts that it panics with a message containing substr.
func expectPanic(t *testing.T, substr string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, but no panic occurred", substr)
		}
		msg := ""
		switch v := r.(type) {
		case string:
			msg = v
		case error:
			msg = v.Error()
		default:
			t.Fatalf("expected panic string/error containing %q, got %T: %v", substr, r, r)
		}
		if !strings.Contains(msg, substr) {
			t.Fatalf("expected panic containing %q, got %q", substr, msg)
		}
	}()
	f()
}

// expectNoPanic calls f and asserts that it does NOT panic.
func expectNoPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	f()
}

const fullConfigYAML = `databases:
  orders:
    host: db1.internal
    port: 5432
    user: reader
    password: secret
  users:
    host: db2.internal
    port: 5433
    user: reader
    password: secret
    database: users_prod

logging:
  level: debug
  format: text
  output: stdout

server:
  transport: http
  port: 9090
  health_check_enabled: true
  health_check_path: /ready
`

func TestLoadConfig_FullFile(t *testing.T) {
	path := writeConfigFile(t, fullConfigYAML)

	cfg, err := pgfleet.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if len(cfg.Databases) != 2 {
		t.Fatalf("expected 2 databases, got %d", len(cfg.Databases))
	}
	orders := cfg.Databases["orders"]
	if orders.Host != "db1.internal" || orders.Port != 5432 {
		t.Fatalf("unexpected orders entry: %+v", orders)
	}
	// database defaults to the entry key
	if orders.Database != "orders" {
		t.Fatalf("expected database to default to entry key, got %q", orders.Database)
	}
	if cfg.Databases["users"].Database != "users_prod" {
		t.Fatalf("expected explicit database name to survive, got %q", cfg.Databases["users"].Database)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" || cfg.Logging.Output != "stdout" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Server.Transport != "http" || cfg.Server.Port != 9090 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if !cfg.Server.HealthCheckEnabled || cfg.Server.HealthCheckPath != "/ready" {
		t.Fatalf("unexpected health check config: %+v", cfg.Server)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, `databases:
  main:
    host: localhost
    port: 5432
    user: reader
    password: secret
`)

	cfg, err := pgfleet.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Server.Transport != "stdio" || cfg.Server.Port != 8080 {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Server.HealthCheckPath != "/healthz" {
		t.Fatalf("unexpected health check path default: %q", cfg.Server.HealthCheckPath)
	}
}

func TestLoadConfig_ZeroDatabasesIsValid(t *testing.T) {
	path := writeConfigFile(t, `databases: {}
`)

	cfg, err := pgfleet.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.Databases) != 0 {
		t.Fatalf("expected 0 databases, got %d", len(cfg.Databases))
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := pgfleet.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config") {
		t.Fatalf("expected read error, got: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "databases: [not: valid\n")
	_, err := pgfleet.LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadConfig_EnvOverridesLogging(t *testing.T) {
	t.Setenv("PGFLEET_LOG_LEVEL", "error")
	t.Setenv("PGFLEET_LOG_FORMAT", "text")
	path := writeConfigFile(t, `databases:
  main:
    host: localhost
    port: 5432
    user: reader
    password: secret

logging:
  level: debug
`)

	cfg, err := pgfleet.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Fatalf("expected env to override file level, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Fatalf("expected env to set format, got %q", cfg.Logging.Format)
	}
}

func TestLoadConfig_EnvOverridesTransport(t *testing.T) {
	t.Setenv("PGFLEET_TRANSPORT", "http")
	t.Setenv("PGFLEET_PORT", "7070")
	path := writeConfigFile(t, `databases:
  main:
    host: localhost
    port: 5432
    user: reader
    password: secret
`)

	cfg, err := pgfleet.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Transport != "http" || cfg.Server.Port != 7070 {
		t.Fatalf("expected env transport override, got %+v", cfg.Server)
	}
}

// --- Validation ---

func TestLoadConfigValidation_MissingHost(t *testing.T) {
	path := writeConfigFile(t, `databases:
  main:
    port: 5432
    user: reader
    password: secret
`)
	_, err := pgfleet.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "host must be set") {
		t.Fatalf("expected host validation error, got: %v", err)
	}
}

func TestLoadConfigValidation_MissingPort(t *testing.T) {
	path := writeConfigFile(t, `databases:
  main:
    host: localhost
    user: reader
    password: secret
`)
	_, err := pgfleet.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "port must be > 0") {
		t.Fatalf("expected port validation error, got: %v", err)
	}
}

func TestLoadConfigValidation_MissingUser(t *testing.T) {
	path := writeConfigFile(t, `databases:
  main:
    host: localhost
    port: 5432
    password: secret
`)
	_, err := pgfleet.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "user must be set") {
		t.Fatalf("expected user validation error, got: %v", err)
	}
}

func TestLoadConfigValidation_MissingPassword(t *testing.T) {
	path := writeConfigFile(t, `databases:
  main:
    host: localhost
    port: 5432
    user: reader
`)
	_, err := pgfleet.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "password must be set") {
		t.Fatalf("expected password validation error, got: %v", err)
	}
}

func TestLoadConfigValidation_FirstErrorIsDeterministic(t *testing.T) {
	// Both entries are broken; the error must name the alphabetically
	// first one.
	path := writeConfigFile(t, `databases:
  zebra:
    host: localhost
    port: 5432
    user: reader
  alpha:
    port: 5432
    user: reader
    password: secret
`)
	_, err := pgfleet.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), `"alpha"`) {
		t.Fatalf("expected error naming alpha, got: %v", err)
	}
}

func TestLoadConfigValidation_BadTransport(t *testing.T) {
	path := writeConfigFile(t, `databases: {}
server:
  transport: websocket
`)
	_, err := pgfleet.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "transport") {
		t.Fatalf("expected transport validation error, got: %v", err)
	}
}

func TestValidate_HealthCheckPathRequired(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Server.HealthCheckEnabled = true
	cfg.Server.HealthCheckPath = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "health_check_path") {
		t.Fatalf("expected health_check_path validation error, got: %v", err)
	}
}

func TestValidate_ValidConfigPasses(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config to pass, got: %v", err)
	}
}

// --- Config path resolution ---

func TestResolveConfigPath_ExplicitWins(t *testing.T) {
	t.Setenv(pgfleet.EnvConfigPath, "/from/env.yaml")
	got := pgfleet.ResolveConfigPath("/explicit/path.yaml")
	if got != "/explicit/path.yaml" {
		t.Fatalf("expected explicit path to win, got %q", got)
	}
}

func TestResolveConfigPath_EnvVar(t *testing.T) {
	t.Setenv(pgfleet.EnvConfigPath, "/from/env.yaml")
	got := pgfleet.ResolveConfigPath("")
	if got != "/from/env.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
}

func TestResolveConfigPath_LocalFile(t *testing.T) {
	t.Setenv(pgfleet.EnvConfigPath, "")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pgfleet.yaml"), []byte("databases: {}\n"), 0600); err != nil {
		t.Fatalf("failed to write local config: %v", err)
	}
	t.Chdir(dir)

	got := pgfleet.ResolveConfigPath("")
	if got != "pgfleet.yaml" {
		t.Fatalf("expected local pgfleet.yaml, got %q", got)
	}
}

func TestResolveConfigPath_FallbackWithoutAnyFile(t *testing.T) {
	t.Setenv(pgfleet.EnvConfigPath, "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	got := pgfleet.ResolveConfigPath("")
	if got != "pgfleet.yaml" {
		t.Fatalf("expected fallback to local name, got %q", got)
	}
}
