package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv neutralizes every variable applyEnv reads so tests observe
// only their own overrides.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "JWT_SECRET", "LOG_LEVEL",
		"COMMUNITIES_HOST", "COMMUNITIES_ADMIN_USER", "COMMUNITIES_ADMIN_PASSWORD",
		"COMMUNITIES_API_KEY", "COMMUNITIES_AUTH_DISABLED", "COMMUNITIES_MAX_VERTICES",
		"COMMUNITIES_TIME_LIMIT", "COMMUNITIES_MAX_CUT_ROUNDS", "COMMUNITIES_MAX_CONCURRENT",
		"COMMUNITIES_REMOTE_LISTEN", "COMMUNITIES_REMOTE_DIAL",
		"COMMUNITIES_ARCHIVE_ENABLED", "COMMUNITIES_ARCHIVE_DIR",
		"COMMUNITIES_S3_BUCKET", "COMMUNITIES_S3_PREFIX", "COMMUNITIES_S3_REGION", "COMMUNITIES_S3_ENDPOINT",
		"COMMUNITIES_S3_ACCESS_KEY", "COMMUNITIES_S3_SECRET_KEY",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

// writeConfigFile writes a YAML config into a temp dir and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

// TestDefaultConfig_IsValid tests that the built-in defaults pass validation.
func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to validate, got %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Expected port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Solver.TimeLimit.Std() != 60*time.Second {
		t.Errorf("Expected 60s solver time limit, got %v", cfg.Solver.TimeLimit.Std())
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected info log level, got %q", cfg.Log.Level)
	}
}

// TestLoad_EmptyPath tests that Load without a file yields the defaults.
func TestLoad_EmptyPath(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Expected default port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Server.MaxVertices != DefaultMaxVertices {
		t.Errorf("Expected max vertices %d, got %d", DefaultMaxVertices, cfg.Server.MaxVertices)
	}
}

// TestLoad_MissingFile tests that a nonexistent path is reported.
func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "reading config") {
		t.Errorf("Expected read error, got %v", err)
	}
}

// TestLoad_FileOverrides tests that file values override defaults while
// unset fields keep theirs.
func TestLoad_FileOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
server:
  port: 9090
  jwt_secret: file-secret
solver:
  time_limit: 2m
  max_cut_rounds: 12
archive:
  enabled: true
  dir: /tmp/test-archive
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.JWTSecret != "file-secret" {
		t.Errorf("Expected jwt secret from file, got %q", cfg.Server.JWTSecret)
	}
	if cfg.Solver.TimeLimit.Std() != 2*time.Minute {
		t.Errorf("Expected 2m time limit, got %v", cfg.Solver.TimeLimit.Std())
	}
	if cfg.Solver.MaxCutRounds != 12 {
		t.Errorf("Expected 12 cut rounds, got %d", cfg.Solver.MaxCutRounds)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Dir != "/tmp/test-archive" {
		t.Errorf("Expected archive enabled at /tmp/test-archive, got %+v", cfg.Archive)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug level, got %q", cfg.Log.Level)
	}

	// Untouched fields keep their defaults.
	if cfg.Server.ReadTimeout.Std() != DefaultReadTimeout {
		t.Errorf("Expected default read timeout, got %v", cfg.Server.ReadTimeout.Std())
	}
	if cfg.Solver.MaxConcurrent != DefaultMaxConcurrent {
		t.Errorf("Expected default max concurrent, got %d", cfg.Solver.MaxConcurrent)
	}
}

// TestLoad_UnknownFieldRejected tests that typoed keys fail instead of
// being silently dropped.
func TestLoad_UnknownFieldRejected(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
server:
  prot: 9090
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for unknown config field")
	}
}

// TestLoad_EnvOverridesFile tests the precedence env > file > defaults.
func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
server:
  port: 9090
`)
	t.Setenv("PORT", "7070")
	t.Setenv("COMMUNITIES_TIME_LIMIT", "90s")
	t.Setenv("COMMUNITIES_ARCHIVE_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected env port 7070 to win, got %d", cfg.Server.Port)
	}
	if cfg.Solver.TimeLimit.Std() != 90*time.Second {
		t.Errorf("Expected 90s time limit from env, got %v", cfg.Solver.TimeLimit.Std())
	}
	if !cfg.Archive.Enabled {
		t.Error("Expected archive enabled from env")
	}
}

// TestLoad_InvalidEnvValue tests that unparsable env values are reported
// with the variable name.
func TestLoad_InvalidEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	_, err := Load("")
	if err == nil {
		t.Fatal("Expected error for bad PORT value")
	}
	if !strings.Contains(err.Error(), "PORT") {
		t.Errorf("Expected error to name PORT, got %v", err)
	}
}

// TestLoad_InvalidDurationInFile tests that malformed durations fail to parse.
func TestLoad_InvalidDurationInFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
solver:
  time_limit: fast
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected error for bad duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("Expected duration parse error, got %v", err)
	}
}

// TestConfig_ValidateRejections tests that broken configurations are
// refused with an error naming the offending field.
func TestConfig_ValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantSub string
	}{
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantSub: "Port",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantSub: "Level",
		},
		{
			name: "archive enabled without dir",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Dir = ""
			},
			wantSub: "Dir",
		},
		{
			name:    "s3 bucket without region",
			mutate:  func(c *Config) { c.Archive.S3Bucket = "solve-runs" },
			wantSub: "S3Region",
		},
		{
			name:    "remote address without scheme",
			mutate:  func(c *Config) { c.Remote.ListenAddr = "localhost:7780" },
			wantSub: "ListenAddr",
		},
		{
			name:    "remote address with unknown scheme",
			mutate:  func(c *Config) { c.Remote.DialAddr = "udp://localhost:7780" },
			wantSub: "scheme",
		},
		{
			name:    "negative time limit",
			mutate:  func(c *Config) { c.Solver.TimeLimit = Duration(-time.Second) },
			wantSub: "TimeLimit",
		},
		{
			name:    "negative max concurrent",
			mutate:  func(c *Config) { c.Solver.MaxConcurrent = -1 },
			wantSub: "MaxConcurrent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Expected error mentioning %q, got %v", tt.wantSub, err)
			}
		})
	}
}

// TestServerConfig_Addr tests host:port rendering.
func TestServerConfig_Addr(t *testing.T) {
	c := ServerConfig{Port: 8080}
	if got := c.Addr(); got != ":8080" {
		t.Errorf("Expected :8080, got %q", got)
	}

	c = ServerConfig{Host: "127.0.0.1", Port: 9090}
	if got := c.Addr(); got != "127.0.0.1:9090" {
		t.Errorf("Expected 127.0.0.1:9090, got %q", got)
	}
}

// TestApplyDefaults_FillsZeroValues tests that a zero config is usable
// after defaulting, with the deliberate zero fields left alone.
func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	c := &Config{}
	c.ApplyDefaults()

	if c.Server.Port != DefaultPort {
		t.Errorf("Expected default port, got %d", c.Server.Port)
	}
	if c.Server.AdminUser != DefaultAdminUser {
		t.Errorf("Expected default admin user, got %q", c.Server.AdminUser)
	}
	if c.Solver.TimeLimit.Std() != 60*time.Second {
		t.Errorf("Expected 60s time limit, got %v", c.Solver.TimeLimit.Std())
	}
	if c.Log.Level != DefaultLogLevel {
		t.Errorf("Expected default log level, got %q", c.Log.Level)
	}
	if c.Solver.MaxCutRounds != 0 {
		t.Errorf("Expected MaxCutRounds to stay 0, got %d", c.Solver.MaxCutRounds)
	}
	if c.Remote.DialAddr != "" {
		t.Errorf("Expected DialAddr to stay empty, got %q", c.Remote.DialAddr)
	}
}

// TestSolverConfig_ConcurrencyLimit tests defaulting and clamping.
func TestSolverConfig_ConcurrencyLimit(t *testing.T) {
	tests := []struct {
		value    int
		expected int
	}{
		{0, DefaultMaxConcurrent},
		{-3, DefaultMaxConcurrent},
		{12, 12},
		{10000, 256},
	}

	for _, tt := range tests {
		c := SolverConfig{MaxConcurrent: tt.value}
		if got := c.ConcurrencyLimit(); got != tt.expected {
			t.Errorf("ConcurrencyLimit(%d): expected %d, got %d", tt.value, tt.expected, got)
		}
	}
}

// TestServerConfig_SessionTTL tests defaulting and clamping of the token
// lifetime.
func TestServerConfig_SessionTTL(t *testing.T) {
	tests := []struct {
		ttl      Duration
		expected time.Duration
	}{
		{0, DefaultTokenTTL},
		{Duration(time.Second), time.Minute},
		{Duration(48 * time.Hour), 48 * time.Hour},
		{Duration(400 * 24 * time.Hour), 30 * 24 * time.Hour},
	}

	for _, tt := range tests {
		c := ServerConfig{TokenTTL: tt.ttl}
		if got := c.SessionTTL(); got != tt.expected {
			t.Errorf("SessionTTL(%v): expected %v, got %v", tt.ttl.Std(), tt.expected, got)
		}
	}
}
