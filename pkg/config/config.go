// Package config loads and validates the shared configuration for the
// communities binaries. Values are layered, lowest priority first:
// built-in defaults, an optional YAML file, then environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-communities/pkg/community"
)

// Default values applied wherever the file and environment are silent.
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 2 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
	DefaultTokenTTL        = 24 * time.Hour
	DefaultAdminUser       = "admin"
	DefaultMaxVertices     = 512
	DefaultMaxConcurrent   = 4
	DefaultSendTimeout     = 10 * time.Second
	DefaultRecvTimeout     = 5 * time.Minute
	DefaultWorkerListen    = "tcp://0.0.0.0:7780"
	DefaultArchiveDir      = "./data/archive"
	DefaultLogLevel        = "info"
)

// Duration wraps time.Duration so YAML values like "30s" or "2m" parse.
type Duration time.Duration

// UnmarshalYAML parses a duration from its string form.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string such as \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration shared by the server, worker and CLI.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Solver  SolverConfig  `yaml:"solver"`
	Remote  RemoteConfig  `yaml:"remote"`
	Archive ArchiveConfig `yaml:"archive"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port" validate:"min=0,max=65535"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// Auth. An empty JWTSecret makes the server fall back to a development
	// secret and log a warning; set AuthDisabled to skip auth entirely.
	// APIKey, when set, is accepted in the X-API-Key header as a service
	// credential alongside bearer tokens.
	JWTSecret     string   `yaml:"jwt_secret"`
	TokenTTL      Duration `yaml:"token_ttl"`
	AdminUser     string   `yaml:"admin_user"`
	AdminPassword string   `yaml:"admin_password"`
	APIKey        string   `yaml:"api_key"`
	AuthDisabled  bool     `yaml:"auth_disabled"`

	// MaxVertices caps the adjacency matrix size accepted over HTTP.
	MaxVertices int `yaml:"max_vertices" validate:"omitempty,min=2"`
}

// SolverConfig holds the detection defaults applied to API requests that
// do not set their own.
type SolverConfig struct {
	TimeLimit Duration `yaml:"time_limit"`

	// MaxCutRounds bounds the connectivity cut loop; 0 lets the library
	// pick a per-graph default.
	MaxCutRounds int `yaml:"max_cut_rounds" validate:"omitempty,min=1"`

	// MaxConcurrent caps solves running at once in the server.
	MaxConcurrent int `yaml:"max_concurrent" validate:"omitempty,min=1"`
}

// RemoteConfig holds the socket addresses for remote solving. ListenAddr
// is bound by the worker; DialAddr, when set, makes clients send solves
// to a worker instead of running them in-process.
type RemoteConfig struct {
	ListenAddr  string   `yaml:"listen_addr"`
	DialAddr    string   `yaml:"dial_addr"`
	SendTimeout Duration `yaml:"send_timeout"`
	RecvTimeout Duration `yaml:"recv_timeout"`
}

// ArchiveConfig holds the solve-run archive settings. S3 upload is active
// only when S3Bucket is set. Credentials come from the usual AWS chain
// unless S3AccessKey and S3SecretKey are set explicitly, which is the
// common arrangement for self-hosted endpoints.
type ArchiveConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dir         string `yaml:"dir"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Prefix    string `yaml:"s3_prefix"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			IdleTimeout:     Duration(DefaultIdleTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
			TokenTTL:        Duration(DefaultTokenTTL),
			AdminUser:       DefaultAdminUser,
			MaxVertices:     DefaultMaxVertices,
		},
		Solver: SolverConfig{
			TimeLimit:     Duration(community.DefaultTimeLimit),
			MaxConcurrent: DefaultMaxConcurrent,
		},
		Remote: RemoteConfig{
			ListenAddr:  DefaultWorkerListen,
			SendTimeout: Duration(DefaultSendTimeout),
			RecvTimeout: Duration(DefaultRecvTimeout),
		},
		Archive: ArchiveConfig{
			Dir: DefaultArchiveDir,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty), and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields with the built-in defaults.
// MaxCutRounds and DialAddr stay zero: 0 rounds means a per-graph default
// and an empty dial address means solve in-process.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()

	c.Server.Port = DefaultOrPositive(c.Server.Port, d.Server.Port)
	c.Server.ReadTimeout = DefaultOrPositive(c.Server.ReadTimeout, d.Server.ReadTimeout)
	c.Server.WriteTimeout = DefaultOrPositive(c.Server.WriteTimeout, d.Server.WriteTimeout)
	c.Server.IdleTimeout = DefaultOrPositive(c.Server.IdleTimeout, d.Server.IdleTimeout)
	c.Server.ShutdownTimeout = DefaultOrPositive(c.Server.ShutdownTimeout, d.Server.ShutdownTimeout)
	c.Server.TokenTTL = DefaultOrPositive(c.Server.TokenTTL, d.Server.TokenTTL)
	c.Server.AdminUser = DefaultOr(c.Server.AdminUser, d.Server.AdminUser)
	c.Server.MaxVertices = DefaultOrPositive(c.Server.MaxVertices, d.Server.MaxVertices)

	c.Solver.TimeLimit = DefaultOrPositive(c.Solver.TimeLimit, d.Solver.TimeLimit)
	c.Solver.MaxConcurrent = DefaultOrPositive(c.Solver.MaxConcurrent, d.Solver.MaxConcurrent)

	c.Remote.ListenAddr = DefaultOr(c.Remote.ListenAddr, d.Remote.ListenAddr)
	c.Remote.SendTimeout = DefaultOrPositive(c.Remote.SendTimeout, d.Remote.SendTimeout)
	c.Remote.RecvTimeout = DefaultOrPositive(c.Remote.RecvTimeout, d.Remote.RecvTimeout)

	c.Archive.Dir = DefaultOr(c.Archive.Dir, d.Archive.Dir)

	c.Log.Level = DefaultOr(c.Log.Level, d.Log.Level)
}

// Validate checks struct tags first, then the per-section rules.
func (c *Config) Validate() error {
	if err := validateTags(c); err != nil {
		return err
	}
	sections := []Validatable{&c.Server, &c.Solver, &c.Remote, &c.Archive, &c.Log}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the HTTP server settings.
func (c *ServerConfig) Validate() error {
	v := NewConfigValidator("ServerConfig")

	v.RangeInt("Port", c.Port, 1, 65535).
		Positive("MaxVertices", c.MaxVertices).
		MinDuration("ReadTimeout", c.ReadTimeout.Std(), time.Second).
		MinDuration("WriteTimeout", c.WriteTimeout.Std(), time.Second).
		MinDuration("ShutdownTimeout", c.ShutdownTimeout.Std(), time.Second)

	v.When(!c.AuthDisabled, func(cv *ConfigValidator) {
		cv.MinDuration("TokenTTL", c.TokenTTL.Std(), time.Minute)
	})

	return v.Validate()
}

// Validate checks the solver defaults.
func (c *SolverConfig) Validate() error {
	v := NewConfigValidator("SolverConfig")

	v.RangeDuration("TimeLimit", c.TimeLimit.Std(), 0, 24*time.Hour).
		NonNegative("MaxCutRounds", c.MaxCutRounds).
		Positive("MaxConcurrent", c.MaxConcurrent)

	return v.Validate()
}

// Validate checks the remote solving addresses.
func (c *RemoteConfig) Validate() error {
	v := NewConfigValidator("RemoteConfig")

	v.When(c.ListenAddr != "", func(cv *ConfigValidator) {
		cv.Custom("ListenAddr", func() error { return checkSocketAddr(c.ListenAddr) })
	})
	v.When(c.DialAddr != "", func(cv *ConfigValidator) {
		cv.Custom("DialAddr", func() error { return checkSocketAddr(c.DialAddr) })
	})
	v.MinDuration("SendTimeout", c.SendTimeout.Std(), 0).
		MinDuration("RecvTimeout", c.RecvTimeout.Std(), 0)

	return v.Validate()
}

// Validate checks the archive settings.
func (c *ArchiveConfig) Validate() error {
	v := NewConfigValidator("ArchiveConfig")

	v.When(c.Enabled, func(cv *ConfigValidator) {
		cv.Required("Dir", c.Dir)
	})
	v.When(c.S3Bucket != "", func(cv *ConfigValidator) {
		cv.Required("S3Region", c.S3Region)
	})

	return v.Validate()
}

// Validate checks the logging settings.
func (c *LogConfig) Validate() error {
	v := NewConfigValidator("LogConfig")

	v.OneOf("Level", c.Level, []string{"debug", "info", "warn", "error"})

	return v.Validate()
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionTTL returns the JWT lifetime, with a minimum of one minute.
func (c *ServerConfig) SessionTTL() time.Duration {
	ttl := DefaultOrPositive(c.TokenTTL.Std(), DefaultTokenTTL)
	return Clamp(ttl, time.Minute, 30*24*time.Hour)
}

// ConcurrencyLimit returns the solve concurrency cap, with a minimum of 1.
func (c *SolverConfig) ConcurrencyLimit() int {
	return Clamp(DefaultOrPositive(c.MaxConcurrent, DefaultMaxConcurrent), 1, 256)
}

// checkSocketAddr verifies a mangos socket address carries a usable scheme.
func checkSocketAddr(addr string) error {
	scheme, rest, ok := strings.Cut(addr, "://")
	if !ok || scheme == "" || rest == "" {
		return fmt.Errorf("address %q must look like tcp://host:port, ipc://path or inproc://name", addr)
	}
	switch scheme {
	case "tcp", "ipc", "inproc", "ws":
		return nil
	default:
		return fmt.Errorf("unsupported socket scheme %q", scheme)
	}
}
