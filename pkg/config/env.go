package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// applyEnv layers environment overrides on top of the file values. Bare
// PORT, JWT_SECRET and LOG_LEVEL are honored for platform compatibility;
// everything else carries the COMMUNITIES_ prefix.
func (c *Config) applyEnv() error {
	envString("COMMUNITIES_HOST", &c.Server.Host)
	envString("JWT_SECRET", &c.Server.JWTSecret)
	envString("COMMUNITIES_ADMIN_USER", &c.Server.AdminUser)
	envString("COMMUNITIES_ADMIN_PASSWORD", &c.Server.AdminPassword)
	envString("COMMUNITIES_API_KEY", &c.Server.APIKey)
	envString("COMMUNITIES_REMOTE_LISTEN", &c.Remote.ListenAddr)
	envString("COMMUNITIES_REMOTE_DIAL", &c.Remote.DialAddr)
	envString("COMMUNITIES_ARCHIVE_DIR", &c.Archive.Dir)
	envString("COMMUNITIES_S3_BUCKET", &c.Archive.S3Bucket)
	envString("COMMUNITIES_S3_PREFIX", &c.Archive.S3Prefix)
	envString("COMMUNITIES_S3_REGION", &c.Archive.S3Region)
	envString("COMMUNITIES_S3_ENDPOINT", &c.Archive.S3Endpoint)
	envString("COMMUNITIES_S3_ACCESS_KEY", &c.Archive.S3AccessKey)
	envString("COMMUNITIES_S3_SECRET_KEY", &c.Archive.S3SecretKey)
	envString("LOG_LEVEL", &c.Log.Level)

	if err := envInt("PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := envInt("COMMUNITIES_MAX_VERTICES", &c.Server.MaxVertices); err != nil {
		return err
	}
	if err := envInt("COMMUNITIES_MAX_CUT_ROUNDS", &c.Solver.MaxCutRounds); err != nil {
		return err
	}
	if err := envInt("COMMUNITIES_MAX_CONCURRENT", &c.Solver.MaxConcurrent); err != nil {
		return err
	}
	if err := envBool("COMMUNITIES_AUTH_DISABLED", &c.Server.AuthDisabled); err != nil {
		return err
	}
	if err := envBool("COMMUNITIES_ARCHIVE_ENABLED", &c.Archive.Enabled); err != nil {
		return err
	}
	if err := envDuration("COMMUNITIES_TIME_LIMIT", &c.Solver.TimeLimit); err != nil {
		return err
	}
	return nil
}

// envString overwrites dst when the variable is set and non-empty.
func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

func envDuration(key string, dst *Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = Duration(parsed)
	return nil
}
