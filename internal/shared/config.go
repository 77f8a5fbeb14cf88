package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Presence  PresenceConfig  `toml:"presence"`
	Commit    CommitConfig    `toml:"commit"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Log       LogConfig       `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"` // sqlite, postgres or memory
	Path         string `toml:"path"`
	URL          string `toml:"url"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig configures how request credentials are resolved to user ids.
type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret"`
	Issuer          string `toml:"issuer"`
	TrustUserHeader bool   `toml:"trust_user_header"`
}

// PresenceConfig configures the notification sink. An empty RedisURL logs events instead.
type PresenceConfig struct {
	RedisURL      string   `toml:"redis_url"`
	ChannelPrefix string   `toml:"channel_prefix"`
	Timeout       Duration `toml:"timeout"`
}

// CommitConfig bounds the optimistic read-validate-write loop.
type CommitConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	Backoff     Duration `toml:"backoff"`
	OpTimeout   Duration `toml:"op_timeout"`
}

// Policy converts the section into a [RetryPolicy].
func (c CommitConfig) Policy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		Backoff:     c.Backoff.Std(),
		OpTimeout:   c.OpTimeout.Std(),
	}
}

// ReconcileConfig controls the background relationship sweep.
type ReconcileConfig struct {
	Interval  Duration `toml:"interval"`
	Workers   int      `toml:"workers"`
	RateLimit float64  `toml:"rate_limit"` // users per second, 0 disables throttling
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] written as a string ("250ms", "5m") in TOML.
type Duration time.Duration

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a [time.Duration].
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Validate checks the values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for sqlite", ErrInvalidConfig)
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("%w: database.url is required for postgres", ErrInvalidConfig)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	if c.Commit.MaxAttempts <= 0 {
		return fmt.Errorf("%w: commit.max_attempts must be positive", ErrInvalidConfig)
	}

	if c.Reconcile.Workers < 0 || c.Reconcile.RateLimit < 0 {
		return fmt.Errorf("%w: reconcile.workers and reconcile.rate_limit cannot be negative", ErrInvalidConfig)
	}

	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
