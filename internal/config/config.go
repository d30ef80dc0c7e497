// Package config provides YAML file configuration with environment variable
// overrides for the relay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shineum/sealed-relay/internal/address"
	"github.com/shineum/sealed-relay/internal/policy"
)

// Defaults for the HTTP section.
const (
	defaultListen      = ":8080"
	defaultHost        = "localhost"
	defaultMaxBodySize = 32 * 1024 * 1024
	defaultRateBurst   = 20
)

// redacted replaces secrets in Redacted output.
const redacted = "[redacted]"

// Config holds the complete application configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	TLS     TLSConfig     `yaml:"tls"`
	Mail    policy.Policy `yaml:"mail"`
	Counter CounterConfig `yaml:"counter"`
	Notify  NotifyConfig  `yaml:"notify"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Listen string `yaml:"listen"`

	// Host is the public host name of this relay.
	Host string `yaml:"host"`

	// Directory is an optional path prefix for the API routes.
	Directory string `yaml:"directory"`

	// RateLimit is in requests per second. Zero disables rate limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	MaxBodySize int64 `yaml:"max_body_size"`
}

// TLSConfig holds TLS settings. With Enabled set and no files, a
// self-signed certificate is generated for HTTP.Host.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// CounterConfig selects the counter store.
type CounterConfig struct {
	Store    string `yaml:"store"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	Prefix   string `yaml:"prefix"`
}

// NotifyConfig selects where receipts are reported.
type NotifyConfig struct {
	Provider string    `yaml:"provider"`
	SES      SESConfig `yaml:"ses"`
}

// SESConfig holds AWS SES notification configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
	Recipient       string `yaml:"recipient"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	cfg.normalize()

	return cfg, nil
}

// LoadEnvFile adds the variables of a dotenv file to the process
// environment. Variables already set are left untouched.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if !address.ValidHost(c.HTTP.Host) {
		return fmt.Errorf("http.host %q is not a valid host name", c.HTTP.Host)
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("http.rate_limit must not be negative")
	}
	if c.HTTP.MaxBodySize < 0 {
		return errors.New("http.max_body_size must not be negative")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return errors.New("tls.cert_file and tls.key_file must be set together")
	}

	switch c.Counter.Store {
	case "memory":
	case "sqlite":
		if c.Counter.Path == "" {
			return errors.New("counter.path is required for the sqlite store")
		}
	case "redis":
		if c.Counter.RedisURL == "" {
			return errors.New("counter.redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown counter store %q", c.Counter.Store)
	}

	switch c.Notify.Provider {
	case "none", "stdout":
	case "ses":
		if !c.SESConfigured() {
			return errors.New("notify.ses requires region, sender and recipient")
		}
	default:
		return fmt.Errorf("unknown notify provider %q", c.Notify.Provider)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	return nil
}

// SESConfigured returns true if the SES fields needed to send are set.
func (c *Config) SESConfigured() bool {
	return c.Notify.SES.Region != "" &&
		c.Notify.SES.Sender != "" &&
		c.Notify.SES.Recipient != ""
}

// TLSEnabled returns true if HTTPS should be served.
func (c *Config) TLSEnabled() bool {
	return c.TLS.Enabled || (c.TLS.CertFile != "" && c.TLS.KeyFile != "")
}

// Redacted returns a copy with credentials masked, suitable for printing.
func (c *Config) Redacted() *Config {
	out := *c
	out.Mail.Require.Labels = append([]string(nil), c.Mail.Require.Labels...)
	if out.Notify.SES.SecretAccessKey != "" {
		out.Notify.SES.SecretAccessKey = redacted
	}
	if out.Counter.RedisURL != "" {
		out.Counter.RedisURL = redactURL(out.Counter.RedisURL)
	}
	return &out
}

// redactURL masks the userinfo part of a connection URL.
func redactURL(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return u
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return u
	}
	return scheme + "://" + redacted + rest[at:]
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.HTTP.Listen = defaultListen
	c.HTTP.Host = defaultHost
	c.HTTP.RateBurst = defaultRateBurst
	c.HTTP.MaxBodySize = defaultMaxBodySize
	c.Mail = policy.Default()
	c.Counter.Store = "memory"
	c.Counter.Prefix = "relay"
	c.Notify.Provider = "none"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("RELAY_LISTEN"); v != "" {
		c.HTTP.Listen = v
	}
	if v := os.Getenv("RELAY_HOST"); v != "" {
		c.HTTP.Host = v
	}
	if v := os.Getenv("RELAY_DIRECTORY"); v != "" {
		c.HTTP.Directory = v
	}
	if v := os.Getenv("RELAY_RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RELAY_RATE_LIMIT: %w", err)
		}
		c.HTTP.RateLimit = limit
	}
	if v := os.Getenv("RELAY_RATE_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RELAY_RATE_BURST: %w", err)
		}
		c.HTTP.RateBurst = burst
	}
	if v := os.Getenv("RELAY_MAX_BODY_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid RELAY_MAX_BODY_SIZE: %w", err)
		}
		c.HTTP.MaxBodySize = size
	}

	if v := os.Getenv("TLS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TLS_ENABLED: %w", err)
		}
		c.TLS.Enabled = enabled
	}
	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		c.TLS.CertFile = v
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		c.TLS.KeyFile = v
	}

	if v := os.Getenv("COUNTER_STORE"); v != "" {
		c.Counter.Store = v
	}
	if v := os.Getenv("COUNTER_PATH"); v != "" {
		c.Counter.Path = v
	}
	if v := os.Getenv("COUNTER_REDIS_URL"); v != "" {
		c.Counter.RedisURL = v
	}
	if v := os.Getenv("COUNTER_PREFIX"); v != "" {
		c.Counter.Prefix = v
	}

	if v := os.Getenv("NOTIFY_PROVIDER"); v != "" {
		c.Notify.Provider = v
	}
	if v := os.Getenv("SES_REGION"); v != "" {
		c.Notify.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.Notify.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.Notify.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.Notify.SES.Sender = v
	}
	if v := os.Getenv("SES_RECIPIENT"); v != "" {
		c.Notify.SES.Recipient = v
	}

	if v := os.Getenv("MAIL_REQUIRE_LABELS"); v != "" {
		c.Mail.Require.Labels = splitList(v)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// normalize lowercases the enumerated settings so file and environment
// values compare the same way in Validate.
func (c *Config) normalize() {
	c.Counter.Store = strings.ToLower(strings.TrimSpace(c.Counter.Store))
	c.Notify.Provider = strings.ToLower(strings.TrimSpace(c.Notify.Provider))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
