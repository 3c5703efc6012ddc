// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env file layers for the mail sender.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// defaultPollInterval matches the ACS client's own default.
const defaultPollInterval = 2 * time.Second

// Config holds the complete application configuration.
type Config struct {
	// Provider selects the delivery backend: acs, graph, ses, resend or
	// stdout. Empty means auto-detect.
	Provider    string        `yaml:"provider"`
	DefaultFrom string        `yaml:"default_from"`
	ACS         ACSConfig     `yaml:"acs"`
	Graph       GraphConfig   `yaml:"graph"`
	SES         SESConfig     `yaml:"ses"`
	Resend      ResendConfig  `yaml:"resend"`
	Logging     LoggingConfig `yaml:"logging"`
}

// ACSConfig holds Azure Communication Services configuration. Endpoint is a
// connection string, or a bare endpoint URL when a managed identity is used.
type ACSConfig struct {
	Endpoint           string        `yaml:"endpoint"`
	UseManagedIdentity bool          `yaml:"use_managed_identity"`
	IdentityClientID   string        `yaml:"identity_client_id"`
	PollInterval       time.Duration `yaml:"poll_interval"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// ResendConfig holds Resend API configuration.
type ResendConfig struct {
	APIKey string `yaml:"api_key"`
	From   string `yaml:"from"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := defaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// fills unset fields from defaults, then overrides with environment
// variables. Returns an error if the specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := mergo.Merge(cfg, defaults()); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables already set in the environment are not overwritten.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ACSConfigured returns true if an ACS connection string or endpoint is set.
func (c *Config) ACSConfigured() bool {
	return c.ACS.Endpoint != ""
}

// GraphConfigured returns true if the Graph API app credentials are set.
// The sender is optional; messages fall back to their own sender address.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != ""
}

// SESConfigured returns true if an SES region is set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// ResendConfigured returns true if a Resend API key is set.
func (c *Config) ResendConfigured() bool {
	return c.Resend.APIKey != ""
}

// defaults returns a Config holding sensible default values.
func defaults() *Config {
	return &Config{
		ACS: ACSConfig{
			PollInterval: defaultPollInterval,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values; values
// that fail to parse are ignored.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("DEFAULT_FROM"); v != "" {
		c.DefaultFrom = v
	}

	if v := os.Getenv("ACS_ENDPOINT"); v != "" {
		c.ACS.Endpoint = v
	}
	if v := os.Getenv("ACS_USE_MANAGED_IDENTITY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ACS.UseManagedIdentity = b
		}
	}
	if v := os.Getenv("ACS_IDENTITY_CLIENT_ID"); v != "" {
		c.ACS.IdentityClientID = v
	}
	if v := os.Getenv("ACS_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.ACS.PollInterval = d
		}
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}
	if v := os.Getenv("GRAPH_SENDER"); v != "" {
		c.Graph.Sender = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		c.Resend.APIKey = v
	}
	if v := os.Getenv("RESEND_FROM"); v != "" {
		c.Resend.From = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}
