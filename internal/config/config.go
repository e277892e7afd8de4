// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the relay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultRecordTTL is 90 days, the lifetime of a correlation record.
const defaultRecordTTL = 90 * 24 * time.Hour

// defaultHistoryTTL is 365 days, the lifetime of a history record.
const defaultHistoryTTL = 365 * 24 * time.Hour

// Config holds the complete application configuration.
type Config struct {
	Region         string        `yaml:"region"`
	Bucket         string        `yaml:"bucket"`
	Domain         string        `yaml:"domain"`
	Token          string        `yaml:"token"`
	Recipient      string        `yaml:"recipient"`
	ReplyKeyword   string        `yaml:"reply_keyword"`
	ComposeKeyword string        `yaml:"compose_keyword"`
	NoReplyLocal   string        `yaml:"noreply_local"`
	BounceLocal    string        `yaml:"bounce_local"`
	Allowlist      []string      `yaml:"allowlist"`
	RecordTTL      time.Duration `yaml:"record_ttl"`
	HistoryTTL     time.Duration `yaml:"history_ttl"`

	AWS     AWSConfig     `yaml:"aws"`
	Web     WebConfig     `yaml:"web"`
	Logging LoggingConfig `yaml:"logging"`
}

// AWSConfig holds optional static AWS credentials. When empty, the default
// credential chain of the runtime is used.
type AWSConfig struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// WebConfig holds configuration for the web entrypoints.
type WebConfig struct {
	// AuthToken is the expected value of the Basic authorization header,
	// i.e. base64("username:password").
	AuthToken string `yaml:"auth_token"`
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
	cfg.applyEnvVars()
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
	cfg.applyEnvVars()

	return cfg, nil
}

// requiredField pairs a configuration field with its name for error
// reporting.
type requiredField struct {
	name  string
	value string
}

func requireFields(fields []requiredField) error {
	var missing []string
	for _, field := range fields {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Validate rejects a half-configured relay. Everything the routing core
// needs must be present before the first message arrives.
func (c *Config) Validate() error {
	if err := requireFields([]requiredField{
		{"region", c.Region},
		{"bucket", c.Bucket},
		{"domain", c.Domain},
		{"token", c.Token},
		{"recipient", c.Recipient},
		{"reply_keyword", c.ReplyKeyword},
		{"noreply_local", c.NoReplyLocal},
		{"bounce_local", c.BounceLocal},
	}); err != nil {
		return err
	}

	// The token separates purpose from token in alias local parts, so it
	// must not contain the separator itself.
	if strings.ContainsAny(c.Token, "@_") {
		return fmt.Errorf("token must not contain '@' or '_'")
	}

	return nil
}

// ValidateWeb checks the fields the statistics entrypoint uses.
func (c *Config) ValidateWeb() error {
	return requireFields([]requiredField{
		{"region", c.Region},
		{"auth_token", c.Web.AuthToken},
	})
}

// ValidateCompose checks the fields the compose entrypoint uses. The domain
// is required so the form cannot send from a bare local part.
func (c *Config) ValidateCompose() error {
	return requireFields([]requiredField{
		{"region", c.Region},
		{"domain", c.Domain},
		{"auth_token", c.Web.AuthToken},
	})
}

// ReplyAlias returns the full reply alias address, e.g. "replies_TOK@domain.tld".
func (c *Config) ReplyAlias() string {
	return fmt.Sprintf("%s_%s@%s", c.ReplyKeyword, c.Token, c.Domain)
}

// ComposeAlias returns the full compose alias address, or the empty string
// if the compose intent is disabled.
func (c *Config) ComposeAlias() string {
	if c.ComposeKeyword == "" {
		return ""
	}
	return fmt.Sprintf("%s_%s@%s", c.ComposeKeyword, c.Token, c.Domain)
}

// NoReplyAddr returns the fixed return-path address used for relayed mail.
func (c *Config) NoReplyAddr() string {
	return c.NoReplyLocal + "@" + c.Domain
}

// BounceAddr returns the sender address used for bounce notifications.
func (c *Config) BounceAddr() string {
	return c.BounceLocal + "@" + c.Domain
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.ReplyKeyword = "replies"
	c.NoReplyLocal = "noreply"
	c.BounceLocal = "bouncer"
	c.RecordTTL = defaultRecordTTL
	c.HistoryTTL = defaultHistoryTTL
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("DOMAIN"); v != "" {
		c.Domain = strings.ToLower(v)
	}
	if v := os.Getenv("TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("RECIPIENT"); v != "" {
		c.Recipient = strings.ToLower(v)
	}
	if v := os.Getenv("REPLY_KEYWORD"); v != "" {
		c.ReplyKeyword = v
	}
	if v := os.Getenv("COMPOSE_KEYWORD"); v != "" {
		c.ComposeKeyword = v
	}
	if v := os.Getenv("NO_REPLY_ADDR"); v != "" {
		c.NoReplyLocal = v
	}
	if v := os.Getenv("BOUNCE_ADDR"); v != "" {
		c.BounceLocal = v
	}
	if v := os.Getenv("FROM_ALLOWLIST"); v != "" {
		c.Allowlist = splitAddressList(v)
	}
	if v := os.Getenv("EXPIRY"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.RecordTTL = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("HISTORY_EXPIRY"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.HistoryTTL = time.Duration(secs) * time.Second
		}
	}

	if v := os.Getenv("ACCESS_KEY_ID"); v != "" {
		c.AWS.AccessKeyID = v
	}
	if v := os.Getenv("SECRET_ACCESS_KEY"); v != "" {
		c.AWS.SecretAccessKey = v
	}

	if v := os.Getenv("AUTH_TOKEN"); v != "" {
		c.Web.AuthToken = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// splitAddressList splits a comma-separated address list, stripping spaces
// and lowercasing each entry.
func splitAddressList(raw string) []string {
	parts := strings.Split(strings.ReplaceAll(raw, " ", ""), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
