// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for the server and migrate commands.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// InteractionTokenKey is the HS256 shared key for interaction tokens; required.
	InteractionTokenKey string `mapstructure:"INTERACTION_TOKEN_KEY"`
	// InteractionTokenIssuer is the iss claim on interaction tokens.
	InteractionTokenIssuer string `mapstructure:"INTERACTION_TOKEN_ISSUER"`
	// InteractionTokenTTL is the interaction token lifetime (e.g. "1h").
	InteractionTokenTTL string `mapstructure:"INTERACTION_TOKEN_TTL"`
	// PasscodeTTL is how long an issued passcode stays valid (e.g. "10m").
	PasscodeTTL string `mapstructure:"PASSCODE_TTL"`
	// PasscodeMaxTry is the number of failed submissions before a passcode is dead.
	PasscodeMaxTry int `mapstructure:"PASSCODE_MAX_TRY"`
	// ConnectorSendTimeout bounds a single passcode dispatch (e.g. "15s").
	ConnectorSendTimeout string `mapstructure:"CONNECTOR_SEND_TIMEOUT"`
	// DevPasscodeEnabled when true stores cleartext codes for GET /api/dev/passcode; for local
	// development without a provider. Must not be true when Env is production (startup error).
	DevPasscodeEnabled bool `mapstructure:"DEV_PASSCODE_ENABLED"`
	// Env is the application environment (e.g. "development", "production"). Used with
	// DevPasscodeEnabled to refuse dev passcodes in production.
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces and metrics (e.g. localhost:4317).
	// Empty disables OTel exporters.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Events (optional). When Kafka brokers are set, the server emits verification
	// lifecycle events to Kafka.
	// EventsKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	EventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for verification events (default signon-events).
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`
	// EventsKafkaGroupID is the consumer group id for the events worker.
	EventsKafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("INTERACTION_TOKEN_KEY", "")
	v.SetDefault("INTERACTION_TOKEN_ISSUER", "signon")
	v.SetDefault("INTERACTION_TOKEN_TTL", "1h")
	v.SetDefault("PASSCODE_TTL", "10m")
	v.SetDefault("PASSCODE_MAX_TRY", 5)
	v.SetDefault("CONNECTOR_SEND_TIMEOUT", "15s")
	v.SetDefault("DEV_PASSCODE_ENABLED", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "signon-events")
	v.SetDefault("KAFKA_GROUP_ID", "signon-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.DevPasscodeEnabled && cfg.Env == "production" {
		return nil, errors.New("config: DEV_PASSCODE_ENABLED must not be true when APP_ENV=production")
	}

	if cfg.PasscodeMaxTry < 0 {
		return nil, errors.New("config: PASSCODE_MAX_TRY must not be negative")
	}

	return &cfg, nil
}

// InteractionTTL parses InteractionTokenTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) InteractionTTL() time.Duration {
	d, err := time.ParseDuration(c.InteractionTokenTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// PasscodeLifetime parses PasscodeTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) PasscodeLifetime() time.Duration {
	d, err := time.ParseDuration(c.PasscodeTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// SendTimeout parses ConnectorSendTimeout as a time.Duration. Returns 15s if unset or invalid.
func (c *Config) SendTimeout() time.Duration {
	d, err := time.ParseDuration(c.ConnectorSendTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// EventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event emission is enabled (non-empty list) and to create the producer.
func (c *Config) EventsKafkaBrokersList() []string {
	if c == nil || c.EventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.EventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
