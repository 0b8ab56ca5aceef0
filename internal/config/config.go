// Package config loads and validates the amictl/AMI client
// configuration: connection parameters, logging, and the optional
// status API.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds every configurable value for the AMI client and its
// optional HTTP status surface.
type Config struct {
	AMI     AMIConfig     `mapstructure:"ami"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`
}

// AMIConfig holds the Asterisk Manager Interface connection settings.
type AMIConfig struct {
	Host                     string        `mapstructure:"host" validate:"required"`
	Port                     int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	Username                 string        `mapstructure:"username" validate:"required"`
	Secret                   string        `mapstructure:"secret" validate:"required"`
	ConnectTimeout           time.Duration `mapstructure:"connect_timeout"`
	PingDelay                time.Duration `mapstructure:"ping_delay"`
	ReconnectTimeout         time.Duration `mapstructure:"reconnect_timeout"`
	ReconnectTimeoutIncrease time.Duration `mapstructure:"reconnect_timeout_increase"`
}

// LoggingConfig holds zerolog output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json pretty"`
}

// APIConfig holds the optional status/health/websocket HTTP server
// settings. Disabled by default: amictl is a CLI-first tool, the API
// is an opt-in add-on for dashboards and monitoring integrations.
type APIConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// knownExampleSecrets are AMI credentials lifted straight from sample
// configs and Asterisk's own manager.conf.sample; Validate prints a
// warning to stderr when the secret is one of these, but does not
// reject the config.
var knownExampleSecrets = []string{
	"amp111", "changeme", "secret", "password", "admin",
}

// Load reads configuration from configPath (if non-empty), overlays
// environment variables prefixed AMICTL_, unmarshals into a Config,
// and validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("AMICTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ami.host", "127.0.0.1")
	v.SetDefault("ami.port", 5038)
	v.SetDefault("ami.connect_timeout", 5*time.Second)
	v.SetDefault("ami.ping_delay", 5*time.Second)
	v.SetDefault("ami.reconnect_timeout", 5*time.Second)
	v.SetDefault("ami.reconnect_timeout_increase", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8090)
	v.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})
}

// Validate runs struct-tag validation and the additional checks a
// struct tag can't express (weak/example secrets, API port required
// only when the API is enabled).
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	for _, weak := range knownExampleSecrets {
		if c.AMI.Secret == weak {
			fmt.Fprintf(os.Stderr, "WARNING: ami.secret is a well-known example credential ('%s') - set a real one before pointing at production Asterisk\n", weak)
			break
		}
	}

	if c.API.Enabled && c.API.Port == 0 {
		return fmt.Errorf("api.enabled is true but api.port is unset")
	}
	return nil
}

// Address returns the AMI host:port as a single dial string.
func (c *AMIConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
