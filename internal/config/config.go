// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the service.
type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// BackendURL is the expense backend's base URL; BackendToken is the
	// service credential sent as a bearer token on outbound calls.
	BackendURL     string        `envconfig:"BACKEND_URL" required:"true"`
	BackendToken   string        `envconfig:"BACKEND_TOKEN" default:""`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`

	// RefreshTimeout bounds one full background pull across all groups.
	RefreshTimeout time.Duration `envconfig:"REFRESH_TIMEOUT" default:"60s"`

	DBPath string `envconfig:"DB_PATH" default:"./data/deudacero.db"`

	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	JWTDuration time.Duration `envconfig:"JWT_DURATION" default:"24h"`

	// AMQPURL empty disables the event listener.
	AMQPURL      string `envconfig:"AMQP_URL" default:""`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"deudacero"`
	AMQPQueue    string `envconfig:"AMQP_QUEUE" default:"balance.events"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.BackendURL == "" {
		return nil, errors.New("backend url must be provided")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	if cfg.AMQPURL != "" {
		parsed, err := url.Parse(cfg.AMQPURL)
		if err != nil || (parsed.Scheme != "amqp" && parsed.Scheme != "amqps") {
			return nil, errors.New("amqp url must use the amqp or amqps scheme")
		}
		if cfg.AMQPQueue == "" {
			return nil, errors.New("amqp queue name must be provided when amqp is enabled")
		}
	}
	return &cfg, nil
}

// IsProduction returns true when the service runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
