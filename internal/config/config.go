package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds environment-based settings
type Config struct {
	Environment   string `envconfig:"APP_ENV" default:"production"`
	ServerAddress string `envconfig:"SERVER_ADDRESS" default:":8080"`
	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"postgres"` // postgres|sqlite
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`

	RedisAddress  string `envconfig:"REDIS_ADDRESS"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	MQTTBrokerURL string `envconfig:"MQTT_BROKER_URL" default:"tcp://0.0.0.0:1883"`
	MQTTClientID  string `envconfig:"MQTT_CLIENT_ID" default:"miautomatic-server"`

	// upstream backend the companion app used to talk to; mirroring is off when empty
	BackendURL string `envconfig:"BACKEND_URL"`

	Timezone          string        `envconfig:"FEEDER_TZ" default:"America/Sao_Paulo"`
	SchedulerInterval time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"30s"`

	UploadDir       string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	UseSpaces       bool   `envconfig:"USE_SPACES"`
	SpacesEndpoint  string `envconfig:"SPACES_ENDPOINT"`
	SpacesRegion    string `envconfig:"SPACES_REGION"`
	SpacesBucket    string `envconfig:"SPACES_BUCKET"`
	SpacesCDNURL    string `envconfig:"SPACES_CDN_URL"`
	SpacesAccessKey string `envconfig:"SPACES_ACCESS_KEY"`
	SpacesSecretKey string `envconfig:"SPACES_SECRET_KEY"`
}

// Load reads configuration from environment variables, after loading a .env file if one exists
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" || c.DatabaseURL == "" {
		return errors.New("JWT_SECRET and DATABASE_URL are required")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("FEEDER_TZ: %w", err)
	}
	if c.SchedulerInterval <= 0 {
		return errors.New("SCHEDULER_INTERVAL must be positive")
	}
	if c.UseSpaces && (c.SpacesEndpoint == "" || c.SpacesBucket == "") {
		return errors.New("SPACES_ENDPOINT and SPACES_BUCKET are required when USE_SPACES is true")
	}
	return nil
}

// Location returns the feeder timezone; validate has already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SetupLogging configures the global zerolog logger.
func (c *Config) SetupLogging() {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
