package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	MongoURL      string `env:"MONGO_URL" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"dataviz"`

	JWTSecret             string `env:"JWT_SECRET_KEY"`
	JWTAlgorithm          string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	AccessTokenTTLMinutes int    `env:"JWT_ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	Issuer                string `env:"JWT_ISSUER" envDefault:"dataviz"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	Port                int           `env:"PORT" envDefault:"8000"`
	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// AccessTokenTTL converts the configured expiry minutes into a duration.
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// LoadConfig reads a .env file when present, then the process environment.
func LoadConfig() (Config, error) {
	// Missing .env is the normal case outside local dev.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET_KEY is required")
	}

	return cfg, nil
}
