package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
)

const (
	AuthModeFirebase = "firebase"
	AuthModeHeader   = "header"
)

type Config struct {
	Port                   string `env:"PORT" envDefault:"8080"`
	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	AutoMigrate            bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

// ServerConfig holds the settings needed before the database is reachable.
type ServerConfig struct {
	Port              string `env:"PORT" envDefault:"8080"`
	AuthMode          string `env:"AUTH_MODE" envDefault:"firebase"`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	CORSAllowedSuffix string `env:"CORS_ALLOWED_SUFFIX" envDefault:"vercel.app"`
	GitSHA            string `env:"GIT_SHA" envDefault:"dev"`
	BuildTime         string `env:"BUILD_TIME" envDefault:"unknown"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadServer() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	switch cfg.AuthMode {
	case AuthModeFirebase, AuthModeHeader:
	default:
		return nil, fmt.Errorf("invalid AUTH_MODE %q", cfg.AuthMode)
	}
	if cfg.AuthMode == AuthModeFirebase && cfg.FirebaseProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required when AUTH_MODE=%s", AuthModeFirebase)
	}
	return &cfg, nil
}
